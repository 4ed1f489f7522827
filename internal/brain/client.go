package brain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"meebo/internal/logging"
	"meebo/internal/tools"
)

// ClientConfig configures the streaming protocol client.
type ClientConfig struct {
	// BaseURL is the inference server API root, e.g. http://localhost:11434/api.
	BaseURL string
	// Model is the model name sent with each request.
	Model string
	// Timeout bounds each network call, including reading the full stream.
	Timeout time.Duration
}

// Client talks the inference server's generate protocol. It owns the
// conversation continuation token: the token is replaced wholesale whenever
// a fragment carries one, before that fragment is yielded downstream, so a
// caller that aborts mid-stream still retains the latest token.
//
// A Client must not run two turns concurrently; the control loop is the
// single writer of the conversation state.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client

	mu      sync.Mutex
	context []int
}

// NewClient creates a client for the given server.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Context returns a copy of the current continuation token.
func (c *Client) Context() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.context))
	copy(out, c.context)
	return out
}

// ResetContext discards the continuation token, starting a fresh
// conversation on the next turn.
func (c *Client) ResetContext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = nil
}

func (c *Client) setContext(ctx []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = ctx
}

// tagsResponse is the body of the server's model listing endpoint.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckServer probes the inference server and logs the available models.
// A warning is logged if the configured model is not present. Failure to
// reach the server is returned to the caller but is not fatal to startup.
func (c *Client) CheckServer(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to parse model list: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	found := false
	for _, m := range tags.Models {
		names = append(names, m.Name)
		if m.Name == c.model {
			found = true
		}
	}
	logging.Stream("Connected to inference server, available models: %v", names)
	if !found {
		logging.StreamWarn("Model %q not found on server; it may need to be pulled", c.model)
	}
	return nil
}

// StartTurn opens a streaming request and returns a lazy, finite,
// non-restartable fragment sequence. The sequence terminates with a
// fragment whose Done flag is set, or with exactly one fragment carrying a
// terminal error. No retry is attempted internally.
func (c *Client) StartTurn(ctx context.Context, prompt string, decls []tools.Declaration) <-chan Fragment {
	out := make(chan Fragment, 16)

	go func() {
		defer close(out)

		start := time.Now()
		reqBody := generateRequest{
			Model:   c.model,
			Prompt:  prompt,
			Stream:  true,
			Context: c.Context(),
			Tools:   decls,
		}
		logging.StreamDebug("StartTurn: model=%s prompt_len=%d tools=%d context_len=%d",
			c.model, len(prompt), len(decls), len(reqBody.Context))

		resp, err := c.post(ctx, reqBody)
		if err != nil {
			c.yield(ctx, out, Fragment{Err: err})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
			logging.StreamError("StartTurn: %v", err)
			c.yield(ctx, out, Fragment{Err: err})
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		count := 0
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk generateChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Malformed fragments are skipped; they do not end the
				// stream.
				logging.StreamWarn("StartTurn: skipping malformed fragment: %v", err)
				continue
			}
			count++

			// Store the continuation token before yielding, so an aborting
			// caller still keeps the latest state.
			if chunk.Context != nil {
				c.setContext(chunk.Context)
			}

			frag := Fragment{
				Text:      chunk.Response,
				ToolCalls: chunk.ToolCalls,
				Done:      chunk.Done,
			}
			if !c.yield(ctx, out, frag) {
				logging.StreamDebug("StartTurn: caller abandoned stream after %d fragments", count)
				return
			}
			if chunk.Done {
				logging.Stream("StartTurn: completed in %v (%d fragments)", time.Since(start), count)
				return
			}
		}

		// The stream ended without a completion marker: a mid-stream
		// disconnect or truncation, handled like any transport failure.
		err = scanner.Err()
		if err == nil {
			err = fmt.Errorf("stream ended without completion marker")
		}
		logging.StreamError("StartTurn: stream interrupted after %d fragments: %v", count, err)
		c.yield(ctx, out, Fragment{Err: fmt.Errorf("stream interrupted: %w", err)})
	}()

	return out
}

// Generate performs a non-streaming request and returns the full response
// text and any native tool calls. The continuation token is updated from
// the response.
func (c *Client) Generate(ctx context.Context, prompt string, decls []tools.Declaration) (string, []ToolCall, error) {
	start := time.Now()
	reqBody := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Context: c.Context(),
		Tools:   decls,
	}

	resp, err := c.post(ctx, reqBody)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var chunk generateChunk
	if err := json.Unmarshal(body, &chunk); err != nil {
		return "", nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chunk.Context != nil {
		c.setContext(chunk.Context)
	}

	logging.Stream("Generate: completed in %v response_len=%d tool_calls=%d",
		time.Since(start), len(chunk.Response), len(chunk.ToolCalls))
	return chunk.Response, chunk.ToolCalls, nil
}

func (c *Client) post(ctx context.Context, body generateRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.StreamError("request failed: %v", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// yield sends a fragment unless the consumer has gone away.
func (c *Client) yield(ctx context.Context, out chan<- Fragment, frag Fragment) bool {
	select {
	case out <- frag:
		return true
	case <-ctx.Done():
		return false
	}
}
