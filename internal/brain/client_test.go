package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeServer streams the given lines as a generate response and serves a
// model list on the tags endpoint.
type fakeServer struct {
	lines    []string
	models   []string
	lastBody generateRequest
	status   int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		var models []map[string]string
		for _, m := range f.models {
			models = append(models, map[string]string{"name": m})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"models": models})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastBody)
		if f.status != 0 {
			http.Error(w, "model not loaded", f.status)
			return
		}
		flusher := w.(http.Flusher)
		for _, line := range f.lines {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL: srv.URL + "/api",
		Model:   "qwen2:7b",
		Timeout: 5 * time.Second,
	})
}

func chunkLine(t *testing.T, chunk generateChunk) string {
	t.Helper()
	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	return string(data)
}

func collect(t *testing.T, ch <-chan Fragment) []Fragment {
	t.Helper()
	var out []Fragment
	for frag := range ch {
		out = append(out, frag)
	}
	return out
}

func TestClient_StreamAssemblesText(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ACTIONS:\nsto"}),
		chunkLine(t, generateChunk{Response: "p()\nTHOUGHTS:\nidle"}),
		chunkLine(t, generateChunk{Done: true, Context: []int{1, 2, 3}}),
	}}
	c := newTestClient(t, f)

	frags := collect(t, c.StartTurn(context.Background(), "look around", nil))

	var text strings.Builder
	for _, frag := range frags {
		if frag.Err != nil {
			t.Fatalf("unexpected error fragment: %v", frag.Err)
		}
		text.WriteString(frag.Text)
	}
	if got := text.String(); got != "ACTIONS:\nstop()\nTHOUGHTS:\nidle" {
		t.Errorf("assembled text wrong: %q", got)
	}
	if !frags[len(frags)-1].Done {
		t.Errorf("final fragment must carry the completion flag")
	}
}

func TestClient_ContextTokenReplacedWholesale(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "a", Context: []int{1}}),
		chunkLine(t, generateChunk{Response: "b", Context: []int{9, 9}}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	c := newTestClient(t, f)

	collect(t, c.StartTurn(context.Background(), "p", nil))

	got := c.Context()
	if len(got) != 2 || got[0] != 9 {
		t.Fatalf("expected latest token [9 9], got %v", got)
	}

	// A later turn must send the stored token back.
	collect(t, c.StartTurn(context.Background(), "again", nil))
	if len(f.lastBody.Context) != 2 || f.lastBody.Context[0] != 9 {
		t.Errorf("continuation token not echoed in request: %v", f.lastBody.Context)
	}
}

func TestClient_ResetContext(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Done: true, Context: []int{5}}),
	}}
	c := newTestClient(t, f)

	collect(t, c.StartTurn(context.Background(), "p", nil))
	if len(c.Context()) != 1 {
		t.Fatalf("setup: expected stored token")
	}

	c.ResetContext()
	if len(c.Context()) != 0 {
		t.Errorf("token survived reset: %v", c.Context())
	}
}

func TestClient_MalformedLinesSkipped(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ok "}),
		`{"response": truncated`,
		"",
		chunkLine(t, generateChunk{Response: "fine", Done: true}),
	}}
	c := newTestClient(t, f)

	frags := collect(t, c.StartTurn(context.Background(), "p", nil))

	for _, frag := range frags {
		if frag.Err != nil {
			t.Fatalf("malformed line must not end the stream: %v", frag.Err)
		}
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 good fragments, got %d", len(frags))
	}
}

func TestClient_Non200IsTerminalError(t *testing.T) {
	f := &fakeServer{status: http.StatusInternalServerError}
	c := newTestClient(t, f)

	frags := collect(t, c.StartTurn(context.Background(), "p", nil))

	if len(frags) != 1 || frags[0].Err == nil {
		t.Fatalf("expected exactly one error fragment, got %v", frags)
	}
	if !strings.Contains(frags[0].Err.Error(), "500") {
		t.Errorf("error should carry the status: %v", frags[0].Err)
	}
}

func TestClient_TruncatedStreamIsError(t *testing.T) {
	// Stream ends without a completion marker.
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "partial"}),
	}}
	c := newTestClient(t, f)

	frags := collect(t, c.StartTurn(context.Background(), "p", nil))

	last := frags[len(frags)-1]
	if last.Err == nil {
		t.Fatalf("truncated stream must end with an error fragment, got %v", frags)
	}
	if !strings.Contains(last.Err.Error(), "interrupted") {
		t.Errorf("unexpected error: %v", last.Err)
	}
}

func TestClient_NativeToolCallsSurface(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{ToolCalls: []ToolCall{{
			Function: FunctionCall{Name: "stop", Arguments: "{}"},
		}}}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	c := newTestClient(t, f)

	frags := collect(t, c.StartTurn(context.Background(), "p", nil))

	if len(frags[0].ToolCalls) != 1 || frags[0].ToolCalls[0].Function.Name != "stop" {
		t.Fatalf("native tool call lost: %v", frags[0].ToolCalls)
	}
}

func TestClient_CheckServer(t *testing.T) {
	f := &fakeServer{models: []string{"qwen2:7b", "llama3:8b"}}
	c := newTestClient(t, f)

	if err := c.CheckServer(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_CheckServerUnreachable(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1/api", Model: "m", Timeout: time.Second})
	if err := c.CheckServer(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestClient_Generate(t *testing.T) {
	body, _ := json.Marshal(generateChunk{
		Response: "ACTIONS:\nstop()\nTHOUGHTS:\nok",
		Context:  []int{7},
		Done:     true,
	})
	f := &fakeServer{lines: []string{string(body)}}
	c := newTestClient(t, f)

	text, calls, err := c.Generate(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "stop()") {
		t.Errorf("unexpected text: %q", text)
	}
	if len(calls) != 0 {
		t.Errorf("unexpected tool calls: %v", calls)
	}
	if got := c.Context(); len(got) != 1 || got[0] != 7 {
		t.Errorf("context token not stored: %v", got)
	}
	if f.lastBody.Stream {
		t.Errorf("Generate must request a non-streaming response")
	}
}

func TestClient_CancelAbandonsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "x", Context: []int{4}}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	c := newTestClient(t, f)

	ch := c.StartTurn(ctx, "p", nil)
	first := <-ch
	if errors.Is(first.Err, context.Canceled) {
		t.Fatalf("first fragment should be data: %v", first.Err)
	}
	cancel()

	// Drain; the channel must close rather than hang.
	for range ch {
	}

	// The token stored before the abort survives.
	if got := c.Context(); len(got) != 1 || got[0] != 4 {
		t.Errorf("expected token stored before abort, got %v", got)
	}
}
