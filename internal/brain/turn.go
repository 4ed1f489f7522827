package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meebo/internal/logging"
	"meebo/internal/tools"
)

// TurnResult summarizes one completed LLM turn: the model's reasoning,
// the raw accumulated text, and every action actually dispatched.
type TurnResult struct {
	ID         string
	Thoughts   string
	RawText    string
	Dispatched []ActionResult
	Done       bool
	Err        error
	Duration   time.Duration
}

// Runner drives a full streaming turn: it consumes response fragments,
// re-parses the accumulated buffer after each one, validates whatever the
// parser recognized, and dispatches newly appeared actions mid-stream.
type Runner struct {
	client     *Client
	validator  *Validator
	dispatcher *Dispatcher
	registry   *tools.Registry
}

// NewRunner wires a turn runner from its parts.
func NewRunner(client *Client, registry *tools.Registry, exec Executor) *Runner {
	return &Runner{
		client:     client,
		validator:  NewValidator(registry),
		dispatcher: NewDispatcher(exec),
		registry:   registry,
	}
}

// RunTurn executes one prompt against the model and returns once the
// stream finishes or fails. Actions are executed as soon as they parse,
// not after the stream ends; the turn ledger keeps repeats from the
// whole-buffer re-parse (and duplicates across the native tool-call
// channel) to a single execution each.
func (r *Runner) RunTurn(ctx context.Context, prompt string) TurnResult {
	start := time.Now()
	result := TurnResult{ID: uuid.NewString()}

	ledger := NewLedger()
	acc := NewAccumulator()
	decls := tools.DeclareAll(r.registry)

	logging.LoopDebug("turn %s starting, prompt %d bytes", result.ID, len(prompt))

	fragments := r.client.StartTurn(ctx, prompt, decls)
	for frag := range fragments {
		if frag.Err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrTurnAborted, frag.Err)
			break
		}

		if len(frag.ToolCalls) > 0 {
			native := nativeToParsed(frag.ToolCalls)
			valid := r.validator.ValidateAll(native)
			result.Dispatched = append(result.Dispatched,
				r.dispatcher.Dispatch(ctx, valid, ledger)...)
		}

		if frag.Text != "" {
			turn := acc.Append(frag.Text)
			valid := r.validator.ValidateAll(turn.Actions)
			result.Dispatched = append(result.Dispatched,
				r.dispatcher.Dispatch(ctx, valid, ledger)...)
		}

		if frag.Done {
			result.Done = true
			break
		}
	}

	final := acc.Last()
	result.Thoughts = final.Thoughts
	result.RawText = acc.Buffer()
	result.Duration = time.Since(start)

	if result.Err != nil {
		logging.LoopWarn("turn %s aborted after %v with %d action(s) dispatched: %v",
			result.ID, result.Duration, len(result.Dispatched), result.Err)
	} else {
		logging.Loop("turn %s finished in %v, %d action(s) dispatched",
			result.ID, result.Duration, len(result.Dispatched))
	}
	return result
}

// nativeToParsed converts structured tool calls from the wire into the
// same ParsedAction shape the text grammar produces, so both channels
// share the validator and the dedup ledger.
func nativeToParsed(calls []ToolCall) []ParsedAction {
	var out []ParsedAction
	for _, call := range calls {
		params := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
				logging.ParseWarn("dropping native call %s: bad arguments: %v",
					call.Function.Name, err)
				continue
			}
		}
		out = append(out, ParsedAction{Tool: call.Function.Name, Params: params})
	}
	return out
}
