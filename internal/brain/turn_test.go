package brain

import (
	"context"
	"errors"
	"testing"

	"meebo/internal/tools"
)

func newTestRunner(t *testing.T, f *fakeServer) (*Runner, *recordingExecutor) {
	t.Helper()
	exec := newRecordingExecutor()
	c := newTestClient(t, f)
	return NewRunner(c, tools.DefaultRegistry(), exec), exec
}

func TestRunner_ActionsDispatchMidStream(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ACTIONS:\nmove_forward(speed=50)\n"}),
		chunkLine(t, generateChunk{Response: "stop()\nTHOUGHTS:\nwall ahead"}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	r, exec := newTestRunner(t, f)

	result := r.RunTurn(context.Background(), "go")

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !result.Done {
		t.Errorf("expected completed turn")
	}
	if len(exec.calls) != 2 {
		t.Fatalf("expected 2 executions, got %v", exec.calls)
	}
	if exec.calls[0] != "move_forward" || exec.calls[1] != "stop" {
		t.Errorf("wrong order: %v", exec.calls)
	}
	if result.Thoughts != "wall ahead" {
		t.Errorf("thoughts lost: %q", result.Thoughts)
	}
}

func TestRunner_WholeBufferReparseDoesNotReexecute(t *testing.T) {
	// Every fragment forces a reparse of the full buffer; the completed
	// action must not run again as the thoughts text trickles in.
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ACTIONS:\nstop()\nTHOUGHTS:\n"}),
		chunkLine(t, generateChunk{Response: "all "}),
		chunkLine(t, generateChunk{Response: "quiet "}),
		chunkLine(t, generateChunk{Response: "here"}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	r, exec := newTestRunner(t, f)

	result := r.RunTurn(context.Background(), "p")

	if len(exec.calls) != 1 {
		t.Fatalf("expected exactly 1 execution, got %v", exec.calls)
	}
	if len(result.Dispatched) != 1 {
		t.Errorf("expected 1 dispatched record, got %v", result.Dispatched)
	}
}

func TestRunner_NativeAndTextChannelsShareLedger(t *testing.T) {
	// The same action arriving as a native call and in the text grammar
	// executes once.
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{ToolCalls: []ToolCall{{
			Function: FunctionCall{Name: "move_forward", Arguments: `{"speed": 50}`},
		}}}),
		chunkLine(t, generateChunk{Response: "ACTIONS:\nmove_forward(speed=50)\nTHOUGHTS:\nmoving"}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	r, exec := newTestRunner(t, f)

	r.RunTurn(context.Background(), "p")

	if len(exec.calls) != 1 {
		t.Fatalf("cross-channel duplicate executed twice: %v", exec.calls)
	}
}

func TestRunner_UnknownToolDropped(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ACTIONS:\nfly(height=10)\nstop()\nTHOUGHTS:\n"}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	r, exec := newTestRunner(t, f)

	result := r.RunTurn(context.Background(), "p")

	if len(exec.calls) != 1 || exec.calls[0] != "stop" {
		t.Fatalf("unknown tool must be dropped, got %v", exec.calls)
	}
	if result.Err != nil {
		t.Errorf("rejection is an omission, not an error: %v", result.Err)
	}
}

func TestRunner_TransportErrorKeepsPartialWork(t *testing.T) {
	// An action dispatched before the stream died stays dispatched.
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ACTIONS:\nstop()\n"}),
		// No completion marker: stream truncates.
	}}
	r, exec := newTestRunner(t, f)

	result := r.RunTurn(context.Background(), "p")

	if !errors.Is(result.Err, ErrTurnAborted) {
		t.Fatalf("expected ErrTurnAborted, got %v", result.Err)
	}
	if len(exec.calls) != 1 {
		t.Errorf("partial work lost: %v", exec.calls)
	}
	if result.Done {
		t.Errorf("aborted turn must not report completion")
	}
}

func TestRunner_BadNativeArgumentsSkipped(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{ToolCalls: []ToolCall{
			{Function: FunctionCall{Name: "stop", Arguments: "{not json"}},
			{Function: FunctionCall{Name: "check_battery", Arguments: "{}"}},
		}}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	r, exec := newTestRunner(t, f)

	r.RunTurn(context.Background(), "p")

	if len(exec.calls) != 1 || exec.calls[0] != "check_battery" {
		t.Fatalf("bad arguments must only drop their own call, got %v", exec.calls)
	}
}

func TestRunner_EmptyActionsSection(t *testing.T) {
	f := &fakeServer{lines: []string{
		chunkLine(t, generateChunk{Response: "ACTIONS:\nTHOUGHTS:\nnothing to do"}),
		chunkLine(t, generateChunk{Done: true}),
	}}
	r, exec := newTestRunner(t, f)

	result := r.RunTurn(context.Background(), "p")

	if len(exec.calls) != 0 {
		t.Fatalf("expected no executions, got %v", exec.calls)
	}
	if result.Thoughts != "nothing to do" {
		t.Errorf("thoughts lost: %q", result.Thoughts)
	}
}

func TestRunner_TurnIDsUnique(t *testing.T) {
	f := &fakeServer{lines: []string{chunkLine(t, generateChunk{Done: true})}}
	r, _ := newTestRunner(t, f)

	a := r.RunTurn(context.Background(), "p")
	b := r.RunTurn(context.Background(), "p")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("turn IDs must be unique, got %q and %q", a.ID, b.ID)
	}
}
