// Package brain implements the decision pipeline: the streaming protocol
// client for the inference server, the incremental action-text parser, the
// action validator, and the dispatch engine that executes each validated
// action exactly once per turn.
package brain

import (
	"errors"

	"meebo/internal/tools"
)

// ParsedAction is a candidate tool invocation extracted from model text or
// a native tool call. It has not been validated; the tool may be unknown
// and the params malformed.
type ParsedAction struct {
	Tool   string
	Params map[string]interface{}
}

// ParsedTurn is the result of parsing one RawBuffer snapshot: the model's
// rationale and the ordered action list.
type ParsedTurn struct {
	Thoughts string
	Actions  []ParsedAction
}

// ValidatedAction is a ParsedAction that passed schema validation. Params
// are coerced to the schema's declared types.
type ValidatedAction struct {
	Tool   string
	Params map[string]interface{}
}

// generateRequest is the wire request to the inference server.
type generateRequest struct {
	Model   string              `json:"model"`
	Prompt  string              `json:"prompt"`
	Stream  bool                `json:"stream"`
	Context []int               `json:"context,omitempty"`
	Tools   []tools.Declaration `json:"tools,omitempty"`
}

// generateChunk is one line-delimited fragment of a streaming response, or
// the single body of a non-streaming one.
type generateChunk struct {
	Response  string     `json:"response"`
	Context   []int      `json:"context"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Done      bool       `json:"done"`
}

// ToolCall is a native structured tool call emitted by the server.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries a native call's name and JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Fragment is one element of the lazy sequence produced by StartTurn.
// Exactly one of the terminal conditions holds at the end of a turn:
// a fragment with Done set, or a fragment with Err set.
type Fragment struct {
	// Text is the incremental response delta, possibly empty.
	Text string
	// ToolCalls holds native structured tool calls, if the server emitted
	// any in this fragment.
	ToolCalls []ToolCall
	// Done mirrors the server's completion flag.
	Done bool
	// Err is a terminal transport or protocol error. No fragments follow.
	Err error
}

// Sentinel errors callers branch on.
var (
	// ErrUnknownTool marks a parsed action whose tool name is not in the
	// capability registry.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidParam marks a parameter that failed schema validation.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrTurnAborted marks a turn terminated early by a transport failure.
	ErrTurnAborted = errors.New("turn aborted")
)
