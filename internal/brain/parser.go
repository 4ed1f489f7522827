package brain

import (
	"reflect"
	"strconv"
	"strings"

	"meebo/internal/logging"
)

// Section markers of the action-text wire format. Both are optional:
// without THOUGHTS: the whole text is the actions block, and without
// ACTIONS: no lines inside that block are attempted as tool calls.
const (
	actionsMarker  = "ACTIONS:"
	thoughtsMarker = "THOUGHTS:"
)

// ParseTurn derives a ParsedTurn from a complete RawBuffer snapshot. It is
// a pure function: the same buffer always yields the same result. It is
// defined on the whole buffer rather than incrementally because the format
// is not append-safe; a partial token in an early fragment can move the
// section boundaries once the rest of it arrives.
func ParseTurn(buffer string) ParsedTurn {
	block := buffer
	thoughts := ""
	if i := strings.Index(buffer, thoughtsMarker); i >= 0 {
		block = buffer[:i]
		thoughts = strings.TrimSpace(buffer[i+len(thoughtsMarker):])
	}

	var actions []ParsedAction
	if j := strings.Index(block, actionsMarker); j >= 0 {
		for _, line := range strings.Split(block[j+len(actionsMarker):], "\n") {
			if action, ok := parseActionLine(line); ok {
				actions = append(actions, action)
			}
		}
	}

	return ParsedTurn{Thoughts: thoughts, Actions: actions}
}

// parseActionLine attempts to read one line as a tool call of the form
// name(key=value, ...). Lines that do not match are dropped without an
// error; mid-stream text routinely contains incomplete calls. Nested
// structures fail closed: a value containing brackets rejects the whole
// line rather than guessing.
func parseActionLine(line string) (ParsedAction, bool) {
	line = strings.TrimSpace(line)
	open := strings.Index(line, "(")
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return ParsedAction{}, false
	}

	name := strings.TrimSpace(line[:open])
	if name == "" || strings.ContainsAny(name, " \t") {
		return ParsedAction{}, false
	}

	args := line[open+1 : len(line)-1]
	if strings.ContainsAny(args, "(){}[]") {
		return ParsedAction{}, false
	}

	params := make(map[string]interface{})
	if strings.TrimSpace(args) != "" {
		for _, token := range splitArgs(args) {
			eq := strings.Index(token, "=")
			if eq < 0 {
				return ParsedAction{}, false
			}
			key := strings.TrimSpace(token[:eq])
			if key == "" {
				return ParsedAction{}, false
			}
			params[key] = parseScalar(token[eq+1:])
		}
	}

	return ParsedAction{Tool: name, Params: params}, true
}

// splitArgs splits a parameter list on commas, except commas inside quoted
// strings (speak(text="Hello, world") is one parameter).
func splitArgs(args string) []string {
	var out []string
	var quote byte
	start := 0
	for i := 0; i < len(args); i++ {
		ch := args[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ',':
			out = append(out, args[start:i])
			start = i + 1
		}
	}
	out = append(out, args[start:])
	return out
}

// parseScalar decodes a parameter value: integer, then float, then bool,
// falling back to the raw string with surrounding quotes stripped.
func parseScalar(raw string) interface{} {
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ParseState is the incremental parser's state.
type ParseState int

const (
	// StateAccumulating means the buffer is still growing and the action
	// list changed on the most recent fragment.
	StateAccumulating ParseState = iota
	// StateStable means the most recent fragment did not change the parsed
	// action list.
	StateStable
)

func (s ParseState) String() string {
	if s == StateStable {
		return "STABLE"
	}
	return "ACCUMULATING"
}

// Accumulator holds one turn's RawBuffer and reparses it in full on every
// appended fragment, tracking whether the action list has stabilized.
// Turn-scoped: Reset (or a fresh Accumulator) is required between turns.
type Accumulator struct {
	buf     strings.Builder
	last    ParsedTurn
	state   ParseState
	started bool
}

// NewAccumulator creates an empty accumulator in ACCUMULATING state.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds a fragment to the buffer and reparses the whole buffer,
// returning the resulting ParsedTurn. The state moves to STABLE when two
// consecutive parses yield equal action lists, and back to ACCUMULATING
// when a later fragment changes the list again.
func (a *Accumulator) Append(fragment string) ParsedTurn {
	a.buf.WriteString(fragment)
	turn := ParseTurn(a.buf.String())

	if a.started && actionsEqual(turn.Actions, a.last.Actions) {
		a.state = StateStable
	} else {
		a.state = StateAccumulating
		if a.started {
			logging.ParseDebug("action list changed: %d -> %d actions", len(a.last.Actions), len(turn.Actions))
		}
	}
	a.started = true
	a.last = turn
	return turn
}

// State returns the current parser state.
func (a *Accumulator) State() ParseState {
	return a.state
}

// Buffer returns the accumulated raw text.
func (a *Accumulator) Buffer() string {
	return a.buf.String()
}

// Last returns the most recent parse result.
func (a *Accumulator) Last() ParsedTurn {
	return a.last
}

// Reset clears all turn-scoped state.
func (a *Accumulator) Reset() {
	a.buf.Reset()
	a.last = ParsedTurn{}
	a.state = StateAccumulating
	a.started = false
}

func actionsEqual(a, b []ParsedAction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Tool != b[i].Tool || !reflect.DeepEqual(a[i].Params, b[i].Params) {
			return false
		}
	}
	return true
}
