package brain

import (
	"testing"
)

func TestParseTurn_ActionsAndThoughts(t *testing.T) {
	buffer := "ACTIONS:\nmove_forward(speed=50)\nstop()\nTHOUGHTS:\nThe path ahead is clear."

	turn := ParseTurn(buffer)

	if len(turn.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d: %v", len(turn.Actions), turn.Actions)
	}
	if turn.Actions[0].Tool != "move_forward" {
		t.Errorf("expected move_forward first, got %s", turn.Actions[0].Tool)
	}
	if got := turn.Actions[0].Params["speed"]; got != int64(50) {
		t.Errorf("expected speed int64(50), got %T %v", got, got)
	}
	if turn.Actions[1].Tool != "stop" {
		t.Errorf("expected stop second, got %s", turn.Actions[1].Tool)
	}
	if len(turn.Actions[1].Params) != 0 {
		t.Errorf("expected no params for stop, got %v", turn.Actions[1].Params)
	}
	if turn.Thoughts != "The path ahead is clear." {
		t.Errorf("unexpected thoughts: %q", turn.Thoughts)
	}
}

func TestParseTurn_NoActionsMarker(t *testing.T) {
	// Without the marker, lines that look like calls are still prose.
	buffer := "move_forward(speed=50)\nTHOUGHTS:\njust chatting"

	turn := ParseTurn(buffer)

	if len(turn.Actions) != 0 {
		t.Fatalf("expected no actions without marker, got %v", turn.Actions)
	}
	if turn.Thoughts != "just chatting" {
		t.Errorf("unexpected thoughts: %q", turn.Thoughts)
	}
}

func TestParseTurn_NoThoughtsMarker(t *testing.T) {
	turn := ParseTurn("ACTIONS:\nstop()")

	if len(turn.Actions) != 1 || turn.Actions[0].Tool != "stop" {
		t.Fatalf("expected single stop action, got %v", turn.Actions)
	}
	if turn.Thoughts != "" {
		t.Errorf("expected empty thoughts, got %q", turn.Thoughts)
	}
}

func TestParseTurn_EmptyBuffer(t *testing.T) {
	turn := ParseTurn("")
	if len(turn.Actions) != 0 || turn.Thoughts != "" {
		t.Fatalf("expected empty turn, got %+v", turn)
	}
}

func TestParseTurn_ScalarTypes(t *testing.T) {
	turn := ParseTurn("ACTIONS:\nlisten(timeout=2.5)\nspeak(text=\"hello\", wait=true)\nTHOUGHTS:\nok")

	if len(turn.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", turn.Actions)
	}
	if got := turn.Actions[0].Params["timeout"]; got != 2.5 {
		t.Errorf("expected float64 2.5, got %T %v", got, got)
	}
	if got := turn.Actions[1].Params["text"]; got != "hello" {
		t.Errorf("expected unquoted string, got %T %v", got, got)
	}
	if got := turn.Actions[1].Params["wait"]; got != true {
		t.Errorf("expected bool true, got %T %v", got, got)
	}
}

func TestParseTurn_QuotedComma(t *testing.T) {
	turn := ParseTurn("ACTIONS:\nspeak(text=\"Hello, world\", wait=false)\nTHOUGHTS:\n")

	if len(turn.Actions) != 1 {
		t.Fatalf("expected 1 action, got %v", turn.Actions)
	}
	if got := turn.Actions[0].Params["text"]; got != "Hello, world" {
		t.Errorf("comma inside quotes split the value: %q", got)
	}
}

func TestParseTurn_MalformedLinesDropped(t *testing.T) {
	buffer := "ACTIONS:\n" +
		"move_forward(speed=50)\n" + // valid
		"(orphan=1)\n" + // no name
		"bad name(x=1)\n" + // whitespace in name
		"stop(\n" + // unterminated
		"turn_left(speed=30\n" + // no closing paren
		"speak(nested(x=1))\n" + // nested call, fail closed
		"listen(timeout)\n" + // no equals
		"stop()\n" +
		"THOUGHTS:\ndone"

	turn := ParseTurn(buffer)

	if len(turn.Actions) != 2 {
		t.Fatalf("expected only the 2 valid actions, got %d: %v", len(turn.Actions), turn.Actions)
	}
	if turn.Actions[0].Tool != "move_forward" || turn.Actions[1].Tool != "stop" {
		t.Errorf("wrong survivors: %v", turn.Actions)
	}
}

func TestParseTurn_BracketValuesFailClosed(t *testing.T) {
	turn := ParseTurn("ACTIONS:\nspeak(text=[1,2])\nmove_forward(speed={50})\nTHOUGHTS:\n")
	if len(turn.Actions) != 0 {
		t.Fatalf("bracketed values must reject the line, got %v", turn.Actions)
	}
}

func TestAccumulator_FragmentSplitConverges(t *testing.T) {
	// A call split across fragments parses once complete, identically to
	// receiving the whole buffer at once.
	fragments := []string{"ACTIONS:\nmove_for", "ward(spe", "ed=50)\nTHOUGH", "TS:\nonward"}

	acc := NewAccumulator()
	var last ParsedTurn
	for _, f := range fragments {
		last = acc.Append(f)
	}

	whole := ParseTurn("ACTIONS:\nmove_forward(speed=50)\nTHOUGHTS:\nonward")
	if !actionsEqual(last.Actions, whole.Actions) {
		t.Fatalf("fragmented parse diverged: %v vs %v", last.Actions, whole.Actions)
	}
	if last.Thoughts != whole.Thoughts {
		t.Errorf("thoughts diverged: %q vs %q", last.Thoughts, whole.Thoughts)
	}
}

func TestAccumulator_StateTransitions(t *testing.T) {
	acc := NewAccumulator()

	acc.Append("ACTIONS:\nstop()\n")
	if acc.State() != StateAccumulating {
		t.Fatalf("first fragment must leave ACCUMULATING, got %s", acc.State())
	}

	// Thoughts text grows but the action list is unchanged.
	acc.Append("THOUGHTS:\nall ")
	if acc.State() != StateStable {
		t.Fatalf("unchanged action list should be STABLE, got %s", acc.State())
	}

	acc.Append("quiet")
	if acc.State() != StateStable {
		t.Fatalf("expected STABLE to persist, got %s", acc.State())
	}
}

func TestAccumulator_StableRevertsOnNewAction(t *testing.T) {
	acc := NewAccumulator()
	acc.Append("ACTIONS:\nstop()\n")
	acc.Append("\n") // no change, goes STABLE
	if acc.State() != StateStable {
		t.Fatalf("setup: expected STABLE, got %s", acc.State())
	}

	turn := acc.Append("check_battery()\n")
	if acc.State() != StateAccumulating {
		t.Errorf("new action must revert to ACCUMULATING, got %s", acc.State())
	}
	if len(turn.Actions) != 2 {
		t.Errorf("expected 2 actions after late arrival, got %v", turn.Actions)
	}
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator()
	acc.Append("ACTIONS:\nstop()\nTHOUGHTS:\nx")
	acc.Reset()

	if acc.Buffer() != "" {
		t.Errorf("buffer not cleared: %q", acc.Buffer())
	}
	if acc.State() != StateAccumulating {
		t.Errorf("state not reset: %s", acc.State())
	}
	if len(acc.Last().Actions) != 0 {
		t.Errorf("last parse not cleared: %v", acc.Last())
	}
}

func TestParseTurn_Idempotent(t *testing.T) {
	buffer := "ACTIONS:\nmove_forward(speed=50)\nspeak(text='hi', wait=true)\nTHOUGHTS:\ngoing"
	first := ParseTurn(buffer)
	second := ParseTurn(buffer)
	if !actionsEqual(first.Actions, second.Actions) || first.Thoughts != second.Thoughts {
		t.Fatalf("reparse diverged: %+v vs %+v", first, second)
	}
}
