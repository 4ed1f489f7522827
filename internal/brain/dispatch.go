package brain

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"meebo/internal/logging"
)

// Executor is the actuator boundary: the concrete motor/audio/sensor
// subsystems the dispatched actions ultimately invoke.
type Executor interface {
	Execute(ctx context.Context, tool string, params map[string]interface{}) (interface{}, error)
}

// ActionResult records the outcome of one dispatched action. An executor
// failure is captured here rather than propagated, so one failing action
// never blocks the rest of its batch.
type ActionResult struct {
	Action   ValidatedAction
	Key      string
	Value    interface{}
	Err      error
	Duration time.Duration
}

// Ledger is the turn-scoped record of already-executed actions, keyed by
// (tool, canonicalized params) identity. It guards the at-most-once
// guarantee across the repeated full-list parses within a turn. Turn-local
// and single-goroutine; no locking required.
type Ledger struct {
	seen map[string]struct{}
}

// NewLedger creates an empty ledger for a new turn.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Seen reports whether an identity key has already been dispatched.
func (l *Ledger) Seen(key string) bool {
	_, ok := l.seen[key]
	return ok
}

// Record marks an identity key as dispatched.
func (l *Ledger) Record(key string) {
	l.seen[key] = struct{}{}
}

// Len returns the number of distinct actions dispatched this turn.
func (l *Ledger) Len() int {
	return len(l.seen)
}

// ActionKey computes the (tool, canonicalized params) identity of an
// action. Parameters are sorted by name and values formatted so that
// equal values produce equal keys regardless of which channel (text
// grammar or native tool call) surfaced them.
func ActionKey(a ValidatedAction) string {
	var b strings.Builder
	b.WriteString(a.Tool)
	b.WriteByte('(')

	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonicalValue(a.Params[k]))
	}
	b.WriteByte(')')
	return b.String()
}

// canonicalValue renders one scalar so numerically equal values collide:
// 50, int64(50) and 50.0 all canonicalize to "50".
func canonicalValue(v interface{}) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	default:
		return strconv.Quote(fmt.Sprintf("%v", x))
	}
}

// Dispatcher executes validated actions against the Tool Executor,
// consulting the turn's ledger so each distinct action runs at most once.
type Dispatcher struct {
	exec Executor
}

// NewDispatcher creates a dispatcher over the given executor.
func NewDispatcher(exec Executor) *Dispatcher {
	return &Dispatcher{exec: exec}
}

// Dispatch runs every newly appeared action in arrival order and returns
// the results of the freshly dispatched ones. Actions whose identity key
// is already in the ledger are skipped silently; the parser re-emits the
// full list on every fragment, so repeats are the common case.
func (d *Dispatcher) Dispatch(ctx context.Context, actions []ValidatedAction, ledger *Ledger) []ActionResult {
	var results []ActionResult
	for _, action := range actions {
		key := ActionKey(action)
		if ledger.Seen(key) {
			continue
		}
		ledger.Record(key)

		logging.Dispatch("executing %s", key)
		start := time.Now()
		value, err := d.exec.Execute(ctx, action.Tool, action.Params)
		elapsed := time.Since(start)
		if err != nil {
			logging.DispatchError("action %s failed after %v: %v", key, elapsed, err)
		} else {
			logging.DispatchDebug("action %s completed in %v", key, elapsed)
		}

		results = append(results, ActionResult{
			Action:   action,
			Key:      key,
			Value:    value,
			Err:      err,
			Duration: elapsed,
		})
	}
	return results
}
