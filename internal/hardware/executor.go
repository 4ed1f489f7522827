package hardware

import (
	"context"
	"fmt"
	"time"

	"meebo/internal/logging"
)

// Executor maps validated tool invocations onto hardware subsystems. It
// satisfies the brain dispatcher's executor boundary.
type Executor struct {
	sub *Subsystems
}

// NewExecutor creates an executor over the given subsystems.
func NewExecutor(sub *Subsystems) *Executor {
	return &Executor{sub: sub}
}

const (
	defaultSpeed         = 50
	defaultListenTimeout = 5 * time.Second
)

// Execute runs one named tool. Parameters have already been validated
// and coerced upstream; missing optional parameters take their defaults
// here, and unrecognized keys are ignored.
func (e *Executor) Execute(ctx context.Context, tool string, params map[string]interface{}) (interface{}, error) {
	logging.ToolsDebug("execute %s %v", tool, params)

	switch tool {
	case "get_motor_status":
		status, err := e.sub.Motors.Status(ctx)
		if err != nil {
			return nil, err
		}
		return status.ToMap(), nil

	case "check_battery":
		snap, err := e.sub.Sensors.Read(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"battery_percent": snap.BatteryPercent}, nil

	case "move_forward":
		return nil, e.sub.Motors.Move(ctx, DirForward, intParam(params, "speed", defaultSpeed))
	case "move_backward":
		return nil, e.sub.Motors.Move(ctx, DirBackward, intParam(params, "speed", defaultSpeed))
	case "turn_left":
		return nil, e.sub.Motors.Move(ctx, DirLeft, intParam(params, "speed", defaultSpeed))
	case "turn_right":
		return nil, e.sub.Motors.Move(ctx, DirRight, intParam(params, "speed", defaultSpeed))

	case "stop":
		return nil, e.sub.Motors.Stop(ctx)

	case "speak":
		text, _ := params["text"].(string)
		return nil, e.sub.Audio.Speak(ctx, text, boolParam(params, "wait", false))

	case "listen":
		timeout := durationParam(params, "timeout", defaultListenTimeout)
		heard, err := e.sub.Audio.Listen(ctx, timeout)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"heard": heard}, nil

	case "capture_image":
		return e.sub.Camera.Capture(ctx)

	default:
		return nil, fmt.Errorf("no executor for tool %q", tool)
	}
}

func intParam(params map[string]interface{}, name string, def int) int {
	switch v := params[name].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func boolParam(params map[string]interface{}, name string, def bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return def
}

func durationParam(params map[string]interface{}, name string, def time.Duration) time.Duration {
	switch v := params[name].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int64:
		return time.Duration(v) * time.Second
	default:
		return def
	}
}
