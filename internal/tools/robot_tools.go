package tools

// DefaultRegistry builds the builtin robot capability set. These are the
// tools advertised to the model on every turn; the executor in
// internal/hardware implements each one.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Information retrieval
	r.MustRegister(ToolSpec{
		Name:        "get_motor_status",
		Description: "Get the current status of the robot's motors",
	})
	r.MustRegister(ToolSpec{
		Name:        "check_battery",
		Description: "Check the robot's battery level",
	})

	// Movement
	speedParam := ParamSpec{
		Name:        "speed",
		Type:        TypeInteger,
		Description: "Speed from 0-100 with 100 being the fastest",
		Required:    true,
		HasBounds:   true,
		Minimum:     0,
		Maximum:     100,
	}
	r.MustRegister(ToolSpec{
		Name:        "move_forward",
		Description: "Move the robot forward at the specified speed",
		Params:      []ParamSpec{speedParam},
	})
	r.MustRegister(ToolSpec{
		Name:        "move_backward",
		Description: "Move the robot backward at the specified speed",
		Params:      []ParamSpec{speedParam},
	})
	r.MustRegister(ToolSpec{
		Name:        "turn_left",
		Description: "Turn the robot left at the specified speed",
		Params:      []ParamSpec{speedParam},
	})
	r.MustRegister(ToolSpec{
		Name:        "turn_right",
		Description: "Turn the robot right at the specified speed",
		Params:      []ParamSpec{speedParam},
	})
	r.MustRegister(ToolSpec{
		Name:        "stop",
		Description: "Stop all robot movement",
	})

	// Audio and camera
	r.MustRegister(ToolSpec{
		Name:        "speak",
		Description: "Have the robot speak the provided text",
		Params: []ParamSpec{
			{
				Name:        "text",
				Type:        TypeString,
				Description: "The text for the robot to say",
				Required:    true,
			},
			{
				Name:        "wait",
				Type:        TypeBoolean,
				Description: "Whether to wait for speech to complete before continuing (default: false)",
			},
		},
	})
	r.MustRegister(ToolSpec{
		Name:        "listen",
		Description: "Listen for a voice command with a timeout",
		Params: []ParamSpec{
			{
				Name:        "timeout",
				Type:        TypeNumber,
				Description: "Number of seconds to listen before timing out",
				HasBounds:   true,
				Minimum:     1,
				Maximum:     10,
			},
		},
	})
	r.MustRegister(ToolSpec{
		Name:        "capture_image",
		Description: "Capture an image from the robot's camera",
	})

	return r
}
