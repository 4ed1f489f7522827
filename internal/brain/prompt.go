package brain

import (
	"fmt"
	"sort"
	"strings"

	"meebo/internal/tools"
)

// PromptInput carries the per-cycle context woven into the prompt.
type PromptInput struct {
	SensorData map[string]interface{}
	CameraData map[string]interface{}
	// CustomPrompt replaces the default autonomous directive when set,
	// e.g. a transcribed voice command in interactive mode.
	CustomPrompt string
}

const systemPreamble = `You are Meebo, a small autonomous mobile robot. You perceive the world
through your sensors and camera, and you act through a fixed set of tools.

Respond using EXACTLY this format:

ACTIONS:
tool_name(param=value)
another_tool()
THOUGHTS:
Brief reasoning about what you observed and why you chose these actions.

Rules:
- One action per line, directly under ACTIONS:, nothing else on the line.
- Parameters are name=value pairs separated by commas. Strings may be quoted.
- If no action is needed, leave the ACTIONS: section empty.
- Never invent tools that are not listed below.`

// BuildPrompt assembles the full turn prompt: the system preamble, the
// capability listing derived from the registry, the current sensor and
// camera context, and the cycle directive.
func BuildPrompt(in PromptInput, specs []tools.ToolSpec) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\nAvailable tools:\n")
	for _, spec := range specs {
		b.WriteString(formatToolLine(spec))
		b.WriteByte('\n')
	}

	if len(in.SensorData) > 0 {
		b.WriteString("\nCurrent sensor readings:\n")
		writeContextMap(&b, in.SensorData)
	}
	if len(in.CameraData) > 0 {
		b.WriteString("\nCamera observation:\n")
		writeContextMap(&b, in.CameraData)
	}

	b.WriteString("\n")
	if in.CustomPrompt != "" {
		b.WriteString("The human said: ")
		b.WriteString(strings.TrimSpace(in.CustomPrompt))
		b.WriteString("\nRespond to the human's request with your actions and thoughts.")
	} else {
		b.WriteString("Decide what to do this cycle. Explore, avoid obstacles, and conserve battery when it is low.")
	}
	return b.String()
}

// BuildVoicePrompt builds the prompt for a transcribed voice command.
func BuildVoicePrompt(command string, sensors map[string]interface{}, specs []tools.ToolSpec) string {
	return BuildPrompt(PromptInput{SensorData: sensors, CustomPrompt: command}, specs)
}

func formatToolLine(spec tools.ToolSpec) string {
	var params []string
	for _, p := range spec.Params {
		desc := fmt.Sprintf("%s: %s", p.Name, p.Type)
		if p.HasBounds {
			desc += fmt.Sprintf(" [%g-%g]", p.Minimum, p.Maximum)
		}
		if !p.Required {
			desc += " (optional)"
		}
		params = append(params, desc)
	}
	sig := spec.Name + "(" + strings.Join(params, ", ") + ")"
	return fmt.Sprintf("- %s -- %s", sig, spec.Description)
}

func writeContextMap(b *strings.Builder, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %v\n", k, m[k])
	}
}
