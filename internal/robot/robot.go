// Package robot runs the observe-think-act control loop that ties the
// hardware, the LLM brain and the turn store together.
package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meebo/internal/brain"
	"meebo/internal/config"
	"meebo/internal/hardware"
	"meebo/internal/logging"
	"meebo/internal/store"
	"meebo/internal/tools"
)

// Robot owns every subsystem and drives the control loop.
type Robot struct {
	cfg      *config.Config
	sub      *hardware.Subsystems
	registry *tools.Registry
	client   *brain.Client
	runner   *brain.Runner
	store    *store.Store
}

// New assembles a robot from configuration. The turn store is optional
// and opened only when enabled.
func New(cfg *config.Config) (*Robot, error) {
	sub := hardware.NewSubsystems(cfg)
	registry := tools.DefaultRegistry()

	client := brain.NewClient(brain.ClientConfig{
		BaseURL: cfg.LLM.BaseURL(),
		Model:   cfg.LLM.Model,
		Timeout: cfg.GetLLMTimeout(),
	})

	r := &Robot{
		cfg:      cfg,
		sub:      sub,
		registry: registry,
		client:   client,
		runner:   brain.NewRunner(client, registry, hardware.NewExecutor(sub)),
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			sub.Close()
			return nil, fmt.Errorf("failed to open turn store: %w", err)
		}
		r.store = st
	}

	return r, nil
}

// Audio exposes the audio device, used by the dev console to feed the
// simulated microphone.
func (r *Robot) Audio() hardware.AudioDevice {
	return r.sub.Audio
}

// CheckServer verifies the inference server is reachable and the
// configured model is present.
func (r *Robot) CheckServer(ctx context.Context) error {
	return r.client.CheckServer(ctx)
}

// Run executes the control loop until the context is canceled or the
// configured cycle bound is reached. A failed cycle is logged and the
// loop continues; only context cancellation stops it.
func (r *Robot) Run(ctx context.Context) error {
	interval := r.cfg.GetCycleInterval()
	logging.Loop("control loop starting, interval %v, interactive=%v",
		interval, r.cfg.Robot.Interactive)

	cycle := 0
	for {
		if err := ctx.Err(); err != nil {
			return r.shutdown(ctx, err)
		}
		cycle++
		if r.cfg.Robot.MaxCycles > 0 && cycle > r.cfg.Robot.MaxCycles {
			logging.Loop("cycle bound %d reached", r.cfg.Robot.MaxCycles)
			return r.shutdown(ctx, nil)
		}

		if err := r.runCycle(ctx, cycle); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return r.shutdown(ctx, err)
			}
			logging.LoopError("cycle %d failed: %v", cycle, err)
		}

		select {
		case <-ctx.Done():
			return r.shutdown(ctx, ctx.Err())
		case <-time.After(interval):
		}
	}
}

// runCycle performs one observation/decision/action cycle.
func (r *Robot) runCycle(ctx context.Context, cycle int) error {
	snap, err := r.sub.Sensors.Read(ctx)
	if err != nil {
		return fmt.Errorf("sensor read: %w", err)
	}
	sensorData := snap.ToMap()

	cameraData, err := r.sub.Camera.Capture(ctx)
	if err != nil {
		logging.LoopWarn("cycle %d: camera unavailable: %v", cycle, err)
		cameraData = nil
	}

	var command string
	if r.cfg.Robot.Interactive && r.pollVoice(cycle) {
		command, err = r.sub.Audio.Listen(ctx, 2*time.Second)
		if err != nil {
			logging.LoopWarn("cycle %d: voice poll failed: %v", cycle, err)
		}
	}

	prompt := brain.BuildPrompt(brain.PromptInput{
		SensorData:   sensorData,
		CameraData:   cameraData,
		CustomPrompt: command,
	}, r.registry.List())

	result := r.runner.RunTurn(ctx, prompt)
	r.persist(ctx, prompt, result)

	if result.Err != nil {
		logging.LoopWarn("cycle %d: no actions this cycle: %v", cycle, result.Err)
	}
	return nil
}

// RunOnce performs a single prompted turn outside the loop, for the CLI
// once command. An empty prompt falls back to a regular autonomous cycle
// prompt built from current sensor data.
func (r *Robot) RunOnce(ctx context.Context, custom string) (brain.TurnResult, error) {
	snap, err := r.sub.Sensors.Read(ctx)
	if err != nil {
		return brain.TurnResult{}, fmt.Errorf("sensor read: %w", err)
	}

	cameraData, _ := r.sub.Camera.Capture(ctx)
	prompt := brain.BuildPrompt(brain.PromptInput{
		SensorData:   snap.ToMap(),
		CameraData:   cameraData,
		CustomPrompt: custom,
	}, r.registry.List())

	result := r.runner.RunTurn(ctx, prompt)
	r.persist(ctx, prompt, result)
	return result, result.Err
}

func (r *Robot) pollVoice(cycle int) bool {
	every := r.cfg.Robot.VoicePollEvery
	if every <= 0 {
		every = 1
	}
	return cycle%every == 0
}

// persist writes the turn to the store when one is configured.
func (r *Robot) persist(ctx context.Context, prompt string, result brain.TurnResult) {
	if r.store == nil {
		return
	}

	rec := store.TurnRecord{
		ID:       result.ID,
		Prompt:   prompt,
		Thoughts: result.Thoughts,
		RawText:  result.RawText,
	}
	if result.Err != nil {
		rec.Err = result.Err.Error()
	}
	for _, a := range result.Dispatched {
		ar := store.ActionRecord{
			Tool:   a.Action.Tool,
			Key:    a.Key,
			TookMS: a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			ar.Err = a.Err.Error()
		}
		rec.Actions = append(rec.Actions, ar)
	}

	if err := r.store.SaveTurn(ctx, rec); err != nil {
		logging.StoreError("failed to save turn %s: %v", result.ID, err)
	}
}

// shutdown stops the motors and closes subsystems; cancellation is not
// treated as an error.
func (r *Robot) shutdown(ctx context.Context, cause error) error {
	logging.Loop("control loop stopping")
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.sub.Motors.Stop(stopCtx); err != nil && !errors.Is(err, hardware.ErrNotSupported) {
		logging.MotorsDebug("stop on shutdown: %v", err)
	}
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

// Close releases hardware and the turn store.
func (r *Robot) Close() error {
	var first error
	if err := r.sub.Close(); err != nil {
		first = err
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
