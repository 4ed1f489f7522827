// Package hardware defines the robot's actuator and sensor boundary and
// provides simulated and physical backends behind common interfaces.
package hardware

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned by physical backends on hosts without the
// required device support.
var ErrNotSupported = errors.New("hardware: not supported on this host")

// Direction is a drive direction for the differential motor pair.
type Direction string

const (
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
	DirLeft     Direction = "left"
	DirRight    Direction = "right"
)

// MotorStatus is a snapshot of the drive subsystem.
type MotorStatus struct {
	Moving    bool      `json:"moving"`
	Direction Direction `json:"direction,omitempty"`
	Speed     int       `json:"speed"`
}

// ToMap renders the status for prompt context and action results.
func (s MotorStatus) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"moving": s.Moving,
		"speed":  s.Speed,
	}
	if s.Direction != "" {
		m["direction"] = string(s.Direction)
	}
	return m
}

// SensorSnapshot is one reading of every onboard sensor.
type SensorSnapshot struct {
	BatteryPercent float64   `json:"battery_percent"`
	DistanceCM     float64   `json:"distance_cm"`
	IRObstacles    []bool    `json:"ir_obstacles"`
	Timestamp      time.Time `json:"timestamp"`
}

// ToMap renders the snapshot for prompt context.
func (s SensorSnapshot) ToMap() map[string]interface{} {
	obstacle := false
	for _, hit := range s.IRObstacles {
		if hit {
			obstacle = true
			break
		}
	}
	return map[string]interface{}{
		"battery_percent": s.BatteryPercent,
		"distance_cm":     s.DistanceCM,
		"obstacle":        obstacle,
	}
}

// MotorDriver controls the differential drive pair. Speed is a percent
// in [0,100].
type MotorDriver interface {
	Move(ctx context.Context, dir Direction, speed int) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (MotorStatus, error)
	Close() error
}

// SensorBank reads the battery, ultrasonic ranger and IR array.
type SensorBank interface {
	Read(ctx context.Context) (SensorSnapshot, error)
	Close() error
}

// AudioDevice speaks text and listens for speech.
type AudioDevice interface {
	// Speak voices the text. When wait is true it blocks until playback
	// finishes.
	Speak(ctx context.Context, text string, wait bool) error
	// Listen records until speech ends or the timeout elapses and
	// returns the transcription, empty when nothing was heard.
	Listen(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}

// Camera captures and describes still frames.
type Camera interface {
	// Capture grabs a frame and returns a short scene description for
	// the prompt context.
	Capture(ctx context.Context) (map[string]interface{}, error)
	Close() error
}

// Subsystems bundles every hardware backend the robot drives.
type Subsystems struct {
	Motors  MotorDriver
	Sensors SensorBank
	Audio   AudioDevice
	Camera  Camera
}

// Close shuts down every subsystem, returning the first error seen.
func (s *Subsystems) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{s.Motors, s.Sensors, s.Audio, s.Camera} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
