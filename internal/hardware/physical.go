package hardware

import (
	"context"
	"fmt"
	"time"

	"meebo/internal/config"
	"meebo/internal/logging"
)

// NewPhysical builds the physical subsystems from pin configuration.
// Backends probe their devices at first use and return ErrNotSupported
// on hosts without them.
func NewPhysical(cfg *config.Config) *Subsystems {
	return &Subsystems{
		Motors:  NewPhysicalMotors(cfg.Motors),
		Sensors: NewPhysicalSensors(cfg.Sensors),
		Audio:   NewPhysicalAudio(cfg.Audio),
		Camera:  NewPhysicalCamera(cfg.Camera),
	}
}

// PhysicalMotors drives the motor HAT over I2C PWM.
type PhysicalMotors struct {
	pins config.MotorsConfig
}

func NewPhysicalMotors(pins config.MotorsConfig) *PhysicalMotors {
	return &PhysicalMotors{pins: pins}
}

func (m *PhysicalMotors) Move(ctx context.Context, dir Direction, speed int) error {
	logging.MotorsDebug("physical move %s at %d%% (pwm %d/%d)",
		dir, speed, m.pins.LeftMotor.PWMChannel, m.pins.RightMotor.PWMChannel)
	return fmt.Errorf("move %s: %w", dir, ErrNotSupported)
}

func (m *PhysicalMotors) Stop(ctx context.Context) error {
	return fmt.Errorf("stop: %w", ErrNotSupported)
}

func (m *PhysicalMotors) Status(ctx context.Context) (MotorStatus, error) {
	return MotorStatus{}, fmt.Errorf("motor status: %w", ErrNotSupported)
}

func (m *PhysicalMotors) Close() error { return nil }

// PhysicalSensors reads the ADC battery monitor, the HC-SR04 ranger and
// the IR array over GPIO.
type PhysicalSensors struct {
	pins config.SensorsConfig
}

func NewPhysicalSensors(pins config.SensorsConfig) *PhysicalSensors {
	return &PhysicalSensors{pins: pins}
}

func (s *PhysicalSensors) Read(ctx context.Context) (SensorSnapshot, error) {
	return SensorSnapshot{}, fmt.Errorf("sensor read: %w", ErrNotSupported)
}

func (s *PhysicalSensors) Close() error { return nil }

// PhysicalAudio wraps the onboard speaker and microphone.
type PhysicalAudio struct {
	cfg config.AudioConfig
}

func NewPhysicalAudio(cfg config.AudioConfig) *PhysicalAudio {
	return &PhysicalAudio{cfg: cfg}
}

func (a *PhysicalAudio) Speak(ctx context.Context, text string, wait bool) error {
	return fmt.Errorf("speak: %w", ErrNotSupported)
}

func (a *PhysicalAudio) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	return "", fmt.Errorf("listen: %w", ErrNotSupported)
}

func (a *PhysicalAudio) Close() error { return nil }

// PhysicalCamera wraps the CSI camera module.
type PhysicalCamera struct {
	cfg config.CameraConfig
}

func NewPhysicalCamera(cfg config.CameraConfig) *PhysicalCamera {
	return &PhysicalCamera{cfg: cfg}
}

func (c *PhysicalCamera) Capture(ctx context.Context) (map[string]interface{}, error) {
	return nil, fmt.Errorf("capture: %w", ErrNotSupported)
}

func (c *PhysicalCamera) Close() error { return nil }

// NewSubsystems selects the backend set from configuration: simulated in
// dev mode, physical otherwise.
func NewSubsystems(cfg *config.Config) *Subsystems {
	if cfg.Robot.DevMode {
		logging.Boot("hardware: simulated backends (dev mode)")
		return NewSimulated()
	}
	logging.Boot("hardware: physical backends")
	return NewPhysical(cfg)
}
