// Package config loads Meebo configuration from a YAML file with
// environment-variable overrides and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Meebo configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM inference server
	LLM LLMConfig `yaml:"llm"`

	// Control loop behavior
	Robot RobotConfig `yaml:"robot"`

	// Hardware subsystems
	Motors  MotorsConfig  `yaml:"motors"`
	Sensors SensorsConfig `yaml:"sensors"`
	Audio   AudioConfig   `yaml:"audio"`
	Camera  CameraConfig  `yaml:"camera"`

	// Turn transcript store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the inference server connection.
type LLMConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// BaseURL returns the API base URL for the inference server.
func (c LLMConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d/api", c.Host, c.Port)
}

// RobotConfig configures the control loop.
type RobotConfig struct {
	// DevMode selects the simulated hardware backends.
	DevMode bool `yaml:"dev_mode"`
	// Interactive enables the voice-command polling cycle.
	Interactive bool `yaml:"interactive"`
	// CycleInterval is the pause between observation cycles.
	CycleInterval string `yaml:"cycle_interval"`
	// VoicePollEvery polls for a voice command every N cycles in
	// interactive mode.
	VoicePollEvery int `yaml:"voice_poll_every"`
	// MaxCycles bounds the loop; 0 means run until interrupted.
	MaxCycles int `yaml:"max_cycles"`
}

// MotorsConfig holds PWM/GPIO pin assignments for the physical backend.
type MotorsConfig struct {
	LeftMotor  MotorPins `yaml:"left_motor"`
	RightMotor MotorPins `yaml:"right_motor"`
}

// MotorPins maps one motor to its driver pins.
type MotorPins struct {
	PWMChannel int `yaml:"pwm_channel"`
	In1Pin     int `yaml:"in1_pin"`
	In2Pin     int `yaml:"in2_pin"`
}

// SensorsConfig holds sensor pin assignments.
type SensorsConfig struct {
	IRPins     []int `yaml:"ir_pins"`
	Ultrasonic struct {
		TrigPin int `yaml:"trig_pin"`
		EchoPin int `yaml:"echo_pin"`
	} `yaml:"ultrasonic"`
}

// AudioConfig configures audio capture/playback.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// CameraConfig configures the camera subsystem.
type CameraConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	Framerate int `yaml:"framerate"`
	Rotation  int `yaml:"rotation"`
}

// StoreConfig configures the turn transcript store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"` // debug, info, warn, error
	Dir        string          `yaml:"dir"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "meebo",
		Version: "1.0.0",

		LLM: LLMConfig{
			Host:    "localhost",
			Port:    11434,
			Model:   "qwen2:7b",
			Timeout: "30s",
		},

		Robot: RobotConfig{
			DevMode:        false,
			Interactive:    false,
			CycleInterval:  "100ms",
			VoicePollEvery: 10,
			MaxCycles:      0,
		},

		Motors: MotorsConfig{
			LeftMotor:  MotorPins{PWMChannel: 0, In1Pin: 5, In2Pin: 6},
			RightMotor: MotorPins{PWMChannel: 1, In1Pin: 13, In2Pin: 19},
		},

		Sensors: SensorsConfig{
			IRPins: []int{17, 27, 22, 23},
			Ultrasonic: struct {
				TrigPin int `yaml:"trig_pin"`
				EchoPin int `yaml:"echo_pin"`
			}{TrigPin: 24, EchoPin: 25},
		},

		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},

		Camera: CameraConfig{
			Width:     640,
			Height:    480,
			Framerate: 30,
		},

		Store: StoreConfig{
			Enabled:      true,
			DatabasePath: "data/meebo.db",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies MEEBO_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("MEEBO_LLM_HOST"); host != "" {
		c.LLM.Host = host
	}
	if port := os.Getenv("MEEBO_LLM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.LLM.Port = p
		}
	}
	if model := os.Getenv("MEEBO_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if dev := os.Getenv("MEEBO_DEV_MODE"); dev != "" {
		if b, err := strconv.ParseBool(dev); err == nil {
			c.Robot.DevMode = b
		}
	}
	if path := os.Getenv("MEEBO_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if level := os.Getenv("MEEBO_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetLLMTimeout returns the inference request timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCycleInterval returns the control loop cycle interval as a duration.
func (c *Config) GetCycleInterval() time.Duration {
	d, err := time.ParseDuration(c.Robot.CycleInterval)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}
