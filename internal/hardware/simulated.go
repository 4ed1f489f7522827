package hardware

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"meebo/internal/logging"
)

// NewSimulated builds a full set of simulated subsystems for dev mode.
func NewSimulated() *Subsystems {
	return &Subsystems{
		Motors:  NewSimulatedMotors(),
		Sensors: NewSimulatedSensors(),
		Audio:   NewSimulatedAudio(),
		Camera:  NewSimulatedCamera(),
	}
}

// SimulatedMotors tracks drive state in memory and logs every command.
type SimulatedMotors struct {
	mu     sync.Mutex
	status MotorStatus
}

func NewSimulatedMotors() *SimulatedMotors {
	return &SimulatedMotors{}
}

func (m *SimulatedMotors) Move(ctx context.Context, dir Direction, speed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = MotorStatus{Moving: true, Direction: dir, Speed: speed}
	logging.Motors("sim: %s at %d%%", dir, speed)
	return nil
}

func (m *SimulatedMotors) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = MotorStatus{}
	logging.Motors("sim: stop")
	return nil
}

func (m *SimulatedMotors) Status(ctx context.Context) (MotorStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *SimulatedMotors) Close() error {
	return m.Stop(context.Background())
}

// SimulatedSensors synthesizes plausible readings. The battery drains
// slowly so low-battery behavior is reachable in long dev sessions.
type SimulatedSensors struct {
	mu      sync.Mutex
	battery float64
	rng     *rand.Rand
}

func NewSimulatedSensors() *SimulatedSensors {
	return &SimulatedSensors{
		battery: 100,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimulatedSensors) Read(ctx context.Context) (SensorSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.battery -= 0.01
	if s.battery < 5 {
		s.battery = 100
	}

	ir := make([]bool, 4)
	for i := range ir {
		ir[i] = s.rng.Float64() < 0.05
	}

	snap := SensorSnapshot{
		BatteryPercent: s.battery,
		DistanceCM:     10 + s.rng.Float64()*190,
		IRObstacles:    ir,
		Timestamp:      time.Now(),
	}
	logging.SensorsDebug("sim: battery=%.1f%% distance=%.1fcm", snap.BatteryPercent, snap.DistanceCM)
	return snap, nil
}

func (s *SimulatedSensors) Close() error { return nil }

// SimulatedAudio prints speech to the log and returns canned hearing.
type SimulatedAudio struct {
	mu    sync.Mutex
	queue []string
}

func NewSimulatedAudio() *SimulatedAudio {
	return &SimulatedAudio{}
}

// QueueHeard enqueues a phrase the next Listen call will return. Used by
// tests and the interactive dev console.
func (a *SimulatedAudio) QueueHeard(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, text)
}

func (a *SimulatedAudio) Speak(ctx context.Context, text string, wait bool) error {
	logging.Audio("sim speak: %q (wait=%v)", text, wait)
	return nil
}

func (a *SimulatedAudio) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return "", nil
	}
	heard := a.queue[0]
	a.queue = a.queue[1:]
	logging.Audio("sim heard: %q", heard)
	return heard, nil
}

func (a *SimulatedAudio) Close() error { return nil }

// SimulatedCamera reports a rotating set of scene descriptions.
type SimulatedCamera struct {
	mu     sync.Mutex
	frame  int
	scenes []string
}

func NewSimulatedCamera() *SimulatedCamera {
	return &SimulatedCamera{
		scenes: []string{
			"an open room with a doorway ahead",
			"a wall roughly a meter away",
			"a cluttered floor with a chair leg to the left",
			"bright window light, clear path forward",
		},
	}
}

func (c *SimulatedCamera) Capture(ctx context.Context) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scene := c.scenes[c.frame%len(c.scenes)]
	c.frame++
	logging.CameraDebug("sim frame %d: %s", c.frame, scene)
	return map[string]interface{}{
		"frame": c.frame,
		"scene": scene,
	}, nil
}

func (c *SimulatedCamera) Close() error { return nil }
