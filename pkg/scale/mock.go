package scale

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/golarder/pkg/config"
)

// Mock simulates a scale for testing and development.
//
// Every PressPeriod an item sits on the platter for the second half of the
// period and the button is held for the last PressDuration of it.
type Mock struct {
	cfg *config.MockConfig

	mu          sync.Mutex
	connected   bool
	poweredDown bool
	led         bool
	startTime   time.Time
	rng         *rand.Rand
	now         func() time.Time
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Offset:        8000,
			Load:          -27880,
			NoiseLevel:    50,
			PressPeriod:   45 * time.Second,
			PressDuration: 3 * time.Second,
		}
	}

	return &Mock{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(1, 2)),
		now: time.Now,
	}
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.poweredDown = false
	m.startTime = m.now()

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	m.led = false
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// ReadAverage returns simulated raw counts.
func (m *Mock) ReadAverage(samples int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrNotConnected
	}
	if m.poweredDown {
		return 0, ErrPoweredDown
	}
	if samples <= 0 {
		samples = 1
	}

	base := m.cfg.Offset
	if m.loaded() {
		base += m.cfg.Load
	}

	var sum float64
	for i := 0; i < samples; i++ {
		sum += base + (m.rng.Float64()*2-1)*m.cfg.NoiseLevel
	}
	return sum / float64(samples), nil
}

// PowerDown simulates the ADC sleep.
func (m *Mock) PowerDown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.poweredDown = true
	return nil
}

// PowerUp simulates the ADC wake up.
func (m *Mock) PowerUp() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.poweredDown = false
	return nil
}

// ButtonPressed reports the simulated button.
func (m *Mock) ButtonPressed() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return false, ErrNotConnected
	}
	return m.pressed(), nil
}

// SetLED records the LED state.
func (m *Mock) SetLED(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.led = on
	return nil
}

// LED returns the last LED state.
func (m *Mock) LED() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.led
}

// PoweredDown reports the simulated ADC state.
func (m *Mock) PoweredDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poweredDown
}

func (m *Mock) phase() time.Duration {
	if m.cfg.PressPeriod <= 0 {
		return 0
	}
	return m.now().Sub(m.startTime) % m.cfg.PressPeriod
}

func (m *Mock) loaded() bool {
	return m.cfg.PressPeriod > 0 && m.phase() >= m.cfg.PressPeriod/2
}

func (m *Mock) pressed() bool {
	return m.cfg.PressPeriod > 0 && m.phase() >= m.cfg.PressPeriod-m.cfg.PressDuration
}
