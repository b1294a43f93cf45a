package scale

import (
	"fmt"
	"sync"
	"time"

	"github.com/itohio/golarder/pkg/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/hx711"
	"periph.io/x/host/v3"
)

// powerDownHold is how long SCK must stay high before the HX711 enters power down.
const powerDownHold = 100 * time.Microsecond

// GPIO drives an HX711 and the trigger button wired straight to host pins
// (e.g. a Raspberry Pi header).
type GPIO struct {
	cfg config.GPIOConfig

	mu        sync.Mutex
	clk       gpio.PinIO
	data      gpio.PinIO
	button    gpio.PinIO
	led       gpio.PinIO // optional
	adc       *hx711.Dev
	connected bool
}

// NewGPIO creates a new GPIO device using the configured pin names.
func NewGPIO(cfg config.GPIOConfig) *GPIO {
	return &GPIO{cfg: cfg}
}

// Connect initializes the host drivers and claims the pins.
func (g *GPIO) Connect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		return fmt.Errorf("already connected")
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	var err error
	if g.clk, err = lookupPin(g.cfg.ClockPin); err != nil {
		return err
	}
	if g.data, err = lookupPin(g.cfg.DataPin); err != nil {
		return err
	}
	if g.button, err = lookupPin(g.cfg.ButtonPin); err != nil {
		return err
	}
	if g.cfg.LEDPin != "" {
		if g.led, err = lookupPin(g.cfg.LEDPin); err != nil {
			return err
		}
		if err := g.led.Out(gpio.Low); err != nil {
			return fmt.Errorf("failed to configure LED pin: %w", err)
		}
	}

	if err := g.button.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("failed to configure button pin: %w", err)
	}

	adc, err := hx711.New(g.clk, g.data)
	if err != nil {
		return fmt.Errorf("failed to initialize hx711: %w", err)
	}
	g.adc = adc
	g.connected = true

	return nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("pin name is empty")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

// Close powers the ADC down and releases the device.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil
	}

	g.connected = false
	if g.led != nil {
		_ = g.led.Out(gpio.Low)
	}
	if err := g.clk.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to power down hx711: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (g *GPIO) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// ReadAverage reads samples conversions and returns their mean.
func (g *GPIO) ReadAverage(samples int) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return 0, ErrNotConnected
	}
	if samples <= 0 {
		samples = 1
	}

	var sum float64
	for i := 0; i < samples; i++ {
		v, err := g.adc.ReadTimeout(g.cfg.ReadTimeout)
		if err != nil {
			return 0, fmt.Errorf("hx711 read %d/%d: %w", i+1, samples, err)
		}
		sum += float64(v)
	}
	return sum / float64(samples), nil
}

// PowerDown holds SCK high, which puts the HX711 to sleep.
func (g *GPIO) PowerDown() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return ErrNotConnected
	}
	if err := g.clk.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to power down hx711: %w", err)
	}
	time.Sleep(powerDownHold)
	return nil
}

// PowerUp releases SCK; the HX711 resets and resumes conversions.
func (g *GPIO) PowerUp() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return ErrNotConnected
	}
	if err := g.clk.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to power up hx711: %w", err)
	}
	return nil
}

// ButtonPressed reads the active-low trigger input.
func (g *GPIO) ButtonPressed() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return false, ErrNotConnected
	}
	return g.button.Read() == gpio.Low, nil
}

// SetLED switches the status LED if one is configured.
func (g *GPIO) SetLED(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return ErrNotConnected
	}
	if g.led == nil {
		return nil
	}
	return g.led.Out(gpio.Level(on))
}
