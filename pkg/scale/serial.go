package scale

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the scale firmware.
	DefaultBaudRate = 115200
	// DefaultTimeout is the reply timeout added to every command.
	DefaultTimeout = 2 * time.Second

	// sampleTime is one HX711 conversion at the 10 SPS rate.
	sampleTime = 100 * time.Millisecond
	// pollInterval bounds a single blocking port read.
	pollInterval = 50 * time.Millisecond
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Serial represents a connection to the scale MCU running the larder firmware.
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration

	mu        sync.Mutex
	conn      io.ReadWriteCloser
	pending   []byte
	connected bool
}

// NewSerial creates a new Serial instance with the specified port, baud rate and reply timeout.
func NewSerial(port string, baudRate int, timeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		timeout:  timeout,
	}
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	if err := port.SetReadTimeout(pollInterval); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", d.port, err)
	}
	// Drop whatever the firmware printed before we attached.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return fmt.Errorf("failed to reset input buffer on %s: %w", d.port, err)
	}

	d.attach(port)
	return nil
}

// attach binds an already opened stream.
func (d *Serial) attach(conn io.ReadWriteCloser) {
	d.conn = conn
	d.pending = d.pending[:0]
	d.connected = true
}

// Close closes the connection.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.connected = false
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", d.port, err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// ReadAverage asks the firmware for the mean of samples raw conversions.
func (d *Serial) ReadAverage(samples int) (float64, error) {
	if samples <= 0 {
		samples = 1
	}
	reply, err := d.command(readCommand(samples), time.Duration(samples)*sampleTime)
	if err != nil {
		return 0, err
	}
	return float64(reply.Value), nil
}

// PowerDown puts the HX711 into power-down mode.
func (d *Serial) PowerDown() error {
	_, err := d.command(powerDownCommand, 0)
	return err
}

// PowerUp wakes the HX711.
func (d *Serial) PowerUp() error {
	_, err := d.command(powerUpCommand, 0)
	return err
}

// ButtonPressed reports whether the trigger button is held.
func (d *Serial) ButtonPressed() (bool, error) {
	reply, err := d.command(buttonCommand, 0)
	if err != nil {
		return false, err
	}
	return reply.Value == 1, nil
}

// SetLED switches the status LED.
func (d *Serial) SetLED(on bool) error {
	_, err := d.command(ledCommand(on), 0)
	return err
}

// command sends cmd and waits for its reply. Lines that do not answer cmd are skipped.
func (d *Serial) command(cmd string, extra time.Duration) (Reply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return Reply{}, ErrNotConnected
	}

	if _, err := d.conn.Write([]byte(cmd + "\n")); err != nil {
		return Reply{}, fmt.Errorf("failed to send command %q: %w", cmd, err)
	}

	want := expectedReply(cmd)
	deadline := time.Now().Add(d.timeout + extra)
	for {
		line, err := d.readLine(deadline)
		if err != nil {
			return Reply{}, fmt.Errorf("command %q: %w", cmd, err)
		}

		reply, err := parseReply(line)
		if err != nil {
			continue
		}
		switch {
		case reply.Kind == ReplyError:
			return Reply{}, &DeviceError{Reason: reply.Reason}
		case reply.Kind == want:
			return reply, nil
		}
	}
}

// readLine returns the next non-empty line, waiting until deadline.
func (d *Serial) readLine(deadline time.Time) (string, error) {
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(d.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(d.pending[:i]))
			d.pending = append(d.pending[:0], d.pending[i+1:]...)
			if line == "" {
				continue
			}
			return line, nil
		}

		if time.Now().After(deadline) {
			return "", ErrTimeout
		}

		n, err := d.conn.Read(buf)
		if n > 0 {
			d.pending = append(d.pending, buf[:n]...)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read from serial port: %w", err)
		}
	}
}
