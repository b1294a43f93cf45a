package scale

// Device defines the interface for load cell front ends (real or mocked).
type Device interface {
	Connect() error
	Close() error
	IsConnected() bool
	// ReadAverage returns the mean of samples raw ADC conversions.
	ReadAverage(samples int) (float64, error)
	// PowerDown puts the ADC into its low-power state; it must be powered up before the next read.
	PowerDown() error
	PowerUp() error
	// ButtonPressed reports the trigger input; the input is active-low on every backend.
	ButtonPressed() (bool, error)
	SetLED(on bool) error
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure GPIO implements Device.
var _ Device = (*GPIO)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
