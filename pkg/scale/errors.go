package scale

import "errors"

var (
	// ErrNotConnected is returned by device operations before Connect or after Close.
	ErrNotConnected = errors.New("not connected")
	// ErrTimeout is returned when the device does not answer in time.
	ErrTimeout = errors.New("device timeout")
	// ErrPoweredDown is returned when reading an ADC that was not powered up again.
	ErrPoweredDown = errors.New("adc is powered down")
	// ErrNotCalibrated is returned by Units when the calibration factor is zero.
	ErrNotCalibrated = errors.New("scale factor is zero")
)

// DeviceError carries a failure reported by the scale firmware.
type DeviceError struct {
	Reason string
}

func (e *DeviceError) Error() string {
	return "device error: " + e.Reason
}
