//go:build tinygo

package main

import (
	"machine"
	"time"
)

// hx711 bit-bangs a 24-bit HX711 on channel A with gain 128.
type hx711 struct {
	dout machine.Pin
	sck  machine.Pin
}

func (h *hx711) configure() {
	h.dout.Configure(machine.PinConfig{Mode: machine.PinInput})
	h.sck.Configure(machine.PinConfig{Mode: machine.PinOutput})
	h.sck.Low()
}

// ready reports whether a conversion is waiting; DOUT goes low when it is.
func (h *hx711) ready() bool {
	return !h.dout.Get()
}

// read waits up to timeout for a conversion and shifts it out.
func (h *hx711) read(timeout time.Duration) (int32, bool) {
	deadline := time.Now().Add(timeout)
	for !h.ready() {
		if time.Now().After(deadline) {
			return 0, false
		}
		time.Sleep(time.Millisecond)
	}

	var v uint32
	for i := 0; i < 24; i++ {
		h.sck.High()
		time.Sleep(time.Microsecond)
		v <<= 1
		if h.dout.Get() {
			v |= 1
		}
		h.sck.Low()
		time.Sleep(time.Microsecond)
	}

	// 25th pulse selects channel A, gain 128 for the next conversion
	h.sck.High()
	time.Sleep(time.Microsecond)
	h.sck.Low()

	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v), true
}

// average returns the mean of n conversions.
func (h *hx711) average(n int, timeout time.Duration) (int32, bool) {
	var sum int64
	for i := 0; i < n; i++ {
		v, ok := h.read(timeout)
		if !ok {
			return 0, false
		}
		sum += int64(v)
	}
	return int32(sum / int64(n)), true
}

func (h *hx711) powerDown() {
	h.sck.Low()
	h.sck.High()
	time.Sleep(POWER_DOWN_HOLD)
}

func (h *hx711) powerUp() {
	h.sck.Low()
}
