//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// HX711 pins
	PIN_HX711_DOUT = machine.D1
	PIN_HX711_SCK  = machine.D2

	// Operator button, active low with the internal pull-up
	PIN_BUTTON = machine.D3

	// Status LED
	PIN_LED = machine.LED

	// Serial configuration
	// Longest reply is "R,-8388608\n" (11 bytes); commands are at most 5 bytes.
	UART_BAUD_RATE = 115200

	// Sampling configuration
	MAX_SAMPLES     = 100 // Upper bound of n in "R<n>"
	READ_TIMEOUT    = time.Second
	POWER_DOWN_HOLD = 80 * time.Microsecond // SCK high for more than 60us powers the HX711 down
	FLASH_PERIOD    = 250 * time.Millisecond
)
