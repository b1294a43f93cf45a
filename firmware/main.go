//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	serial = machine.Serial
	scale  = hx711{dout: PIN_HX711_DOUT, sck: PIN_HX711_SCK}

	poweredDown bool

	// Serial buffer for reading lines
	serialBuffer [8]byte
	serialPos    int
	overflow     bool
)

func main() {
	serial.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	scale.configure()
	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Boot flash
	PIN_LED.High()
	time.Sleep(FLASH_PERIOD)
	PIN_LED.Low()

	print("OK\n")

	for {
		processSerial()
		time.Sleep(100 * time.Microsecond)
	}
}

func processSerial() {
	for serial.Buffered() > 0 {
		data, err := serial.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if overflow {
				replyError("line too long")
			} else if serialPos > 0 {
				handleCommand(serialBuffer[:serialPos])
			}
			serialPos = 0
			overflow = false
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			overflow = true
		}
	}
}

func handleCommand(cmd []byte) {
	switch cmd[0] {
	case 'R':
		n, ok := parseCount(cmd[1:])
		if !ok {
			replyError("bad count")
			return
		}
		if poweredDown {
			replyError("powered down")
			return
		}
		v, ok := scale.average(n, READ_TIMEOUT)
		if !ok {
			replyError("timeout")
			return
		}
		print("R,")
		print(v)
		print("\n")
		return
	case 'B':
		if len(cmd) != 1 {
			break
		}
		// Active low
		if PIN_BUTTON.Get() {
			print("B,0\n")
		} else {
			print("B,1\n")
		}
		return
	case 'D':
		if len(cmd) != 1 {
			break
		}
		scale.powerDown()
		poweredDown = true
		print("OK\n")
		return
	case 'U':
		if len(cmd) != 1 {
			break
		}
		scale.powerUp()
		poweredDown = false
		print("OK\n")
		return
	case 'L':
		if len(cmd) != 2 || (cmd[1] != '0' && cmd[1] != '1') {
			break
		}
		PIN_LED.Set(cmd[1] == '1')
		print("OK\n")
		return
	}

	replyError("unknown command")
}

// parseCount parses the sample count of a read command. An empty count means one sample.
func parseCount(digits []byte) (int, bool) {
	if len(digits) == 0 {
		return 1, true
	}
	n := 0
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, false
		}
		n = n*10 + int(d-'0')
		if n > MAX_SAMPLES {
			return 0, false
		}
	}
	if n == 0 {
		n = 1
	}
	return n, true
}

func replyError(reason string) {
	print("E,")
	print(reason)
	print("\n")
}
