package scale

import (
	"fmt"
	"strconv"
	"strings"
)

// ReplyKind identifies a firmware reply line.
type ReplyKind int

const (
	ReplyOK ReplyKind = iota
	ReplyRead
	ReplyButton
	ReplyError
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyOK:
		return "OK"
	case ReplyRead:
		return "R"
	case ReplyButton:
		return "B"
	case ReplyError:
		return "E"
	}
	return fmt.Sprintf("ReplyKind(%d)", int(k))
}

// Reply represents a parsed line from the scale MCU.
type Reply struct {
	Kind   ReplyKind
	Value  int64  // Averaged raw reading for ReplyRead, level for ReplyButton
	Reason string // Set for ReplyError
}

// readCommand asks the firmware for the average of samples conversions.
func readCommand(samples int) string { return "R" + strconv.Itoa(samples) }

const (
	buttonCommand    = "B"
	powerDownCommand = "D"
	powerUpCommand   = "U"
)

func ledCommand(on bool) string {
	if on {
		return "L1"
	}
	return "L0"
}

// expectedReply returns the reply kind that answers cmd.
func expectedReply(cmd string) ReplyKind {
	switch {
	case strings.HasPrefix(cmd, "R"):
		return ReplyRead
	case cmd == buttonCommand:
		return ReplyButton
	}
	return ReplyOK
}

// parseReply parses a line from the MCU into a Reply.
// Format: OK | R,<int> | B,<0|1> | E,<reason>
// Example: R,-8421
func parseReply(line string) (Reply, error) {
	if line == "OK" {
		return Reply{Kind: ReplyOK}, nil
	}

	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return Reply{}, fmt.Errorf("invalid reply format: %q", line)
	}

	switch parts[0] {
	case "R":
		v, err := strconv.ParseInt(parts[1], 10, 32)
		if err != nil {
			return Reply{}, fmt.Errorf("invalid reading: %w", err)
		}
		return Reply{Kind: ReplyRead, Value: v}, nil
	case "B":
		switch parts[1] {
		case "0":
			return Reply{Kind: ReplyButton, Value: 0}, nil
		case "1":
			return Reply{Kind: ReplyButton, Value: 1}, nil
		}
		return Reply{}, fmt.Errorf("invalid button level: %q", parts[1])
	case "E":
		return Reply{Kind: ReplyError, Reason: parts[1]}, nil
	}

	return Reply{}, fmt.Errorf("unknown reply %q", parts[0])
}
