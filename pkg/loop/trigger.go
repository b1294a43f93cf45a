package loop

import (
	"fmt"

	"github.com/itohio/golarder/pkg/config"
)

// Trigger decides whether the operator asked for an upload.
type Trigger interface {
	Active(weight float64) (bool, error)
}

// Button is the input read by ButtonTrigger.
type Button interface {
	ButtonPressed() (bool, error)
}

// ButtonTrigger is active while the button is held.
type ButtonTrigger struct {
	Button Button
}

// Active reads the button; weight is ignored.
func (t ButtonTrigger) Active(float64) (bool, error) {
	return t.Button.ButtonPressed()
}

// WeightTrigger is active while the weight exceeds Threshold.
type WeightTrigger struct {
	Threshold float64
}

// Active compares weight against the threshold.
func (t WeightTrigger) Active(weight float64) (bool, error) {
	return weight > t.Threshold, nil
}

// NewTrigger creates the trigger selected by cfg.Mode.
func NewTrigger(cfg config.TriggerConfig, button Button) (Trigger, error) {
	switch cfg.Mode {
	case config.TriggerButton, "":
		if button == nil {
			return nil, fmt.Errorf("button trigger needs a button input")
		}
		return ButtonTrigger{Button: button}, nil
	case config.TriggerWeight:
		return WeightTrigger{Threshold: cfg.WeightThreshold}, nil
	}
	return nil, fmt.Errorf("unknown trigger mode %q", cfg.Mode)
}

var (
	_ Trigger = ButtonTrigger{}
	_ Trigger = WeightTrigger{}
)
