package gamepad

import "fmt"

// Layout maps controller indices onto the controls used for teleoperation.
// The defaults match an Xbox-style pad in XInput mode.
type Layout struct {
	ToggleButton int `json:"toggle_button"`
	ExitButton   int `json:"exit_button"`

	LeftStickX   int `json:"left_stick_x"`
	LeftStickY   int `json:"left_stick_y"`
	RightStickY  int `json:"right_stick_y"`
	RightStickX  int `json:"right_stick_x"`
	LeftTrigger  int `json:"left_trigger"`
	RightTrigger int `json:"right_trigger"`
}

// DefaultLayout returns the stock mapping: A toggles, B exits, axes 0-5 are
// LSX, LSY, RSY, RSX, LT, RT.
func DefaultLayout() Layout {
	return Layout{
		ToggleButton: 0,
		ExitButton:   1,
		LeftStickX:   0,
		LeftStickY:   1,
		RightStickY:  2,
		RightStickX:  3,
		LeftTrigger:  4,
		RightTrigger: 5,
	}
}

// maxButtons is the width of the joystick button bitmask.
const (
	maxButtons = 32
	maxAxes    = 64
)

// Check validates the layout without a device at hand.
func (l Layout) Check() error {
	return l.Validate(maxAxes, maxButtons)
}

// Validate checks indices against a device's axis and button counts.
func (l Layout) Validate(axes, buttons int) error {
	buttons = min(buttons, maxButtons)
	for name, idx := range map[string]int{"toggle_button": l.ToggleButton, "exit_button": l.ExitButton} {
		if idx < 0 || idx >= buttons {
			return fmt.Errorf("%s index %d outside 0..%d", name, idx, buttons-1)
		}
	}
	if l.ToggleButton == l.ExitButton {
		return fmt.Errorf("toggle and exit share button %d", l.ToggleButton)
	}

	for name, idx := range l.axes() {
		if idx < 0 || idx >= axes {
			return fmt.Errorf("%s index %d outside 0..%d", name, idx, axes-1)
		}
	}
	return nil
}

func (l Layout) axes() map[string]int {
	return map[string]int{
		"left_stick_x":  l.LeftStickX,
		"left_stick_y":  l.LeftStickY,
		"right_stick_y": l.RightStickY,
		"right_stick_x": l.RightStickX,
		"left_trigger":  l.LeftTrigger,
		"right_trigger": l.RightTrigger,
	}
}
