package gamepad

import (
	"fmt"

	"github.com/0xcafed00d/joystick"
)

// Snapshot is one sample of the controls used for teleoperation. Stick axes
// are in [-1, 1]; triggers rest at -1 and read +1 fully pressed.
type Snapshot struct {
	Toggle bool
	Exit   bool

	LeftStickX   float64
	LeftStickY   float64
	RightStickY  float64
	RightStickX  float64
	LeftTrigger  float64
	RightTrigger float64
}

// Rest is the snapshot of an untouched controller.
var Rest = Snapshot{LeftTrigger: -1, RightTrigger: -1}

func (s Snapshot) String() string {
	return fmt.Sprintf("LS[%+.2f %+.2f] RS[%+.2f %+.2f] LT %+.2f RT %+.2f toggle=%t exit=%t",
		s.LeftStickX, s.LeftStickY, s.RightStickX, s.RightStickY,
		s.LeftTrigger, s.RightTrigger, s.Toggle, s.Exit)
}

// axisScale is the magnitude joystick drivers report at full deflection.
const axisScale = 32767.0

// NormalizeAxis converts a raw driver axis count to [-1, 1].
func NormalizeAxis(raw int) float64 {
	return max(-1, min(1, float64(raw)/axisScale))
}

// snapshotFrom maps a raw joystick state through a layout. Axes missing from
// the state read as rest.
func snapshotFrom(st joystick.State, l Layout) Snapshot {
	axis := func(idx, rest int) float64 {
		if idx < 0 || idx >= len(st.AxisData) {
			return NormalizeAxis(rest)
		}
		return NormalizeAxis(st.AxisData[idx])
	}
	button := func(idx int) bool {
		return idx >= 0 && idx < maxButtons && st.Buttons&(1<<uint(idx)) != 0
	}

	return Snapshot{
		Toggle:       button(l.ToggleButton),
		Exit:         button(l.ExitButton),
		LeftStickX:   axis(l.LeftStickX, 0),
		LeftStickY:   axis(l.LeftStickY, 0),
		RightStickY:  axis(l.RightStickY, 0),
		RightStickX:  axis(l.RightStickX, 0),
		LeftTrigger:  axis(l.LeftTrigger, -axisScale),
		RightTrigger: axis(l.RightTrigger, -axisScale),
	}
}
