package teleop

import (
	"math"

	"github.com/gwillem/so101-gamepad/pkg/robot"
)

// MapAxis integrates one axis reading into a joint target. Targets stay
// fractional between ticks; only the truncated value reaches the servo. It
// returns the clamped target and true only when the reading is outside the
// deadzone and the target moves more than MinUpdate from current.
func MapAxis(current, value, speed float64, sign int, deadzone float64) (float64, bool) {
	if math.Abs(value) <= deadzone {
		return current, false
	}

	target := current + float64(sign)*value*speed
	target = max(robot.MinPosition, min(robot.MaxPosition, target))

	if math.Abs(target-current) <= MinUpdate {
		return current, false
	}
	return target, true
}

// NormalizeTrigger maps a trigger reading from [-1, 1] (rest -1) to [0, 1].
func NormalizeTrigger(v float64) float64 {
	return (v + 1) / 2
}

// FuseTriggers combines two triggers into one bipolar input. The left
// trigger pulls negative and wins whenever it is past the threshold.
func FuseTriggers(left, right, threshold float64) float64 {
	nl, nr := NormalizeTrigger(left), NormalizeTrigger(right)
	switch {
	case nl > threshold:
		return -nl
	case nr > threshold:
		return nr
	}
	return 0
}

// Toggle detects rising edges of a button across samples.
type Toggle struct {
	last bool
}

// Update records the current state and reports whether it is a press that
// was not held in the previous sample.
func (t *Toggle) Update(pressed bool) bool {
	edge := pressed && !t.last
	t.last = pressed
	return edge
}

// Last returns the previously recorded button state.
func (t *Toggle) Last() bool {
	return t.last
}
