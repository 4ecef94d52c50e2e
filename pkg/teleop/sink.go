package teleop

import (
	"context"

	"github.com/gwillem/so101-gamepad/pkg/robot"
)

// commandSink writes accepted targets to the arm and records them.
type commandSink struct {
	arm   Arm
	state *PositionState
}

// apply writes the truncated target as a raw goal position, then stores the
// full target for the joint. On failure the stored target is left untouched.
// It returns the value that was written.
func (s commandSink) apply(ctx context.Context, name robot.MotorName, target float64) (int, error) {
	pos := int(target)
	if err := s.arm.Write(ctx, robot.GoalPosition, name, pos, false); err != nil {
		return 0, &Error{Kind: KindTransport, Op: "write", Motor: name, Err: err}
	}
	s.state.set(name, target)
	return pos, nil
}
