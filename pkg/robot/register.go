package robot

import "errors"

// Register names a servo control-table entry addressable through Arm.Read
// and Arm.Write. Names follow the LeRobot motor bus naming.
type Register string

const (
	PresentPosition Register = "Present_Position"
	GoalPosition    Register = "Goal_Position"
	TorqueEnable    Register = "Torque_Enable"
)

// ErrUnsupportedRegister is returned for registers the arm cannot read or write.
var ErrUnsupportedRegister = errors.New("unsupported register")

func (r Register) readable() bool {
	return r == PresentPosition
}

func (r Register) writable() bool {
	return r == GoalPosition || r == TorqueEnable
}
