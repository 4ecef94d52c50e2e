package teleop

import (
	"time"

	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
)

// GripperMode is the binary gripper state.
type GripperMode bool

const (
	GripperClosed GripperMode = false
	GripperOpen   GripperMode = true
)

// ModeFromPosition classifies a raw gripper position.
func ModeFromPosition(raw int) GripperMode {
	return raw > robot.MidPosition
}

// Position returns the raw endpoint for the mode.
func (m GripperMode) Position() int {
	if m == GripperOpen {
		return robot.MaxPosition
	}
	return robot.MinPosition
}

// Flip returns the opposite mode.
func (m GripperMode) Flip() GripperMode {
	return !m
}

func (m GripperMode) String() string {
	if m == GripperOpen {
		return "OPEN"
	}
	return "CLOSED"
}

// PositionState holds the current target of every joint. It belongs to the
// control loop and is never shared.
type PositionState struct {
	targets map[robot.MotorName]float64
	gripper GripperMode
}

// NewPositionState seeds targets from read-back raw positions.
func NewPositionState(readings map[robot.MotorName]int) *PositionState {
	p := &PositionState{targets: make(map[robot.MotorName]float64, len(channels)+1)}
	for _, name := range robot.AllMotors() {
		p.set(name, float64(robot.ClampPosition(readings[name])))
	}
	return p
}

// Position returns a joint's current target as written to the servo. The
// gripper reports its mode endpoint.
func (p *PositionState) Position(name robot.MotorName) int {
	return int(p.Target(name))
}

// Target returns a joint's unrounded target.
func (p *PositionState) Target(name robot.MotorName) float64 {
	if name == robot.Gripper {
		return float64(p.gripper.Position())
	}
	return p.targets[name]
}

// Gripper returns the gripper mode.
func (p *PositionState) Gripper() GripperMode {
	return p.gripper
}

// Positions returns a copy of all targets.
func (p *PositionState) Positions() map[robot.MotorName]int {
	out := make(map[robot.MotorName]int, len(p.targets)+1)
	for name, target := range p.targets {
		out[name] = int(target)
	}
	out[robot.Gripper] = p.gripper.Position()
	return out
}

func (p *PositionState) set(name robot.MotorName, target float64) {
	if name == robot.Gripper {
		p.gripper = ModeFromPosition(int(target))
		return
	}
	p.targets[name] = target
}

// State is a published copy of the loop's state after a tick.
type State struct {
	Tick      uint64
	Positions map[robot.MotorName]int
	Gripper   GripperMode
	Input     gamepad.Snapshot
	Timestamp time.Time
}
