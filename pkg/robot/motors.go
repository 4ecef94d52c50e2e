// Package robot provides abstractions for controlling the SO-101 follower arm.
package robot

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// Raw servo range of the STS3215 encoder.
const (
	MinPosition = 0
	MaxPosition = 4095
	MidPosition = 2048
)

// AllMotors returns all motor names in order (matching servo IDs 1-6).
func AllMotors() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
		Gripper,
	}
}

// DefaultID returns the factory servo ID for a motor, or 0 if unknown.
func DefaultID(name MotorName) int {
	for i, m := range AllMotors() {
		if m == name {
			return i + 1
		}
	}
	return 0
}

// ClampPosition saturates a raw position to [MinPosition, MaxPosition].
func ClampPosition(pos int) int {
	return max(MinPosition, min(MaxPosition, pos))
}
