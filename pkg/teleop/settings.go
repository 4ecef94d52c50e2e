package teleop

import (
	"fmt"
	"time"

	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
)

// Defaults for the control loop.
const (
	DefaultDeadzone         = 0.1
	DefaultTriggerThreshold = 0.1
	DefaultSpeed            = 50.0
	DefaultIntervalMs       = 10

	// MinUpdate is the largest position change that is not worth a write.
	MinUpdate = 1
)

// Settings tunes the mapping from controller input to joint targets.
type Settings struct {
	Deadzone         float64                     `json:"deadzone"`
	TriggerThreshold float64                     `json:"trigger_threshold"`
	IntervalMs       int                         `json:"interval_ms"`
	Speeds           map[robot.MotorName]float64 `json:"speeds,omitempty"`
}

// DefaultSettings returns a 0.1 deadzone and trigger threshold, a 10 ms
// tick and 50 raw units per tick at full deflection on every joint.
func DefaultSettings() Settings {
	speeds := make(map[robot.MotorName]float64)
	for _, ch := range channels {
		speeds[ch.motor] = DefaultSpeed
	}
	speeds[robot.ShoulderPan] = DefaultSpeed
	return Settings{
		Deadzone:         DefaultDeadzone,
		TriggerThreshold: DefaultTriggerThreshold,
		IntervalMs:       DefaultIntervalMs,
		Speeds:           speeds,
	}
}

// Interval returns the tick period.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// Speed returns the configured speed for a joint, or DefaultSpeed.
func (s Settings) Speed(name robot.MotorName) float64 {
	if v, ok := s.Speeds[name]; ok {
		return v
	}
	return DefaultSpeed
}

// Validate rejects settings that would break the loop's invariants.
func (s Settings) Validate() error {
	if s.Deadzone < 0 || s.Deadzone >= 1 {
		return fmt.Errorf("deadzone %.2f outside [0, 1)", s.Deadzone)
	}
	if s.TriggerThreshold < 0 || s.TriggerThreshold >= 1 {
		return fmt.Errorf("trigger threshold %.2f outside [0, 1)", s.TriggerThreshold)
	}
	if s.IntervalMs <= 0 {
		return fmt.Errorf("interval %d ms must be positive", s.IntervalMs)
	}
	for name, v := range s.Speeds {
		if robot.DefaultID(name) == 0 || name == robot.Gripper {
			return fmt.Errorf("speed set for %q, which is not a continuous joint", name)
		}
		if v <= 0 {
			return fmt.Errorf("speed for %s must be positive, got %.1f", name, v)
		}
	}
	return nil
}

// channel wires one stick axis to one joint.
type channel struct {
	motor robot.MotorName
	sign  int
	axis  func(gamepad.Snapshot) float64
}

// channels lists the stick-driven joints in write order. Wrist roll runs
// against the stick.
var channels = []channel{
	{robot.WristRoll, -1, func(s gamepad.Snapshot) float64 { return s.LeftStickX }},
	{robot.WristFlex, +1, func(s gamepad.Snapshot) float64 { return s.LeftStickY }},
	{robot.ElbowFlex, +1, func(s gamepad.Snapshot) float64 { return s.RightStickX }},
	{robot.ShoulderLift, +1, func(s gamepad.Snapshot) float64 { return s.RightStickY }},
}
