// Package so101gamepad drives an SO-101 follower arm from a game controller.
//
// Sticks move four joints incrementally, the triggers pan the shoulder and
// the A button toggles the gripper between fully open and fully closed.
// Targets stay within the raw servo range and only meaningful changes are
// written to the bus.
//
// # Installation
//
//	go install github.com/gwillem/so101-gamepad/cmd/so101-gamepad@latest
//
// # Usage
//
// Find the arm and gamepad once:
//
//	so101-gamepad setup
//
// Then start teleoperation (also the default without a command):
//
//	so101-gamepad teleoperate
//
// # Packages
//
//   - cmd/so101-gamepad: CLI with setup, teleoperate and info commands
//   - pkg/robot: Arm transport, calibration and port scanning
//   - pkg/gamepad: Controller sampling and axis layout
//   - pkg/teleop: Mapping functions and the control loop
//   - pkg/config: Configuration file
package so101gamepad
