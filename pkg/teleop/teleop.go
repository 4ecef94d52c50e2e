// Package teleop drives the follower arm from a gamepad.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
)

// InputDevice is a polled controller.
type InputDevice interface {
	Sample() (gamepad.Snapshot, error)
	Close() error
}

// Arm is the actuator transport.
type Arm interface {
	Read(ctx context.Context, reg robot.Register, name robot.MotorName, normalize bool) (int, error)
	Write(ctx context.Context, reg robot.Register, name robot.MotorName, value int, normalize bool) error
	Disconnect() error
}

// InputOpener opens the controller.
type InputOpener func() (InputDevice, error)

// ArmConnector connects to the arm.
type ArmConnector func(ctx context.Context) (Arm, error)

// ErrAlreadyRunning is returned by Run on a controller that is running or
// has already been closed.
var ErrAlreadyRunning = errors.New("controller already running or closed")

// seedOrder is the order joints are read at startup and written each tick.
var seedOrder = []robot.MotorName{
	robot.Gripper,
	robot.WristRoll,
	robot.WristFlex,
	robot.ElbowFlex,
	robot.ShoulderLift,
	robot.ShoulderPan,
}

// Controller runs the gamepad control loop. Everything except the State and
// log channels is owned by the goroutine calling Run.
type Controller struct {
	input    InputDevice
	arm      Arm
	settings Settings

	state  *PositionState
	sink   commandSink
	toggle Toggle
	tick   uint64

	mu      sync.Mutex
	started bool

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	stateCh chan State
	logCh   chan string
}

// Dial opens the controller, connects the arm and seeds joint targets from
// the arm's present positions. Whatever was acquired is released if a later
// step fails.
func Dial(ctx context.Context, settings Settings, openInput InputOpener, connect ArmConnector) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	input, err := openInput()
	if err != nil {
		return nil, &Error{Kind: KindDeviceInit, Op: "open gamepad", Err: err}
	}

	arm, err := connect(ctx)
	if err != nil {
		input.Close()
		return nil, &Error{Kind: KindConnect, Op: "connect arm", Err: err}
	}

	c := &Controller{
		input:    input,
		arm:      arm,
		settings: settings,
		done:     make(chan struct{}),
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 32),
	}
	if err := c.seed(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Controller) seed(ctx context.Context) error {
	readings := make(map[robot.MotorName]int, len(seedOrder))
	for _, name := range seedOrder {
		pos, err := c.arm.Read(ctx, robot.PresentPosition, name, false)
		if err != nil {
			return &Error{Kind: KindTransport, Op: "read", Motor: name, Err: err}
		}
		readings[name] = pos
	}

	c.state = NewPositionState(readings)
	c.sink = commandSink{arm: c.arm, state: c.state}

	parts := make([]string, 0, len(seedOrder))
	for _, name := range seedOrder {
		parts = append(parts, fmt.Sprintf("%s %d", displayName(name), readings[name]))
	}
	c.log("Current positions: %s", strings.Join(parts, ", "))
	c.log("Gripper state: %s", c.state.Gripper())
	c.sendState(State{Positions: c.state.Positions(), Gripper: c.state.Gripper(), Input: gamepad.Rest, Timestamp: time.Now()})
	return nil
}

// Close disconnects the arm and releases the controller. Only the first call
// does any work.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()

		var errs []error
		if err := c.arm.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect arm: %w", err))
		}
		if err := c.input.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gamepad: %w", err))
		}
		c.closeErr = errors.Join(errs...)
		if c.closeErr != nil {
			c.log("Disconnect error: %v", c.closeErr)
		} else {
			c.log("Disconnected")
		}
		close(c.done)
	})
	return c.closeErr
}

// Done is closed once the controller has released its resources.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return int(time.Second / c.settings.Interval())
}

// Positions returns a copy of the current joint targets. Only safe from the
// goroutine driving the loop, or after Run returned.
func (c *Controller) Positions() map[robot.MotorName]int {
	return c.state.Positions()
}

// Gripper returns the current gripper mode. Same ownership rule as Positions.
func (c *Controller) Gripper() GripperMode {
	return c.state.Gripper()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Run executes ticks at the configured interval until the exit button is
// pressed, ctx is cancelled or a tick fails. The controller is closed before
// Run returns, on every path. The exit button returns nil.
func (c *Controller) Run(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.started = true
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindRuntime, Op: "tick", Err: fmt.Errorf("panic: %v", r)}
			c.log("Error: %v", err)
		}
		c.Close()
	}()

	c.log("Gamepad control active at %d Hz", c.Hz())

	ticker := time.NewTicker(c.settings.Interval())
	defer ticker.Stop()

	for {
		exit, err := c.Step(ctx)
		if err != nil {
			c.log("Error: %v", err)
			return err
		}
		if exit {
			return nil
		}

		select {
		case <-ctx.Done():
			c.log("Teleoperation cancelled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step runs one tick: sample, gripper toggle, stick joints, trigger pan,
// exit check. It reports whether the exit button was pressed.
func (c *Controller) Step(ctx context.Context) (bool, error) {
	snap, err := c.input.Sample()
	if err != nil {
		return false, &Error{Kind: KindInput, Op: "sample", Err: err}
	}
	c.tick++

	if err := c.stepGripper(ctx, snap.Toggle); err != nil {
		return false, err
	}

	for _, ch := range channels {
		value := ch.axis(snap)
		cur := c.state.Target(ch.motor)
		next, ok := MapAxis(cur, value, c.settings.Speed(ch.motor), ch.sign, c.settings.Deadzone)
		if !ok {
			continue
		}
		pos, err := c.sink.apply(ctx, ch.motor, next)
		if err != nil {
			return false, err
		}
		c.log("%s: %d (stick: %.2f)", displayName(ch.motor), pos, value)
	}

	if err := c.stepPan(ctx, snap); err != nil {
		return false, err
	}

	c.sendState(State{
		Tick:      c.tick,
		Positions: c.state.Positions(),
		Gripper:   c.state.Gripper(),
		Input:     snap,
		Timestamp: time.Now(),
	})

	if snap.Exit {
		c.log("Exit button pressed - exiting...")
		return true, nil
	}
	return false, nil
}

func (c *Controller) stepGripper(ctx context.Context, pressed bool) error {
	if pressed != c.toggle.Last() {
		event := "RELEASED"
		if pressed {
			event = "PRESSED"
		}
		c.log("Toggle button: %s", event)
	}
	if !c.toggle.Update(pressed) {
		return nil
	}

	mode := c.state.Gripper().Flip()
	if _, err := c.sink.apply(ctx, robot.Gripper, float64(mode.Position())); err != nil {
		return err
	}
	c.log("Gripper %s (pos: %d)", mode, mode.Position())
	return nil
}

func (c *Controller) stepPan(ctx context.Context, snap gamepad.Snapshot) error {
	thr := c.settings.TriggerThreshold
	input := FuseTriggers(snap.LeftTrigger, snap.RightTrigger, thr)

	cur := c.state.Target(robot.ShoulderPan)
	next, ok := MapAxis(cur, input, c.settings.Speed(robot.ShoulderPan), +1, thr)
	if !ok {
		return nil
	}
	pos, err := c.sink.apply(ctx, robot.ShoulderPan, next)
	if err != nil {
		return err
	}

	direction, trigger := "RIGHT", NormalizeTrigger(snap.RightTrigger)
	if input < 0 {
		direction, trigger = "LEFT", NormalizeTrigger(snap.LeftTrigger)
	}
	c.log("Shoulder pan %s: %d (trigger: %.2f)", direction, pos, trigger)
	return nil
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

// displayName turns "wrist_roll" into "Wrist roll".
func displayName(name robot.MotorName) string {
	s := strings.ReplaceAll(string(name), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
