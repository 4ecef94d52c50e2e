package teleop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
)

type write struct {
	motor robot.MotorName
	value int
}

type fakeArm struct {
	present     map[robot.MotorName]int
	readErr     error
	writes      []write
	failWriteAt int // 1-based index of the write that fails, 0 never
	disconnects int
}

func (a *fakeArm) Read(_ context.Context, reg robot.Register, name robot.MotorName, normalize bool) (int, error) {
	if reg != robot.PresentPosition || normalize {
		return 0, robot.ErrUnsupportedRegister
	}
	if a.readErr != nil {
		return 0, a.readErr
	}
	return a.present[name], nil
}

func (a *fakeArm) Write(_ context.Context, reg robot.Register, name robot.MotorName, value int, normalize bool) error {
	if reg != robot.GoalPosition || normalize {
		return robot.ErrUnsupportedRegister
	}
	if a.failWriteAt != 0 && len(a.writes)+1 == a.failWriteAt {
		return errors.New("bus timeout")
	}
	a.writes = append(a.writes, write{name, value})
	return nil
}

func (a *fakeArm) Disconnect() error {
	a.disconnects++
	return nil
}

// fakePad replays snapshots, repeating the last one.
type fakePad struct {
	snaps   []gamepad.Snapshot
	i       int
	err     error
	closes  int
	panicAt int
}

func (p *fakePad) Sample() (gamepad.Snapshot, error) {
	if p.err != nil {
		return gamepad.Snapshot{}, p.err
	}
	p.i++
	if p.panicAt != 0 && p.i == p.panicAt {
		panic("index out of range")
	}
	if len(p.snaps) == 0 {
		return gamepad.Rest, nil
	}
	return p.snaps[min(p.i, len(p.snaps))-1], nil
}

func (p *fakePad) Close() error {
	p.closes++
	return nil
}

func centered() map[robot.MotorName]int {
	return map[robot.MotorName]int{
		robot.Gripper:      0,
		robot.WristRoll:    2000,
		robot.WristFlex:    2000,
		robot.ElbowFlex:    2000,
		robot.ShoulderLift: 2000,
		robot.ShoulderPan:  2000,
	}
}

func dial(t *testing.T, arm *fakeArm, pad *fakePad) *Controller {
	t.Helper()
	settings := DefaultSettings()
	settings.IntervalMs = 1
	c, err := Dial(context.Background(), settings,
		func() (InputDevice, error) { return pad, nil },
		func(context.Context) (Arm, error) { return arm, nil },
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c
}

func rest() gamepad.Snapshot { return gamepad.Rest }

func TestDial_SeedsGripperMode(t *testing.T) {
	tests := []struct {
		raw  int
		want GripperMode
	}{
		{2100, GripperOpen},
		{1900, GripperClosed},
	}
	for _, tt := range tests {
		present := centered()
		present[robot.Gripper] = tt.raw
		c := dial(t, &fakeArm{present: present}, &fakePad{})
		if got := c.Gripper(); got != tt.want {
			t.Errorf("gripper read %d: mode = %s, want %s", tt.raw, got, tt.want)
		}
		if got := c.Positions()[robot.WristRoll]; got != 2000 {
			t.Errorf("seeded wrist_roll = %d, want 2000", got)
		}
	}
}

func TestDial_ClampsSeededPositions(t *testing.T) {
	present := centered()
	present[robot.ShoulderLift] = 4300
	present[robot.ElbowFlex] = -20
	arm := &fakeArm{present: present}
	c := dial(t, arm, &fakePad{})

	if got := c.Positions()[robot.ShoulderLift]; got != 4095 {
		t.Errorf("seeded shoulder_lift = %d, want 4095", got)
	}
	if got := c.Positions()[robot.ElbowFlex]; got != 0 {
		t.Errorf("seeded elbow_flex = %d, want 0", got)
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(arm.writes) != 0 {
		t.Errorf("writes = %v, want none on a rest tick", arm.writes)
	}
}

func TestStep_RestProducesNoWrites(t *testing.T) {
	arm := &fakeArm{present: centered()}
	snap := rest()
	snap.LeftStickX, snap.RightStickY = 0.02, -0.1
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	for i := 0; i < 20; i++ {
		if _, err := c.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if len(arm.writes) != 0 {
		t.Errorf("writes = %v, want none inside deadzone", arm.writes)
	}
}

func TestStep_WristRollInverted(t *testing.T) {
	arm := &fakeArm{present: centered()}
	snap := rest()
	snap.LeftStickX = 0.5
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := []write{{robot.WristRoll, 1975}}
	if !equalWrites(arm.writes, want) {
		t.Errorf("writes = %v, want %v", arm.writes, want)
	}
	if got := c.Positions()[robot.WristRoll]; got != 1975 {
		t.Errorf("wrist_roll target = %d, want 1975", got)
	}
}

func TestStep_FractionalStickCarriesOver(t *testing.T) {
	arm := &fakeArm{present: centered()}
	snap := rest()
	snap.LeftStickY = 0.33
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	for i := 0; i < 4; i++ {
		if _, err := c.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	want := []write{
		{robot.WristFlex, 2016},
		{robot.WristFlex, 2033},
		{robot.WristFlex, 2049},
		{robot.WristFlex, 2066},
	}
	if !equalWrites(arm.writes, want) {
		t.Errorf("writes = %v, want %v", arm.writes, want)
	}
	if got := c.Positions()[robot.WristFlex]; got != 2066 {
		t.Errorf("wrist_flex target = %d, want 2066", got)
	}
}

func TestStep_WriteOrder(t *testing.T) {
	arm := &fakeArm{present: centered()}
	snap := gamepad.Snapshot{
		Toggle:       true,
		LeftStickX:   1,
		LeftStickY:   1,
		RightStickX:  1,
		RightStickY:  1,
		LeftTrigger:  -1,
		RightTrigger: 1,
	}
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := []write{
		{robot.Gripper, 4095},
		{robot.WristRoll, 1950},
		{robot.WristFlex, 2050},
		{robot.ElbowFlex, 2050},
		{robot.ShoulderLift, 2050},
		{robot.ShoulderPan, 2050},
	}
	if !equalWrites(arm.writes, want) {
		t.Errorf("writes = %v, want %v", arm.writes, want)
	}
}

func TestStep_ToggleHeldFiresOnce(t *testing.T) {
	arm := &fakeArm{present: centered()}
	held := rest()
	held.Toggle = true

	var snaps []gamepad.Snapshot
	for i := 0; i < 50; i++ {
		snaps = append(snaps, held)
	}
	snaps = append(snaps, rest(), held)
	c := dial(t, arm, &fakePad{snaps: snaps})

	for i := 0; i < 50; i++ {
		if _, err := c.Step(context.Background()); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if len(arm.writes) != 1 || arm.writes[0] != (write{robot.Gripper, 4095}) {
		t.Fatalf("after holding: writes = %v, want one gripper write of 4095", arm.writes)
	}
	if c.Gripper() != GripperOpen {
		t.Errorf("gripper = %s, want OPEN", c.Gripper())
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if len(arm.writes) != 2 || arm.writes[1] != (write{robot.Gripper, 0}) {
		t.Errorf("after re-press: writes = %v, want second gripper write of 0", arm.writes)
	}
	if c.Gripper() != GripperClosed {
		t.Errorf("gripper = %s, want CLOSED", c.Gripper())
	}
}

func TestStep_TriggerDominance(t *testing.T) {
	arm := &fakeArm{present: centered()}
	snap := rest()
	snap.LeftTrigger, snap.RightTrigger = 1, 1
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := []write{{robot.ShoulderPan, 1950}}
	if !equalWrites(arm.writes, want) {
		t.Errorf("writes = %v, want %v", arm.writes, want)
	}
}

func TestStep_RangeHeldAtLimit(t *testing.T) {
	present := centered()
	present[robot.ShoulderLift] = 4070
	arm := &fakeArm{present: present}
	snap := rest()
	snap.RightStickY = 1
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	for i := 0; i < 10; i++ {
		if _, err := c.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	want := []write{{robot.ShoulderLift, 4095}}
	if !equalWrites(arm.writes, want) {
		t.Errorf("writes = %v, want %v", arm.writes, want)
	}
}

func TestRun_ExitButton(t *testing.T) {
	arm := &fakeArm{present: centered()}
	pad := &fakePad{}
	exit := rest()
	exit.Exit = true
	pad.snaps = []gamepad.Snapshot{rest(), rest(), exit}
	c := dial(t, arm, pad)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if pad.i != 3 {
		t.Errorf("sampled %d times, want 3", pad.i)
	}
	if arm.disconnects != 1 || pad.closes != 1 {
		t.Errorf("disconnects = %d, pad closes = %d, want 1 and 1", arm.disconnects, pad.closes)
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done() not closed after Run")
	}
}

func TestRun_WriteFailureCleansUpOnce(t *testing.T) {
	arm := &fakeArm{present: centered(), failWriteAt: 3}
	snap := rest()
	snap.LeftStickY = 1
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})

	err := c.Run(context.Background())
	if !IsKind(err, KindTransport) {
		t.Fatalf("Run() = %v, want transport error", err)
	}
	var te *Error
	if !errors.As(err, &te) || te.Motor != robot.WristFlex {
		t.Errorf("error motor = %v, want wrist_flex", err)
	}
	if got := c.Positions()[robot.WristFlex]; got != 2100 {
		t.Errorf("wrist_flex target = %d, want 2100 from the two successful writes", got)
	}

	c.Close()
	if arm.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", arm.disconnects)
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
}

func TestRun_PanicBecomesRuntimeError(t *testing.T) {
	arm := &fakeArm{present: centered()}
	c := dial(t, arm, &fakePad{panicAt: 2})

	err := c.Run(context.Background())
	if !IsKind(err, KindRuntime) {
		t.Fatalf("Run() = %v, want runtime error", err)
	}
	if arm.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", arm.disconnects)
	}
}

func TestRun_InputErrorCleansUp(t *testing.T) {
	arm := &fakeArm{present: centered()}
	pad := &fakePad{err: errors.New("unplugged")}
	c := dial(t, arm, pad)

	if err := c.Run(context.Background()); !IsKind(err, KindInput) {
		t.Fatalf("Run() = %v, want input error", err)
	}
	if arm.disconnects != 1 || pad.closes != 1 {
		t.Errorf("disconnects = %d, pad closes = %d, want 1 and 1", arm.disconnects, pad.closes)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	arm := &fakeArm{present: centered()}
	c := dial(t, arm, &fakePad{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() = %v, want deadline exceeded", err)
	}
	if arm.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", arm.disconnects)
	}
}

func TestDial_Failures(t *testing.T) {
	settings := DefaultSettings()

	_, err := Dial(context.Background(), settings,
		func() (InputDevice, error) { return nil, gamepad.ErrNoDevice },
		func(context.Context) (Arm, error) {
			t.Fatal("connect called after input failure")
			return nil, nil
		},
	)
	if !IsKind(err, KindDeviceInit) || !errors.Is(err, gamepad.ErrNoDevice) {
		t.Errorf("Dial(no pad) = %v, want device init error", err)
	}

	pad := &fakePad{}
	_, err = Dial(context.Background(), settings,
		func() (InputDevice, error) { return pad, nil },
		func(context.Context) (Arm, error) { return nil, errors.New("port busy") },
	)
	if !IsKind(err, KindConnect) {
		t.Errorf("Dial(connect fails) = %v, want connect error", err)
	}
	if pad.closes != 1 {
		t.Errorf("pad closes = %d, want 1", pad.closes)
	}

	pad = &fakePad{}
	arm := &fakeArm{readErr: errors.New("no status packet")}
	_, err = Dial(context.Background(), settings,
		func() (InputDevice, error) { return pad, nil },
		func(context.Context) (Arm, error) { return arm, nil },
	)
	if !IsKind(err, KindTransport) {
		t.Errorf("Dial(read fails) = %v, want transport error", err)
	}
	if arm.disconnects != 1 || pad.closes != 1 {
		t.Errorf("disconnects = %d, pad closes = %d, want 1 and 1", arm.disconnects, pad.closes)
	}
}

func TestSettings_Validate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("DefaultSettings().Validate() = %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"negative deadzone", func(s *Settings) { s.Deadzone = -0.1 }},
		{"zero interval", func(s *Settings) { s.IntervalMs = 0 }},
		{"gripper speed", func(s *Settings) { s.Speeds[robot.Gripper] = 10 }},
		{"zero speed", func(s *Settings) { s.Speeds[robot.ElbowFlex] = 0 }},
		{"unknown joint", func(s *Settings) { s.Speeds["tail"] = 10 }},
	}
	for _, tt := range tests {
		s := DefaultSettings()
		tt.modify(&s)
		if err := s.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
		}
	}
}

func TestController_Logs(t *testing.T) {
	arm := &fakeArm{present: centered()}
	snap := rest()
	snap.Toggle = true
	c := dial(t, arm, &fakePad{snaps: []gamepad.Snapshot{snap}})
	c.Step(context.Background())

	var logs []string
	for len(c.Logs()) > 0 {
		logs = append(logs, <-c.Logs())
	}
	want := []string{"Current positions", "Gripper state: CLOSED", "Toggle button: PRESSED", "Gripper OPEN (pos: 4095)"}
	if len(logs) != len(want) {
		t.Fatalf("logs = %q, want %d lines", logs, len(want))
	}
	for i, w := range want {
		if !strings.Contains(logs[i], w) {
			t.Errorf("log %d = %q, want it to contain %q", i, logs[i], w)
		}
	}
}

func equalWrites(got, want []write) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
