package gamepad

import (
	"errors"
	"math"
	"testing"

	"github.com/0xcafed00d/joystick"
)

type fakeJoystick struct {
	name    string
	axes    int
	buttons int
	state   joystick.State
	readErr error
	closed  int
}

func (f *fakeJoystick) AxisCount() int   { return f.axes }
func (f *fakeJoystick) ButtonCount() int { return f.buttons }
func (f *fakeJoystick) Name() string     { return f.name }
func (f *fakeJoystick) Close()           { f.closed++ }
func (f *fakeJoystick) Read() (joystick.State, error) {
	return f.state, f.readErr
}

func withJoysticks(t *testing.T, sticks map[int]*fakeJoystick) {
	t.Helper()
	orig := openJoystick
	openJoystick = func(id int) (joystick.Joystick, error) {
		if js, ok := sticks[id]; ok {
			return js, nil
		}
		return nil, errors.New("no such device")
	}
	t.Cleanup(func() { openJoystick = orig })
}

func TestNormalizeAxis(t *testing.T) {
	tests := []struct {
		raw  int
		want float64
	}{
		{0, 0},
		{32767, 1},
		{-32767, -1},
		{-32768, -1}, // saturates
		{16384, 0.5},
	}
	for _, tt := range tests {
		if got := NormalizeAxis(tt.raw); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("NormalizeAxis(%d) = %f, want %f", tt.raw, got, tt.want)
		}
	}
}

func TestPad_Sample(t *testing.T) {
	js := &fakeJoystick{
		name:    "Xbox Elite 2",
		axes:    6,
		buttons: 11,
		state: joystick.State{
			AxisData: []int{16384, -32767, 0, 32767, -32767, 32767},
			Buttons:  1 << 1,
		},
	}
	pad, err := newPad(js, DefaultConfig())
	if err != nil {
		t.Fatalf("newPad: %v", err)
	}

	s, err := pad.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if s.Toggle || !s.Exit {
		t.Errorf("buttons = toggle %t exit %t, want false true", s.Toggle, s.Exit)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"LeftStickX", s.LeftStickX, 0.5},
		{"LeftStickY", s.LeftStickY, -1},
		{"RightStickY", s.RightStickY, 0},
		{"RightStickX", s.RightStickX, 1},
		{"LeftTrigger", s.LeftTrigger, -1},
		{"RightTrigger", s.RightTrigger, 1},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 0.001 {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}
}

func TestPad_SampleCustomLayout(t *testing.T) {
	js := &fakeJoystick{
		axes:    8,
		buttons: 4,
		state: joystick.State{
			AxisData: []int{0, 0, 0, 0, 0, 0, 32767, 0},
			Buttons:  1 << 3,
		},
	}
	layout := DefaultLayout()
	layout.ToggleButton = 3
	layout.LeftTrigger = 6

	pad, err := newPad(js, Config{Layout: layout})
	if err != nil {
		t.Fatalf("newPad: %v", err)
	}
	s, _ := pad.Sample()
	if !s.Toggle {
		t.Error("Toggle = false, want true for button 3")
	}
	if s.LeftTrigger != 1 {
		t.Errorf("LeftTrigger = %f, want 1 from axis 6", s.LeftTrigger)
	}
}

func TestSnapshotFrom_MissingAxesRest(t *testing.T) {
	s := snapshotFrom(joystick.State{}, DefaultLayout())
	if s != Rest {
		t.Errorf("snapshotFrom(empty) = %v, want %v", s, Rest)
	}
}

func TestPad_SampleError(t *testing.T) {
	js := &fakeJoystick{axes: 6, buttons: 2, readErr: errors.New("device unplugged")}
	pad, err := newPad(js, DefaultConfig())
	if err != nil {
		t.Fatalf("newPad: %v", err)
	}
	if _, err := pad.Sample(); err == nil {
		t.Error("Sample() error = nil, want read error")
	}
}

func TestOpen(t *testing.T) {
	small := &fakeJoystick{name: "Wheel", axes: 3, buttons: 8}
	withJoysticks(t, map[int]*fakeJoystick{
		0: small,
		1: {name: "Pad", axes: 6, buttons: 10},
	})

	if _, err := Open(Config{Index: 0, Layout: DefaultLayout()}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Open(3 axes) error = %v, want ErrNoDevice", err)
	}
	if small.closed != 1 {
		t.Errorf("rejected joystick closed %d times, want 1", small.closed)
	}
	if _, err := Open(Config{Index: 3, Layout: DefaultLayout()}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Open(missing) error = %v, want ErrNoDevice", err)
	}

	pad, err := Open(Config{Index: 1, Layout: DefaultLayout()})
	if err != nil {
		t.Fatalf("Open(1): %v", err)
	}
	if pad.Name() != "Pad" {
		t.Errorf("Name() = %q, want Pad", pad.Name())
	}
	want := Info{Index: 1, Name: "Pad", Axes: 6, Buttons: 10}
	if got := pad.Info(); got != want {
		t.Errorf("Info() = %+v, want %+v", got, want)
	}
}

func TestPad_CloseOnce(t *testing.T) {
	js := &fakeJoystick{axes: 6, buttons: 2}
	pad, err := newPad(js, DefaultConfig())
	if err != nil {
		t.Fatalf("newPad: %v", err)
	}
	pad.Close()
	pad.Close()
	if js.closed != 1 {
		t.Errorf("joystick closed %d times, want 1", js.closed)
	}
}

func TestFind(t *testing.T) {
	withJoysticks(t, map[int]*fakeJoystick{
		1: {name: "Pad", axes: 6, buttons: 10},
		2: {name: "Stick", axes: 3, buttons: 4},
	})

	found := Find()
	if len(found) != 2 {
		t.Fatalf("Find() returned %d controllers, want 2", len(found))
	}
	if found[0].Index != 1 || found[0].Name != "Pad" || found[1].Index != 2 {
		t.Errorf("Find() = %+v", found)
	}
}

func TestLayout_Validate(t *testing.T) {
	if err := DefaultLayout().Validate(6, 2); err != nil {
		t.Errorf("DefaultLayout().Validate(6, 2) = %v", err)
	}

	same := DefaultLayout()
	same.ExitButton = same.ToggleButton
	if err := same.Validate(6, 2); err == nil {
		t.Error("Validate with shared button = nil, want error")
	}

	far := DefaultLayout()
	far.RightTrigger = 9
	if err := far.Validate(6, 2); err == nil {
		t.Error("Validate with axis 9 on 6-axis pad = nil, want error")
	}
}
