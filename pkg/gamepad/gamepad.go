// Package gamepad samples a game controller into normalized snapshots.
package gamepad

import (
	"errors"
	"fmt"
	"sync"

	"github.com/0xcafed00d/joystick"
)

// ErrNoDevice is returned when no usable controller can be opened.
var ErrNoDevice = errors.New("no gamepad detected")

// Minimum controls needed for teleoperation.
const (
	MinAxes    = 6
	MinButtons = 2
)

// MaxIndex is the number of joystick slots probed by Find.
const MaxIndex = 4

// Config selects a controller and its layout.
type Config struct {
	Index  int    `json:"index"`
	Layout Layout `json:"layout"`
}

// DefaultConfig returns joystick 0 with the default layout.
func DefaultConfig() Config {
	return Config{Index: 0, Layout: DefaultLayout()}
}

// Info describes a detected controller.
type Info struct {
	Index   int
	Name    string
	Axes    int
	Buttons int
}

// Pad is an open controller.
type Pad struct {
	js     joystick.Joystick
	layout Layout
	index  int

	closeOnce sync.Once
}

var openJoystick = joystick.Open

// Open opens the configured controller and checks it has enough controls
// for the layout.
func Open(cfg Config) (*Pad, error) {
	js, err := openJoystick(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: joystick %d: %v", ErrNoDevice, cfg.Index, err)
	}
	return newPad(js, cfg)
}

func newPad(js joystick.Joystick, cfg Config) (*Pad, error) {
	if js.AxisCount() < MinAxes || js.ButtonCount() < MinButtons {
		js.Close()
		return nil, fmt.Errorf("%w: %s has %d axes and %d buttons, need %d and %d",
			ErrNoDevice, js.Name(), js.AxisCount(), js.ButtonCount(), MinAxes, MinButtons)
	}
	if err := cfg.Layout.Validate(js.AxisCount(), js.ButtonCount()); err != nil {
		js.Close()
		return nil, fmt.Errorf("layout for %s: %w", js.Name(), err)
	}
	return &Pad{js: js, layout: cfg.Layout, index: cfg.Index}, nil
}

// Name returns the controller's name as reported by the driver.
func (p *Pad) Name() string {
	return p.js.Name()
}

// Info returns the controller's description.
func (p *Pad) Info() Info {
	return Info{
		Index:   p.index,
		Name:    p.js.Name(),
		Axes:    p.js.AxisCount(),
		Buttons: p.js.ButtonCount(),
	}
}

// Sample reads the current controller state without waiting for events.
func (p *Pad) Sample() (Snapshot, error) {
	st, err := p.js.Read()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", p.js.Name(), err)
	}
	return snapshotFrom(st, p.layout), nil
}

// Close releases the controller. Further calls are no-ops.
func (p *Pad) Close() error {
	p.closeOnce.Do(p.js.Close)
	return nil
}

// Find lists the controllers present in the first MaxIndex slots.
func Find() []Info {
	var found []Info
	for i := 0; i < MaxIndex; i++ {
		js, err := openJoystick(i)
		if err != nil {
			continue
		}
		found = append(found, Info{
			Index:   i,
			Name:    js.Name(),
			Axes:    js.AxisCount(),
			Buttons: js.ButtonCount(),
		})
		js.Close()
	}
	return found
}
