package teleop

import (
	"errors"
	"fmt"

	"github.com/gwillem/so101-gamepad/pkg/robot"
)

// Kind classifies what failed. Every kind ends the session.
type Kind int

const (
	KindDeviceInit Kind = iota + 1
	KindConnect
	KindTransport
	KindInput
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindDeviceInit:
		return "device init"
	case KindConnect:
		return "connect"
	case KindTransport:
		return "transport"
	case KindInput:
		return "input"
	case KindRuntime:
		return "runtime"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a session-ending failure.
type Error struct {
	Kind  Kind
	Op    string
	Motor robot.MotorName // set for per-joint transport failures
	Err   error
}

func (e *Error) Error() string {
	if e.Motor != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Motor, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
