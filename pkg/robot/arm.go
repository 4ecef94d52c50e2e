package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

var (
	// ErrNotCalibrated is returned when a calibrated connection is requested
	// for an arm without calibration data.
	ErrNotCalibrated = errors.New("arm not calibrated")
	// ErrUnknownMotor is returned for motor names outside AllMotors.
	ErrUnknownMotor = errors.New("unknown motor")
)

const (
	baudRate       = 1_000_000
	busTimeout     = 100 * time.Millisecond
	releaseTimeout = time.Second
)

// Arm is a connected SO-101 arm addressed by motor name and register.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	servos      map[MotorName]*feetech.Servo
	calibration Calibration

	closeOnce sync.Once
	closeErr  error
}

// OpenBus opens a Feetech STS bus on the given serial port.
func OpenBus(port string) (*feetech.Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  busTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus %s: %w", port, err)
	}
	return bus, nil
}

// Connect opens the arm's bus, verifies all six servos answer and enables
// torque. With calibrate set, an arm without calibration data is refused so
// that normalized reads and writes are always available.
func Connect(ctx context.Context, cfg ArmConfig, calibrate bool) (*Arm, error) {
	if calibrate && !cfg.IsCalibrated() {
		return nil, ErrNotCalibrated
	}

	bus, err := OpenBus(cfg.Port)
	if err != nil {
		return nil, err
	}

	found, err := bus.Scan(ctx, 1, len(AllMotors()))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan servos: %w", err)
	}
	if !IsSO101(found) {
		bus.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Port, ErrNotSO101)
	}

	models := make(map[int]feetech.FoundServo, len(found))
	for _, s := range found {
		models[s.ID] = s
	}

	a := &Arm{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cfg.Calibration.MotorIDs()...),
		servos:      make(map[MotorName]*feetech.Servo, len(found)),
		calibration: cfg.Calibration,
	}
	for _, name := range AllMotors() {
		id := cfg.Calibration.ID(name)
		a.servos[name] = feetech.NewServo(bus, id, models[id].Model)
	}

	if err := a.group.EnableAll(ctx); err != nil {
		a.Disconnect()
		return nil, fmt.Errorf("enable torque: %w", err)
	}
	return a, nil
}

// Disconnect disables torque and closes the bus. It is safe to call more
// than once and on an arm whose connection only partially succeeded.
func (a *Arm) Disconnect() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.group != nil {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			if err := a.group.DisableAll(ctx); err != nil {
				errs = append(errs, fmt.Errorf("disable torque: %w", err))
			}
			cancel()
		}
		if a.bus != nil {
			if err := a.bus.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close bus: %w", err))
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

// Read returns the value of a register for one motor. With normalize set the
// raw value is converted using the arm's calibration.
func (a *Arm) Read(ctx context.Context, reg Register, name MotorName, normalize bool) (int, error) {
	if !reg.readable() {
		return 0, fmt.Errorf("read %s: %w", reg, ErrUnsupportedRegister)
	}
	servo, cal, err := a.lookup(name, normalize)
	if err != nil {
		return 0, fmt.Errorf("read %s/%s: %w", name, reg, err)
	}

	raw, err := servo.Position(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s/%s: %w", name, reg, err)
	}
	if !normalize {
		return raw, nil
	}
	return int(math.Round(cal.Normalize(name, raw))), nil
}

// Write sets a register for one motor. Goal_Position takes a raw position,
// or a normalized one with normalize set. Torque_Enable takes 0 or 1.
func (a *Arm) Write(ctx context.Context, reg Register, name MotorName, value int, normalize bool) error {
	if !reg.writable() {
		return fmt.Errorf("write %s: %w", reg, ErrUnsupportedRegister)
	}
	servo, cal, err := a.lookup(name, normalize && reg == GoalPosition)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", name, reg, err)
	}

	switch reg {
	case TorqueEnable:
		if value != 0 {
			err = servo.Enable(ctx)
		} else {
			err = servo.Disable(ctx)
		}
	case GoalPosition:
		if normalize {
			value = cal.Denormalize(name, float64(value))
		}
		err = servo.SetPosition(ctx, ClampPosition(value))
	}
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", name, reg, err)
	}
	return nil
}

// PeekPositions reads raw positions from the arm on port without touching
// torque.
func PeekPositions(ctx context.Context, port string) (map[MotorName]int, error) {
	bus, err := OpenBus(port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	var cal Calibration
	raw, err := feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...).Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	positions := make(map[MotorName]int, len(raw))
	for id, pos := range raw {
		if name, ok := cal.ByID(id); ok {
			positions[name] = pos
		}
	}
	return positions, nil
}

var errNotConnected = errors.New("arm not connected")

func (a *Arm) lookup(name MotorName, needCalibration bool) (*feetech.Servo, MotorCalibration, error) {
	if DefaultID(name) == 0 {
		return nil, MotorCalibration{}, fmt.Errorf("%w: %q", ErrUnknownMotor, name)
	}
	servo, ok := a.servos[name]
	if !ok {
		return nil, MotorCalibration{}, errNotConnected
	}
	cal, ok := a.calibration[name]
	if needCalibration && !ok {
		return nil, MotorCalibration{}, ErrNotCalibrated
	}
	return servo, cal, nil
}
