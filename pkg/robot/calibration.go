package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// MotorCalibration holds calibration data for a single motor.
// The JSON layout matches the LeRobot calibration files.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// LoadCalibration imports a LeRobot calibration JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[string]MotorCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, mc := range raw {
		cal[MotorName(name)] = mc
	}
	return cal, nil
}

// Normalize converts a raw position into the motor's normalized scale:
// [-100, 100] for joints, [0, 100] for the gripper.
func (c MotorCalibration) Normalize(name MotorName, raw int) float64 {
	span := float64(c.RangeMax - c.RangeMin)
	if span == 0 {
		return 0
	}
	raw = max(c.RangeMin, min(c.RangeMax, raw))
	frac := float64(raw-c.RangeMin) / span
	if c.DriveMode != 0 {
		frac = 1 - frac
	}
	if name == Gripper {
		return frac * 100
	}
	return frac*200 - 100
}

// Denormalize is the inverse of Normalize. The result always lies inside
// [RangeMin, RangeMax].
func (c MotorCalibration) Denormalize(name MotorName, norm float64) int {
	var frac float64
	if name == Gripper {
		frac = norm / 100
	} else {
		frac = (norm + 100) / 200
	}
	frac = math.Max(0, math.Min(1, frac))
	if c.DriveMode != 0 {
		frac = 1 - frac
	}
	span := float64(c.RangeMax - c.RangeMin)
	return int(math.Round(frac*span)) + c.RangeMin
}

// ID returns the servo ID for a motor, falling back to the factory ID when
// the motor is not calibrated.
func (c Calibration) ID(name MotorName) int {
	if mc, ok := c[name]; ok && mc.ID != 0 {
		return mc.ID
	}
	return DefaultID(name)
}

// MotorIDs returns the servo IDs for all motors in AllMotors order.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(AllMotors()))
	for _, name := range AllMotors() {
		ids = append(ids, c.ID(name))
	}
	return ids
}

// ByID returns the motor name owning a servo ID.
func (c Calibration) ByID(id int) (MotorName, bool) {
	for _, name := range AllMotors() {
		if c.ID(name) == id {
			return name, true
		}
	}
	return "", false
}
