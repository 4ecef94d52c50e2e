package robot

// DefaultPort is the serial port used when no configuration names one.
const DefaultPort = "/dev/ttyACM0"

// ArmConfig holds configuration for the follower arm.
type ArmConfig struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`
}

// IsCalibrated returns true if every motor has calibration data.
func (a *ArmConfig) IsCalibrated() bool {
	for _, name := range AllMotors() {
		if _, ok := a.Calibration[name]; !ok {
			return false
		}
	}
	return true
}
