package robot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

// ErrNotSO101 is returned when a bus does not expose servos 1-6.
var ErrNotSO101 = errors.New("not an SO-101 arm (expected 6 servos with IDs 1-6)")

const scanTimeout = 2 * time.Second

// FoundArm is an SO-101 arm discovered on a serial port.
type FoundArm struct {
	Port   string
	Servos []feetech.FoundServo
}

// IsSO101 reports whether the scanned servos are exactly IDs 1-6.
func IsSO101(servos []feetech.FoundServo) bool {
	n := len(AllMotors())
	if len(servos) != n {
		return false
	}

	ids := make(map[int]bool, n)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= n; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

// Ports lists candidate serial ports, skipping macOS Bluetooth ports.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var out []string
	for _, p := range ports {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FindArms probes every serial port for an SO-101 arm.
func FindArms(ctx context.Context) ([]FoundArm, error) {
	ports, err := Ports()
	if err != nil {
		return nil, err
	}

	var arms []FoundArm
	for _, port := range ports {
		servos, err := probe(ctx, port)
		if err != nil || !IsSO101(servos) {
			continue
		}
		arms = append(arms, FoundArm{Port: port, Servos: servos})
	}
	return arms, nil
}

func probe(ctx context.Context, port string) ([]feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	bus, err := OpenBus(port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	return bus.Scan(ctx, 1, len(AllMotors()))
}
