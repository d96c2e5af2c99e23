// Package bus is an in-memory motor bus, for bench runs with no hardware
// attached. Writes are remembered and read back, and the voltage is whatever
// it was told to be.
package bus

import (
	"sync"

	"github.com/dmweis/hopper-go/hexapod"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "fake",
})

type FakeBus struct {
	mu      sync.Mutex
	joints  hexapod.BodyJoints
	voltage float64
	torque  bool
}

func New(voltage float64) *FakeBus {
	return &FakeBus{voltage: voltage}
}

func (b *FakeBus) SyncWriteAngles(joints hexapod.BodyJoints) error {
	b.mu.Lock()
	b.joints = joints
	b.mu.Unlock()
	log.Debugf("write angles: %s", joints)
	return nil
}

func (b *FakeBus) SyncWriteSpeed(speed int) error {
	log.Debugf("write speed: %d", speed)
	return nil
}

func (b *FakeBus) SyncWriteCompliance(slope int) error {
	log.Debugf("write compliance: %d", slope)
	return nil
}

func (b *FakeBus) SyncWriteTorque(enabled bool) error {
	b.mu.Lock()
	b.torque = enabled
	b.mu.Unlock()
	log.Debugf("write torque: %v", enabled)
	return nil
}

func (b *FakeBus) ReadAngle(index int) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	leg := hexapod.Leg(index / 3)
	j := b.joints[leg]
	switch index % 3 {
	case 0:
		return j.Coxa, nil
	case 1:
		return j.Femur, nil
	default:
		return j.Tibia, nil
	}
}

func (b *FakeBus) ReadVoltage(index int) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voltage, nil
}

// Joints returns the last written joint set.
func (b *FakeBus) Joints() hexapod.BodyJoints {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.joints
}

func (b *FakeBus) Close() error {
	log.Debug("close")
	return nil
}
