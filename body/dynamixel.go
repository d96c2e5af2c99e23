package body

import (
	"fmt"
	"io"

	"github.com/adammck/dynamixel/network"
	v1 "github.com/adammck/dynamixel/protocol/v1"
	"github.com/adammck/dynamixel/servo"
	"github.com/adammck/dynamixel/servo/ax"
	"github.com/dmweis/hopper-go/config"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
)

// DynamixelBus drives the eighteen AX servos over one serial port. Servos are
// indexed in bus order: coxa, femur, tibia for each leg slot in turn.
type DynamixelBus struct {
	network *network.Network
	proto   *v1.Proto1
	servos  [JointCount]*servo.Servo
	ids     [JointCount]int
	port    io.Closer
}

// NewDynamixelBus opens every motor named in the config on the given serial
// port: ping it, stop it ACKing writes, enable torque, and leave it in
// buffered mode so that writes can be synchronized with ACTION.
func NewDynamixelBus(port io.ReadWriteCloser, c *config.Config) (*DynamixelBus, error) {
	n := network.New(port)
	n.Flush()

	b := &DynamixelBus{
		network: n,
		proto:   v1.New(n),
		ids:     c.Legs.IDs(),
		port:    port,
	}

	for i, id := range b.ids {
		s, err := newServo(n, id)
		if err != nil {
			return nil, &DeviceError{ID: id, Err: err}
		}
		b.servos[i] = s
	}

	return b, nil
}

// newServo initializes one servo with sensible defaults.
func newServo(n *network.Network, id int) (*servo.Servo, error) {
	s, err := ax.New(n, id)
	if err != nil {
		return nil, err
	}

	// Don't bother sending ACKs for writes. We must do this first, to ensure
	// that the servo is in the expected state before sending other commands.
	if err := s.SetReturnLevel(1); err != nil {
		return nil, fmt.Errorf("%s (while setting return level)", err)
	}

	if err := s.Ping(); err != nil {
		return nil, fmt.Errorf("%s (while pinging)", err)
	}

	if err := s.SetReturnDelayTime(0); err != nil {
		return nil, fmt.Errorf("%s (while setting return delay)", err)
	}

	if err := s.SetTorqueEnable(true); err != nil {
		return nil, fmt.Errorf("%s (while enabling torque)", err)
	}

	if err := s.SetMovingSpeed(1023); err != nil {
		return nil, fmt.Errorf("%s (while setting move speed)", err)
	}

	// Buffer all subsequent instructions. The ACTION command is issued at the
	// end of each synchronized write. Note that this is just an attribute of
	// the servo; it doesn't affect the actual control table, so doesn't need
	// un-setting.
	s.SetBuffered(true)

	return s, nil
}

// sync runs f while the network is in buffered mode, then initiates any
// buffered movements at once by sending ACTION.
func (b *DynamixelBus) sync(f func() error) error {
	for _, s := range b.servos {
		s.SetBuffered(true)
	}
	err := f()
	for _, s := range b.servos {
		s.SetBuffered(false)
	}

	if aerr := b.proto.Action(); err == nil {
		err = aerr
	}
	return err
}

// moveToDegrees converts a bus angle (radians, centered at 150 degrees) into
// the zero-centered degrees the servo driver wants.
func moveToDegrees(busRadians float64) float64 {
	return math3d.Deg(busRadians) - 150
}

func (b *DynamixelBus) SyncWriteAngles(joints hexapod.BodyJoints) error {
	return b.sync(func() error {
		for _, leg := range hexapod.Legs {
			j := joints[leg]
			for k, angle := range [3]float64{j.Coxa, j.Femur, j.Tibia} {
				i := int(leg)*3 + k
				if err := b.servos[i].MoveTo(moveToDegrees(angle)); err != nil {
					return &DeviceError{ID: b.ids[i], Err: err}
				}
			}
		}
		return nil
	})
}

func (b *DynamixelBus) SyncWriteSpeed(speed int) error {
	return b.sync(func() error {
		for i, s := range b.servos {
			if err := s.SetMovingSpeed(speed); err != nil {
				return &DeviceError{ID: b.ids[i], Err: err}
			}
		}
		return nil
	})
}

func (b *DynamixelBus) SyncWriteCompliance(slope int) error {
	return b.sync(func() error {
		for i, s := range b.servos {
			if err := s.SetCWComplianceSlope(slope); err != nil {
				return &DeviceError{ID: b.ids[i], Err: err}
			}
			if err := s.SetCCWComplianceSlope(slope); err != nil {
				return &DeviceError{ID: b.ids[i], Err: err}
			}
		}
		return nil
	})
}

func (b *DynamixelBus) SyncWriteTorque(enabled bool) error {
	return b.sync(func() error {
		for i, s := range b.servos {
			if err := s.SetTorqueEnable(enabled); err != nil {
				return &DeviceError{ID: b.ids[i], Err: err}
			}
		}
		return nil
	})
}

func (b *DynamixelBus) ReadAngle(index int) (float64, error) {
	deg, err := b.servos[index].Angle()
	if err != nil {
		return 0, &DeviceError{ID: b.ids[index], Err: err}
	}
	return math3d.Rad(deg + 150), nil
}

func (b *DynamixelBus) ReadVoltage(index int) (float64, error) {
	v, err := b.servos[index].Voltage()
	if err != nil {
		return 0, &DeviceError{ID: b.ids[index], Err: err}
	}
	return v, nil
}

// Close powers the motors down and closes the port. Torque-off failures are
// ignored; the port is going away either way.
func (b *DynamixelBus) Close() error {
	for _, s := range b.servos {
		s.SetTorqueEnable(false)
		s.SetLED(false)
	}
	return b.port.Close()
}
