// Package body owns the motor bus. All servo traffic goes through a single
// dedicated worker goroutine, so the rest of the program never blocks on the
// serial port and never interleaves commands.
package body

import (
	"errors"
	"fmt"

	"github.com/dmweis/hopper-go/hexapod"
)

// JointCount is the number of motors on the bus.
const JointCount = 3 * hexapod.LegCount

// Bus is the set of motor operations the worker needs. The real bus drives
// dynamixel AX servos over serial; tests plug in a fake.
type Bus interface {
	// SyncWriteAngles moves every joint in one synchronized update, so all
	// eighteen motors start moving on the same bus cycle.
	SyncWriteAngles(joints hexapod.BodyJoints) error

	// SyncWriteSpeed sets the moving speed of every motor (1 to 1023).
	SyncWriteSpeed(speed int) error

	// SyncWriteCompliance sets the compliance slope of every motor. Higher
	// values make the joints softer.
	SyncWriteCompliance(slope int) error

	// SyncWriteTorque powers every motor on or off.
	SyncWriteTorque(enabled bool) error

	// ReadAngle returns the present angle (in bus radians) of the motor at
	// the given bus index (0 to JointCount-1).
	ReadAngle(index int) (float64, error)

	// ReadVoltage returns the supply voltage seen by the motor at the given
	// bus index.
	ReadVoltage(index int) (float64, error)

	Close() error
}

// DeviceError wraps a failure scoped to one motor. The bus itself is still
// usable, so these are retryable.
type DeviceError struct {
	ID  int
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("motor %d: %s", e.ID, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Recoverable returns true if the error is scoped to a single device, rather
// than the port. Device reads time out all the time (the AX bus is half
// duplex), so the worker keeps going; a port-level failure stops it.
func Recoverable(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
