package body

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmweis/hopper-go/hexapod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	angleWrites []hexapod.BodyJoints
	ops         []string

	writeErr error
	voltErr  error
	voltages [JointCount]float64

	panicOnWrite bool
	closed       bool
}

func (f *fakeBus) SyncWriteAngles(joints hexapod.BodyJoints) error {
	if f.panicOnWrite {
		panic("bus exploded")
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.angleWrites = append(f.angleWrites, joints)
	f.ops = append(f.ops, "angles")
	return nil
}

func (f *fakeBus) SyncWriteSpeed(speed int) error {
	f.ops = append(f.ops, fmt.Sprintf("speed=%d", speed))
	return nil
}

func (f *fakeBus) SyncWriteCompliance(slope int) error {
	f.ops = append(f.ops, fmt.Sprintf("compliance=%d", slope))
	return nil
}

func (f *fakeBus) SyncWriteTorque(enabled bool) error {
	f.ops = append(f.ops, fmt.Sprintf("torque=%v", enabled))
	return nil
}

func (f *fakeBus) ReadAngle(index int) (float64, error) {
	return float64(index), nil
}

func (f *fakeBus) ReadVoltage(index int) (float64, error) {
	if f.voltErr != nil {
		return 0, f.voltErr
	}
	return f.voltages[index], nil
}

func (f *fakeBus) Close() error {
	f.closed = true
	return nil
}

func jointsAt(v float64) hexapod.BodyJoints {
	j := hexapod.BodyJoints{}
	for _, leg := range hexapod.Legs {
		j[leg] = hexapod.LegJoints{Coxa: v, Femur: v, Tibia: v}
	}
	return j
}

func TestImmediateSlotKeepsFreshest(t *testing.T) {
	bus := &fakeBus{}
	c := newController(bus, 0)

	// two writes before the worker runs: only the second lands
	c.SetJoints(jointsAt(1))
	c.SetJoints(jointsAt(2))
	assert.True(t, c.cycle())

	require.Len(t, bus.angleWrites, 1)
	assert.Equal(t, jointsAt(2), bus.angleWrites[0])

	// nothing pending, nothing written
	assert.True(t, c.cycle())
	assert.Len(t, bus.angleWrites, 1)
}

func TestRequestsRunInOrder(t *testing.T) {
	bus := &fakeBus{}
	c := newController(bus, 0)

	replies := make([]chan error, 3)
	for i := range replies {
		replies[i] = make(chan error, 1)
	}
	c.requests <- request{run: func(b Bus) error { return b.SyncWriteSpeed(100) }, reply: replies[0]}
	c.requests <- request{run: func(b Bus) error { return b.SyncWriteCompliance(32) }, reply: replies[1]}
	c.requests <- request{run: func(b Bus) error { return b.SyncWriteTorque(false) }, reply: replies[2]}

	c.SetJoints(jointsAt(1))
	assert.True(t, c.cycle())

	// the pose write comes first, then the queue in FIFO order
	assert.Equal(t, []string{"angles", "speed=100", "compliance=32", "torque=false"}, bus.ops)
	for _, reply := range replies {
		assert.NoError(t, <-reply)
	}
}

func TestRequestErrorSurfaced(t *testing.T) {
	bus := &fakeBus{}
	c := newController(bus, 0)

	boom := errors.New("boom")
	reply := make(chan error, 1)
	c.requests <- request{run: func(b Bus) error { return boom }, reply: reply}

	assert.True(t, c.cycle())
	assert.Equal(t, boom, <-reply)
}

func TestRecoverableWriteErrorKeepsRunning(t *testing.T) {
	bus := &fakeBus{writeErr: &DeviceError{ID: 7, Err: errors.New("timeout")}}
	c := newController(bus, 0)

	c.SetJoints(jointsAt(1))
	assert.True(t, c.cycle())
	assert.NoError(t, c.err)
}

func TestPortErrorStopsWorker(t *testing.T) {
	bus := &fakeBus{writeErr: errors.New("port gone")}
	c := newController(bus, 0)

	c.SetJoints(jointsAt(1))
	assert.False(t, c.cycle())
	assert.Error(t, c.err)
}

func TestHealthy(t *testing.T) {
	bus := &fakeBus{}
	c := New(bus)
	assert.NoError(t, c.Healthy())

	require.NoError(t, c.Close())
	assert.Error(t, c.Healthy())
}

func TestPortErrorReportedUnhealthy(t *testing.T) {
	bus := &fakeBus{writeErr: errors.New("port gone")}
	c := New(bus)

	c.SetJoints(jointsAt(1))
	<-c.done

	err := c.Healthy()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
}

func TestDrainServesOnlyQueuedRequests(t *testing.T) {
	bus := &fakeBus{}
	c := newController(bus, 0)

	// the first request enqueues another one while it runs; it must wait
	// for the next cycle
	second := request{run: func(b Bus) error { return b.SyncWriteSpeed(2) }, reply: make(chan error, 1)}
	c.requests <- request{run: func(b Bus) error {
		c.requests <- second
		return b.SyncWriteSpeed(1)
	}, reply: make(chan error, 1)}

	assert.True(t, c.cycle())
	assert.Equal(t, []string{"speed=1"}, bus.ops)
	assert.Equal(t, 1, len(c.requests))

	assert.True(t, c.cycle())
	assert.Equal(t, []string{"speed=1", "speed=2"}, bus.ops)
}

func TestVoltageRoundRobin(t *testing.T) {
	bus := &fakeBus{}
	for i := range bus.voltages {
		bus.voltages[i] = 10 + float64(i)
	}
	c := newController(bus, 0)

	assert.Equal(t, 0.0, c.MeanVoltage())

	// one sample every twentieth cycle
	for i := 0; i < voltageEvery; i++ {
		assert.True(t, c.cycle())
	}
	assert.Equal(t, 10.0, c.MeanVoltage())

	// a full lap samples every motor
	for i := 0; i < voltageEvery*(JointCount-1); i++ {
		assert.True(t, c.cycle())
	}
	assert.InDelta(t, 10+float64(JointCount-1)/2, c.MeanVoltage(), 0.0001)
}

func TestVoltageReadFailureSkipsSample(t *testing.T) {
	bus := &fakeBus{voltErr: &DeviceError{ID: 1, Err: errors.New("timeout")}}
	c := newController(bus, 0)

	for i := 0; i < voltageEvery*3; i++ {
		assert.True(t, c.cycle())
	}
	assert.Equal(t, 0.0, c.MeanVoltage())
}

func TestReadJoints(t *testing.T) {
	bus := &fakeBus{}
	c := New(bus)
	defer c.Close()

	joints, err := c.ReadJoints()
	require.NoError(t, err)

	// the fake returns each motor's bus index as its angle
	assert.Equal(t, hexapod.LegJoints{Coxa: 0, Femur: 1, Tibia: 2}, joints[hexapod.LeftFront])
	assert.Equal(t, hexapod.LegJoints{Coxa: 15, Femur: 16, Tibia: 17}, joints[hexapod.RightRear])
}

func TestCloseStopsWorkerAndBus(t *testing.T) {
	bus := &fakeBus{}
	c := New(bus)

	c.SetJoints(jointsAt(1))
	require.NoError(t, c.Close())
	assert.True(t, bus.closed)

	// requests after close fail instead of hanging
	assert.Error(t, c.SetSpeed(512))
}

func TestWorkerPanicSurfacedAtClose(t *testing.T) {
	bus := &fakeBus{panicOnWrite: true}
	c := New(bus)

	c.SetJoints(jointsAt(1))
	<-c.done

	err := c.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}
