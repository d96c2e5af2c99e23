package body

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmweis/hopper-go/hexapod"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "body",
})

const (
	// The worker writes pending joint angles at this rate.
	cycleInterval = 10 * time.Millisecond

	// One motor's voltage is sampled every this many cycles, so the whole
	// ring refreshes about every four seconds.
	voltageEvery = 20

	// Config and query requests waiting for the worker.
	requestBacklog = 16
)

type request struct {
	run   func(Bus) error
	reply chan error
}

// Controller serializes all bus traffic through one worker goroutine.
//
// Joint angles go through a single-slot mailbox: writing a new set before the
// worker picks the old one up replaces it, because only the freshest pose is
// worth writing. Everything else (speed, compliance, torque, reads) goes
// through a buffered queue and is executed in order, one reply per request.
type Controller struct {
	bus      Bus
	interval time.Duration

	mu      sync.Mutex
	pending *hexapod.BodyJoints
	exit    bool

	requests chan request

	voltMu    sync.Mutex
	voltages  [JointCount]float64
	voltKnown [JointCount]bool

	cycles  uint64
	rrIndex int

	done chan struct{}
	err  error
}

// New starts a worker driving the given bus. Call Close to stop it.
func New(bus Bus) *Controller {
	c := newController(bus, cycleInterval)
	go c.run()
	return c
}

func newController(bus Bus, interval time.Duration) *Controller {
	return &Controller{
		bus:      bus,
		interval: interval,
		requests: make(chan request, requestBacklog),
		done:     make(chan struct{}),
	}
}

// SetJoints hands the worker a full set of joint angles to write on its next
// cycle. Never blocks; an unwritten previous set is replaced.
func (c *Controller) SetJoints(joints hexapod.BodyJoints) {
	c.mu.Lock()
	c.pending = &joints
	c.mu.Unlock()
}

// Do runs fn on the worker goroutine and returns its error. Requests are
// served strictly in order. Blocks until the worker gets to it.
func (c *Controller) Do(fn func(Bus) error) error {
	reply := make(chan error, 1)
	select {
	case c.requests <- request{run: fn, reply: reply}:
	case <-c.done:
		return fmt.Errorf("body worker stopped")
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		return fmt.Errorf("body worker stopped")
	}
}

// SetSpeed sets the moving speed of every motor.
func (c *Controller) SetSpeed(speed int) error {
	return c.Do(func(b Bus) error {
		return b.SyncWriteSpeed(speed)
	})
}

// SetCompliance sets the compliance slope of every motor.
func (c *Controller) SetCompliance(slope int) error {
	return c.Do(func(b Bus) error {
		return b.SyncWriteCompliance(slope)
	})
}

// SetTorque powers every motor on or off.
func (c *Controller) SetTorque(enabled bool) error {
	return c.Do(func(b Bus) error {
		return b.SyncWriteTorque(enabled)
	})
}

// ReadJoints reads the present angles of every motor off the bus.
func (c *Controller) ReadJoints() (hexapod.BodyJoints, error) {
	var joints hexapod.BodyJoints
	err := c.Do(func(b Bus) error {
		for _, leg := range hexapod.Legs {
			for j := 0; j < 3; j++ {
				angle, err := b.ReadAngle(int(leg)*3 + j)
				if err != nil {
					return err
				}
				switch j {
				case 0:
					joints[leg].Coxa = angle
				case 1:
					joints[leg].Femur = angle
				case 2:
					joints[leg].Tibia = angle
				}
			}
		}
		return nil
	})
	return joints, err
}

// MeanVoltage returns the rolling mean of the sampled motor voltages, or zero
// if nothing has been sampled yet. Never blocks on the bus.
func (c *Controller) MeanVoltage() float64 {
	c.voltMu.Lock()
	defer c.voltMu.Unlock()

	sum := 0.0
	n := 0
	for i, known := range c.voltKnown {
		if known {
			sum += c.voltages[i]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Healthy returns nil while the worker is running, or the error that
// stopped it. A worker killed by a port-level failure takes the whole bus
// with it, so callers should stop commanding motion once this is non-nil.
func (c *Controller) Healthy() error {
	select {
	case <-c.done:
		if c.err != nil {
			return c.err
		}
		return fmt.Errorf("body worker stopped")
	default:
		return nil
	}
}

// Close stops the worker, waits for it to finish, and closes the bus. A
// panic on the worker comes back as an error from here rather than taking
// the process down.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.exit = true
	c.mu.Unlock()

	<-c.done

	err := c.err
	if cerr := c.bus.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Controller) run() {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("body worker panic: %v", r)
			log.Error(c.err)
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for c.cycle() {
		<-ticker.C
	}
}

// cycle runs one worker iteration, and returns false when the worker should
// stop: either on the exit flag or on an unrecoverable bus error.
func (c *Controller) cycle() bool {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	exit := c.exit
	c.mu.Unlock()

	if exit {
		return false
	}

	if pending != nil {
		if err := c.bus.SyncWriteAngles(*pending); err != nil {
			if !Recoverable(err) {
				c.err = fmt.Errorf("writing joints: %w", err)
				log.Error(c.err)
				return false
			}
			log.Warnf("writing joints: %s", err)
		}
	}

	// serve only the requests already queued when the cycle started, so a
	// chatty caller can't stretch the cycle and skew the voltage sub-rate
	for n := len(c.requests); n > 0; n-- {
		req := <-c.requests
		req.reply <- req.run(c.bus)
	}

	c.cycles++
	if c.cycles%voltageEvery == 0 {
		c.sampleVoltage()
	}
	return true
}

func (c *Controller) sampleVoltage() {
	index := c.rrIndex
	c.rrIndex = (c.rrIndex + 1) % JointCount

	v, err := c.bus.ReadVoltage(index)
	if err != nil {
		log.Debugf("reading voltage of motor index %d: %s", index, err)
		return
	}

	c.voltMu.Lock()
	c.voltages[index] = v
	c.voltKnown[index] = true
	c.voltMu.Unlock()
}
