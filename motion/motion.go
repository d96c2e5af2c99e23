// Package motion is the orchestrator: it owns the robot's posture, turns
// motion commands into leg trajectories, and is the only writer of joint
// angles. Commands arrive asynchronously from whatever drives the robot;
// the loop consumes the freshest state at its own fixed rate.
package motion

import (
	"sync"
	"time"

	"github.com/dmweis/hopper-go/config"
	"github.com/dmweis/hopper-go/gait"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "motion",
})

// Body is what the orchestrator needs from the motor layer.
type Body interface {
	SetJoints(joints hexapod.BodyJoints)
	SetSpeed(speed int) error
	SetCompliance(slope int) error
	SetTorque(enabled bool) error
	ReadJoints() (hexapod.BodyJoints, error)
	MeanVoltage() float64

	// Healthy returns nil while the motor layer can still take commands,
	// or the error that killed it.
	Healthy() error

	Close() error
}

// Posture is the gross body state. Transitions between postures are scripted
// sequences, so they take a while.
type Posture int

const (
	Folded Posture = iota
	Grounded
	Standing
)

func (p Posture) String() string {
	switch p {
	case Folded:
		return "folded"
	case Grounded:
		return "grounded"
	case Standing:
		return "standing"
	}
	return "unknown"
}

// SingleLegCommand lifts the selected leg and moves it by the given offset
// while the body leans away to stay balanced.
type SingleLegCommand struct {
	Legs        hexapod.LegFlags
	Translation math3d.Vector3
}

// command is the latest-value state shared between the setters and the loop.
// The loop reads a fresh copy every tick; intermediate values are simply
// never seen, which is the right thing for joystick-style input.
type command struct {
	move        gait.MoveCommand
	translation math3d.Vector3
	rotation    math3d.EulerAngles
	posture     Posture
	havePosture bool
	singleLeg   *SingleLegCommand
}

type queuedKind int

const (
	queueTerminate queuedKind = iota
	queueDance
	queueDisableMotors
	queueSetSpeed
	queueSetCompliance
)

type queuedCommand struct {
	kind queuedKind
	arg  int
}

// Controller is the public handle. All methods are safe for concurrent use.
type Controller struct {
	mu  sync.Mutex
	cmd command

	queue chan queuedCommand

	loop *loop
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

const tickInterval = time.Second / 50

// New starts the motion loop on the given body. Call Close to shut the robot
// down cleanly.
func New(body Body, cfg *config.Config) *Controller {
	c := &Controller{
		queue: make(chan queuedCommand, 16),
		done:  make(chan struct{}),
	}
	c.loop = newLoop(body, cfg, tickInterval, c)
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.done)
	c.loop.run()
}

// snapshot returns the current latest-value command.
func (c *Controller) snapshot() command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd
}

// SetMove sets the walking command: a per-step translation and rotation.
// Zero stops walking after the legs settle.
func (c *Controller) SetMove(move gait.MoveCommand) {
	c.mu.Lock()
	c.cmd.move = move
	c.mu.Unlock()
}

// SetTransform sets the standing body offset. The loop eases the body toward
// it over several ticks.
func (c *Controller) SetTransform(translation math3d.Vector3, rotation math3d.EulerAngles) {
	c.mu.Lock()
	c.cmd.translation = translation
	c.cmd.rotation = rotation
	c.mu.Unlock()
}

// SetPosture requests a posture. The transition runs on the loop, so this
// returns immediately.
func (c *Controller) SetPosture(p Posture) {
	c.mu.Lock()
	c.cmd.posture = p
	c.cmd.havePosture = true
	c.mu.Unlock()
}

// SetSingleLeg enters single-leg mode. Walking is suspended until the
// command is cleared.
func (c *Controller) SetSingleLeg(cmd SingleLegCommand) {
	c.mu.Lock()
	c.cmd.singleLeg = &cmd
	c.mu.Unlock()
}

// ClearSingleLeg leaves single-leg mode and recovers the stance.
func (c *Controller) ClearSingleLeg() {
	c.mu.Lock()
	c.cmd.singleLeg = nil
	c.mu.Unlock()
}

func (c *Controller) enqueue(cmd queuedCommand) {
	select {
	case c.queue <- cmd:
	case <-c.done:
	}
}

// StartDance queues a happy dance, performed when the robot is next standing
// still.
func (c *Controller) StartDance() {
	c.enqueue(queuedCommand{kind: queueDance})
}

// SetSpeed sets the moving speed of all motors (1 to 1023), in queue order.
func (c *Controller) SetSpeed(speed int) {
	c.enqueue(queuedCommand{kind: queueSetSpeed, arg: speed})
}

// SetCompliance sets the compliance slope of all motors, in queue order.
func (c *Controller) SetCompliance(slope int) {
	c.enqueue(queuedCommand{kind: queueSetCompliance, arg: slope})
}

// DisableMotors cuts torque. The robot will slump; use with care.
func (c *Controller) DisableMotors() {
	c.enqueue(queuedCommand{kind: queueDisableMotors})
}

// CurrentPose returns the last written foot positions. Cheap enough to poll.
func (c *Controller) CurrentPose() hexapod.LegPositions {
	return c.loop.currentPose()
}

// CurrentJoints returns the last written joint angles.
func (c *Controller) CurrentJoints() hexapod.BodyJoints {
	return c.loop.currentJoints()
}

// Odometry returns the estimated world position and heading, integrated from
// completed steps.
func (c *Controller) Odometry() (math3d.Vector3, float64) {
	return c.loop.odometry()
}

// Posture returns the current posture.
func (c *Controller) Posture() Posture {
	return c.loop.currentPosture()
}

// LowBattery returns true once the mean motor voltage has dropped below the
// shutdown threshold. It never resets; land the robot.
func (c *Controller) LowBattery() bool {
	return c.loop.lowBattery()
}

// Close settles the robot on the ground, cuts torque, and stops the loop and
// the body worker.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.enqueue(queuedCommand{kind: queueTerminate})
		<-c.done
		c.closeErr = c.loop.shutdown()
	})
	return c.closeErr
}
