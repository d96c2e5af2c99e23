package motion

import (
	"math"
	"sync"
	"time"

	"github.com/dmweis/hopper-go/config"
	"github.com/dmweis/hopper-go/gait"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/ik"
	"github.com/dmweis/hopper-go/math3d"
)

const (
	// The largest distance any foot moves per tick, in meters.
	maxMove = 0.001

	// How fast the body eases toward a commanded transform, per tick.
	maxTranslationStep = 0.004
	maxRotationStep    = math.Pi / 180

	// Step heights, in meters.
	walkStepHeight    = 0.025
	nonWalkStepHeight = 0.03

	// Voltage is only checked while idle; bus reads compete with pose
	// writes.
	voltageCheckPeriod = time.Second
	minVoltage         = 9.6

	// How close the read-back pose must be to the grounded stance to assume
	// the robot is already sitting rather than folded.
	groundedTolerance = 0.015

	// Pause before cutting torque at shutdown, letting the last poses land.
	settleDelay = 200 * time.Millisecond
)

// loop runs on its own goroutine and is the only writer of joint angles.
// Everything here is single-threaded except the snap fields, which are
// published for the snapshot accessors.
type loop struct {
	body Body
	cfg  *config.Config
	ctrl *Controller

	interval time.Duration
	ticker   *time.Ticker

	baseRelaxed hexapod.LegPositions

	cmd command

	posture    Posture
	lastTripod gait.Tripod
	lrlReset   bool
	rlrReset   bool
	wasSingle  bool
	dances     int

	currentTranslation math3d.Vector3
	currentRotation    math3d.EulerAngles

	lastVoltageCheck time.Time

	snapMu      sync.Mutex
	lastWritten hexapod.LegPositions
	lastJoints  hexapod.BodyJoints
	worldPos    math3d.Vector3
	worldYaw    float64
	battLow     bool
}

func newLoop(body Body, cfg *config.Config, interval time.Duration, ctrl *Controller) *loop {
	l := &loop{
		body:        body,
		cfg:         cfg,
		ctrl:        ctrl,
		interval:    interval,
		baseRelaxed: relaxedStance(),
		posture:     Folded,
		lastTripod:  gait.LRL,
	}
	if interval > 0 {
		l.ticker = time.NewTicker(interval)
	}
	return l
}

// tick waits for the next loop slot. With a zero interval (tests) it returns
// immediately.
func (l *loop) tick() {
	if l.ticker != nil {
		<-l.ticker.C
	}
}

func (l *loop) run() {
	l.initializePosture()
	log.Infof("starting motion loop (posture=%s)", l.posture)

	for {
		l.cmd = l.ctrl.snapshot()

		terminate := false
		for !terminate {
			select {
			case qc := <-l.ctrl.queue:
				terminate = l.handleQueued(qc)
				continue
			default:
			}
			break
		}
		if terminate {
			log.Info("terminate received, exiting motion loop")
			return
		}

		if err := l.body.Healthy(); err != nil {
			l.handleBodyFailure(err)
			return
		}

		if l.cmd.havePosture {
			l.handlePostureTransition(l.cmd.posture)
		}

		if !l.cmd.move.ShouldMove() && time.Since(l.lastVoltageCheck) > voltageCheckPeriod {
			l.lastVoltageCheck = time.Now()
			l.checkVoltage()
		}

		if l.handleLowBattery() {
			l.tick()
			continue
		}

		if l.posture != Standing {
			l.tick()
			continue
		}

		if sl := l.cmd.singleLeg; sl != nil {
			l.singleLeg(*sl)
			l.wasSingle = true
			l.tick()
			continue
		}
		if l.wasSingle {
			l.wasSingle = false
			l.transitionDirect(0.005, l.transformedRelaxed())
			continue
		}

		if l.cmd.move.ShouldMove() || l.shouldResetLegs() {
			l.walkStep()
			continue
		}

		// standing still: ease toward the commanded body transform
		l.shiftTransformation()
		transformed := l.transformedRelaxed()
		if l.currentPose() != transformed {
			l.writePose(transformed)
		}

		if l.dances > 0 {
			l.dances--
			l.dance()
		}

		l.tick()
	}
}

// handleQueued runs one ordered command, and returns true on terminate.
func (l *loop) handleQueued(qc queuedCommand) bool {
	switch qc.kind {
	case queueTerminate:
		return true
	case queueDance:
		l.dances++
	case queueDisableMotors:
		if err := l.body.SetTorque(false); err != nil {
			log.Errorf("disabling motors: %s", err)
		}
	case queueSetSpeed:
		if err := l.body.SetSpeed(qc.arg); err != nil {
			log.Errorf("setting motor speed: %s", err)
		}
	case queueSetCompliance:
		if err := l.body.SetCompliance(qc.arg); err != nil {
			log.Errorf("setting compliance: %s", err)
		}
	}
	return false
}

// handleBodyFailure is the end of the road: the motor layer died, so halt
// all motion, try to settle and release, and leave the loop. The writes
// land if any part of the bus still works, and are harmless if not.
func (l *loop) handleBodyFailure(err error) {
	log.Errorf("body controller failed, halting: %s", err)
	if l.posture == Standing {
		l.sitDown()
		l.setPosture(Grounded)
	}
}

// handleLowBattery grounds the robot once the battery flag is set, and
// reports whether it acted.
func (l *loop) handleLowBattery() bool {
	if !l.lowBattery() || l.posture != Standing {
		return false
	}
	log.Warn("low battery, sitting down")
	l.sitDown()
	l.setPosture(Grounded)
	return true
}

// initializePosture reads the motors back and guesses the starting posture:
// sitting near the grounded stance, or folded up.
func (l *loop) initializePosture() {
	joints, err := l.body.ReadJoints()
	if err != nil {
		log.Warnf("reading startup pose, assuming folded: %s", err)
		l.setPosture(Folded)
		return
	}

	pose := ik.Forward(joints, l.cfg)
	l.snapMu.Lock()
	l.lastJoints = joints
	l.lastWritten = pose
	l.snapMu.Unlock()

	if checkIfFolded(joints) {
		l.setPosture(Folded)
		return
	}

	grounded := groundedStance()
	near := true
	for _, leg := range hexapod.Legs {
		if pose[leg].Distance(grounded[leg]) > groundedTolerance {
			near = false
			break
		}
	}
	if near {
		l.setPosture(Grounded)
	} else {
		l.setPosture(Folded)
	}
}

func (l *loop) checkVoltage() {
	v := l.body.MeanVoltage()
	if v == 0 {
		// nothing sampled yet
		return
	}
	log.Debugf("voltage: %.2fv", v)
	if v < minVoltage {
		log.Warnf("low voltage: %.2fv", v)
		l.snapMu.Lock()
		l.battLow = true
		l.snapMu.Unlock()
	}
}

// writePose solves the pose and hands the joints to the body. An unreachable
// pose is logged and skipped; the motors simply keep their last target.
func (l *loop) writePose(pose hexapod.LegPositions) bool {
	joints, err := ik.Solve(pose, l.cfg)
	if err != nil {
		log.Errorf("skipping pose: %s", err)
		return false
	}

	l.body.SetJoints(joints)
	l.snapMu.Lock()
	l.lastWritten = pose
	l.lastJoints = joints
	l.snapMu.Unlock()
	return true
}

// writeJoints writes raw joint angles, bypassing IK. Used by the folding
// sequences, which think in joint space.
func (l *loop) writeJoints(joints hexapod.BodyJoints) {
	l.body.SetJoints(joints)
	l.snapMu.Lock()
	l.lastJoints = joints
	l.lastWritten = ik.Forward(joints, l.cfg)
	l.snapMu.Unlock()
}

// transitionDirect slides every foot in a straight line through the given
// poses.
func (l *loop) transitionDirect(stride float64, targets ...hexapod.LegPositions) {
	for _, target := range targets {
		current := l.currentPose()
		for {
			next, moved := current.MoveTowards(target, stride)
			if !moved {
				break
			}
			current = next
			l.writePose(next)
			l.tick()
		}
	}
}

// transitionStep walks every foot through the given poses, one tripod at a
// time, lifting legs as it goes.
func (l *loop) transitionStep(targets ...hexapod.LegPositions) {
	for _, target := range targets {
		for i := 0; i < 2; i++ {
			l.lastTripod = l.lastTripod.Invert()
			merged := l.currentPose().MergeWith(target, l.lastTripod.Flags())
			step := gait.NewStep(l.currentPose(), merged, maxMove, nonWalkStepHeight, l.lastTripod)
			for {
				pose, ok := step.Next()
				if !ok {
					break
				}
				l.writePose(pose)
				l.tick()
			}
		}
	}
}

func (l *loop) standUp() {
	if joints, err := l.body.ReadJoints(); err == nil {
		l.snapMu.Lock()
		l.lastJoints = joints
		l.lastWritten = ik.Forward(joints, l.cfg)
		l.snapMu.Unlock()
	} else {
		log.Warnf("reading pose before standing: %s", err)
	}

	l.transitionDirect(0.005, groundedStance())
	l.transitionDirect(0.003, relaxedWideStance())
	l.transitionStep(relaxedStance())
}

func (l *loop) sitDown() {
	l.transitionStep(relaxedWideStance())
	l.transitionDirect(maxMove, groundedStance())
	if err := l.body.SetTorque(false); err != nil {
		log.Errorf("disabling motors after sitting: %s", err)
	}
}

func (l *loop) handlePostureTransition(desired Posture) {
	if l.posture == desired {
		return
	}
	if desired == Standing && l.lowBattery() {
		log.Debug("low battery, refusing to stand")
		return
	}
	log.Infof("posture %s -> %s", l.posture, desired)

	switch {
	case l.posture == Folded && desired == Grounded:
		l.unfoldOnGround()
		l.setPosture(Grounded)

	case l.posture == Folded && desired == Standing:
		l.unfoldOnGround()
		l.setPosture(Grounded)
		l.standUp()
		l.setPosture(Standing)

	case l.posture == Grounded && desired == Standing:
		l.standUp()
		l.setPosture(Standing)

	case l.posture == Standing && desired == Grounded:
		l.sitDown()
		l.setPosture(Grounded)

	case l.posture == Standing && desired == Folded:
		l.sitDown()
		l.setPosture(Grounded)
		l.foldOnGround()
		l.setPosture(Folded)

	case l.posture == Grounded && desired == Folded:
		l.foldOnGround()
		l.setPosture(Folded)
	}
}

// shiftTransformation eases the standing body transform toward the command,
// a bounded step per tick.
func (l *loop) shiftTransformation() {
	translation, _ := moveVectorTowards(l.currentTranslation, l.cmd.translation, maxTranslationStep)
	l.currentTranslation = translation

	rotation, _ := l.currentRotation.RotateTowards(l.cmd.rotation, maxRotationStep)
	l.currentRotation = rotation
}

func (l *loop) transformedRelaxed() hexapod.LegPositions {
	return l.baseRelaxed.Transform(l.currentTranslation, l.currentRotation)
}

func (l *loop) shouldResetLegs() bool {
	return !(l.lrlReset && l.rlrReset)
}

// walkStep performs one full tripod step toward the current move command,
// easing the body transform along the way.
func (l *loop) walkStep() {
	move := l.cmd.move

	l.lastTripod = l.lastTripod.Invert()
	target := gait.StepTarget(l.currentPose(), l.transformedRelaxed(), l.lastTripod, move)

	step := gait.NewStep(l.currentPose(), target, maxMove, walkStepHeight, l.lastTripod)
	for {
		pose, ok := step.Next()
		if !ok {
			break
		}
		l.shiftTransformation()
		l.writePose(pose)
		l.tick()
	}

	switch l.lastTripod {
	case gait.LRL:
		l.lrlReset = true
	case gait.RLR:
		l.rlrReset = true
	}
	if move.ShouldMove() {
		// legs need re-settling once motion stops
		l.lrlReset = false
		l.rlrReset = false
		l.advanceOdometry(move)
	}
}

// advanceOdometry integrates one completed step into the world estimate.
// Each step turns the body by half the commanded rotation and pushes it by
// the commanded direction.
func (l *loop) advanceOdometry(move gait.MoveCommand) {
	l.snapMu.Lock()
	l.worldYaw += move.Rotation / 2
	l.worldPos = l.worldPos.Add(move.Direction.Vector3().RotateZ(l.worldYaw))
	l.snapMu.Unlock()
}

// singleLeg lifts the selected legs toward their command while the body
// leans away from them.
func (l *loop) singleLeg(cmd SingleLegCommand) {
	relaxed := l.baseRelaxed

	roll, pitch := 0.0, 0.0
	if sel := relaxed.Selected(cmd.Legs); len(sel) == 1 {
		u := sel[0].Unit()
		roll = math3d.Rad(-3) * u.Y
		pitch = math3d.Rad(3) * u.X
	}
	lean := math3d.EulerAngles{Roll: roll, Pitch: pitch}

	desired := relaxed.Transform(math3d.Vector3{Z: -0.03}, lean)
	for _, leg := range hexapod.Legs {
		if cmd.Legs.Contains(leg.Flag()) {
			p := relaxed[leg]
			desired[leg] = math3d.Vector3{
				X: p.X*1.3 + cmd.Translation.X,
				Y: p.Y*1.3 + cmd.Translation.Y,
				Z: p.Z + 0.05 + cmd.Translation.Z,
			}
		}
	}

	l.writePose(desired)
}

// shutdown settles the robot and releases the body. Runs after the loop
// goroutine has exited, so the ticker is still live for the final
// transitions.
func (l *loop) shutdown() error {
	if l.posture == Standing {
		l.sitDown()
		l.setPosture(Grounded)
	}
	if l.ticker != nil {
		l.ticker.Stop()
	}
	if l.interval > 0 {
		time.Sleep(settleDelay)
	}
	if err := l.body.SetTorque(false); err != nil {
		log.Errorf("disabling motors at shutdown: %s", err)
	}
	return l.body.Close()
}

func (l *loop) currentPose() hexapod.LegPositions {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	return l.lastWritten
}

func (l *loop) currentJoints() hexapod.BodyJoints {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	return l.lastJoints
}

func (l *loop) odometry() (math3d.Vector3, float64) {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	return l.worldPos, l.worldYaw
}

func (l *loop) currentPosture() Posture {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	return l.posture
}

// setPosture publishes a posture change. Only the loop goroutine calls this,
// but currentPosture races against it.
func (l *loop) setPosture(p Posture) {
	l.snapMu.Lock()
	l.posture = p
	l.snapMu.Unlock()
}

func (l *loop) lowBattery() bool {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	return l.battLow
}

// moveVectorTowards advances a vector towards target by at most maxStep, the
// same termination contract as the pose and joint movers.
func moveVectorTowards(current math3d.Vector3, target math3d.Vector3, maxStep float64) (math3d.Vector3, bool) {
	if current == target {
		return target, false
	}
	if current.Distance(target) <= maxStep {
		return target, true
	}
	dir := target.Subtract(current).Unit()
	return current.Add(dir.MultiplyByScalar(maxStep)), true
}
