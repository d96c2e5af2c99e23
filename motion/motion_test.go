package motion

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmweis/hopper-go/config"
	"github.com/dmweis/hopper-go/gait"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/ik"
	"github.com/dmweis/hopper-go/math3d"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBody remembers everything written to it.
type fakeBody struct {
	mu        sync.Mutex
	joints    hexapod.BodyJoints
	writes    int
	torque    []bool
	speeds    []int
	slopes    []int
	voltage   float64
	readErr   error
	healthErr error
	closed    bool
}

func (b *fakeBody) SetJoints(joints hexapod.BodyJoints) {
	b.mu.Lock()
	b.joints = joints
	b.writes++
	b.mu.Unlock()
}

func (b *fakeBody) SetSpeed(speed int) error {
	b.mu.Lock()
	b.speeds = append(b.speeds, speed)
	b.mu.Unlock()
	return nil
}

func (b *fakeBody) SetCompliance(slope int) error {
	b.mu.Lock()
	b.slopes = append(b.slopes, slope)
	b.mu.Unlock()
	return nil
}

func (b *fakeBody) SetTorque(enabled bool) error {
	b.mu.Lock()
	b.torque = append(b.torque, enabled)
	b.mu.Unlock()
	return nil
}

func (b *fakeBody) ReadJoints() (hexapod.BodyJoints, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return hexapod.BodyJoints{}, b.readErr
	}
	return b.joints, nil
}

func (b *fakeBody) MeanVoltage() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voltage
}

func (b *fakeBody) Healthy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.healthErr
}

func (b *fakeBody) fail(err error) {
	b.mu.Lock()
	b.healthErr = err
	b.mu.Unlock()
}

func (b *fakeBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *fakeBody) lastTorque() (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.torque) == 0 {
		return false, false
	}
	return b.torque[len(b.torque)-1], true
}

// newTestController builds a controller whose loop runs without a ticker, so
// tests can either drive the loop methods directly or spin it on a
// goroutine.
func newTestController(t *testing.T, body Body) *Controller {
	t.Helper()
	c := &Controller{
		queue: make(chan queuedCommand, 16),
		done:  make(chan struct{}),
	}
	c.loop = newLoop(body, config.Default(), 0, c)
	return c
}

func groundedJoints(t *testing.T) hexapod.BodyJoints {
	t.Helper()
	joints, err := ik.Solve(groundedStance(), config.Default())
	require.NoError(t, err)
	return joints
}

func TestInitializePosture(t *testing.T) {
	// motors sitting in the grounded stance
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	c.loop.initializePosture()
	assert.Equal(t, Grounded, c.loop.currentPosture())

	// motors in the folded configuration
	body = &fakeBody{joints: folded(t)}
	c = newTestController(t, body)
	c.loop.initializePosture()
	assert.Equal(t, Folded, c.loop.currentPosture())

	// unreadable motors: assume the safest
	body = &fakeBody{readErr: errors.New("no reply")}
	c = newTestController(t, body)
	c.loop.initializePosture()
	assert.Equal(t, Folded, c.loop.currentPosture())
}

// folded returns joint angles matching the folded carry configuration.
func folded(t *testing.T) hexapod.BodyJoints {
	t.Helper()
	var b hexapod.BodyJoints
	b[hexapod.LeftFront] = hexapod.LegJoints{Coxa: *hexapod.Angle(240), Femur: *hexapod.Angle(60), Tibia: *hexapod.Angle(240)}
	b[hexapod.LeftMiddle] = hexapod.LegJoints{Coxa: *hexapod.Angle(230), Femur: *hexapod.Angle(60), Tibia: *hexapod.Angle(240)}
	b[hexapod.LeftRear] = hexapod.LegJoints{Coxa: *hexapod.Angle(60), Femur: *hexapod.Angle(60), Tibia: *hexapod.Angle(240)}
	b[hexapod.RightFront] = hexapod.LegJoints{Coxa: *hexapod.Angle(60), Femur: *hexapod.Angle(240), Tibia: *hexapod.Angle(60)}
	b[hexapod.RightMiddle] = hexapod.LegJoints{Coxa: *hexapod.Angle(70), Femur: *hexapod.Angle(240), Tibia: *hexapod.Angle(60)}
	b[hexapod.RightRear] = hexapod.LegJoints{Coxa: *hexapod.Angle(240), Femur: *hexapod.Angle(240), Tibia: *hexapod.Angle(60)}
	return b
}

func TestCheckIfFolded(t *testing.T) {
	assert.True(t, checkIfFolded(folded(t)))

	// middle coxas folded the other way around still count
	swapped := folded(t)
	swapped[hexapod.LeftMiddle].Coxa = *hexapod.Angle(70)
	swapped[hexapod.RightMiddle].Coxa = *hexapod.Angle(230)
	assert.True(t, checkIfFolded(swapped))

	// an edge coxa out of place does not
	open := folded(t)
	open[hexapod.LeftFront].Coxa = *hexapod.Angle(150)
	assert.False(t, checkIfFolded(open))

	assert.False(t, checkIfFolded(groundedJoints(t)))
}

func TestStandUpSitDown(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	require.Equal(t, Grounded, l.currentPosture())

	l.standUp()
	assert.Equal(t, relaxedStance(), l.currentPose())
	assert.True(t, body.writes > 0)

	l.sitDown()
	assert.Equal(t, groundedStance(), l.currentPose())
	enabled, ok := body.lastTorque()
	require.True(t, ok)
	assert.False(t, enabled, "sitting down should release the motors")
}

func TestPostureTransitions(t *testing.T) {
	body := &fakeBody{joints: folded(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	require.Equal(t, Folded, l.currentPosture())

	l.handlePostureTransition(Standing)
	assert.Equal(t, Standing, l.currentPosture())
	assert.Equal(t, relaxedStance(), l.currentPose())

	l.handlePostureTransition(Folded)
	assert.Equal(t, Folded, l.currentPosture())
	assert.True(t, checkIfFolded(l.currentJoints()))
}

func TestFoldUnfoldRoundTrip(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()

	l.foldOnGround()
	assert.True(t, checkIfFolded(l.currentJoints()))
	enabled, ok := body.lastTorque()
	require.True(t, ok)
	assert.False(t, enabled)

	l.unfoldOnGround()
	joints := l.currentJoints()
	assert.False(t, checkIfFolded(joints))

	// unfolding ends with the legs spread: middle coxas centered, edge
	// coxas swung out
	assert.Equal(t, *hexapod.Angle(150), joints[hexapod.LeftMiddle].Coxa)
	assert.Equal(t, *hexapod.Angle(150), joints[hexapod.RightMiddle].Coxa)
	assert.Equal(t, *hexapod.Angle(105), joints[hexapod.LeftFront].Coxa)
	assert.Equal(t, *hexapod.Angle(195), joints[hexapod.LeftRear].Coxa)
	assert.Equal(t, *hexapod.Angle(195), joints[hexapod.RightFront].Coxa)
	assert.Equal(t, *hexapod.Angle(105), joints[hexapod.RightRear].Coxa)
}

func TestWalkAdvancesOdometry(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	l.standUp()
	l.setPosture(Standing)

	l.cmd.move = gait.MoveCommand{Direction: math3d.Vector2{X: 0.004}}
	l.walkStep()
	l.walkStep()

	pos, yaw := l.odometry()
	assert.InDelta(t, 0.008, pos.X, 0.0001)
	assert.InDelta(t, 0, pos.Y, 0.0001)
	assert.InDelta(t, 0, yaw, 0.0001)

	// stopping leaves the legs needing a reset
	assert.True(t, l.shouldResetLegs())
	l.cmd.move = gait.MoveCommand{}
	l.walkStep()
	l.walkStep()
	assert.False(t, l.shouldResetLegs())
	assert.Equal(t, relaxedStance(), l.currentPose())
}

func TestWalkRotationTurnsOdometry(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	l.standUp()
	l.setPosture(Standing)

	rot := math3d.Rad(5)
	l.cmd.move = gait.MoveCommand{Rotation: rot}
	l.walkStep()
	l.walkStep()

	_, yaw := l.odometry()
	assert.InDelta(t, rot, yaw, 0.0001)
}

func TestSingleLegLean(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	l.standUp()

	relaxed := relaxedStance()
	l.singleLeg(SingleLegCommand{Legs: hexapod.LeftFrontFlag})
	pose := l.currentPose()

	// the selected foot is pushed out and lifted
	lf := pose[hexapod.LeftFront]
	assert.InDelta(t, relaxed[hexapod.LeftFront].X*1.3, lf.X, 0.0001)
	assert.InDelta(t, relaxed[hexapod.LeftFront].Y*1.3, lf.Y, 0.0001)
	assert.InDelta(t, relaxed[hexapod.LeftFront].Z+0.05, lf.Z, 0.0001)

	// the rest of the body drops to lean away
	assert.True(t, pose[hexapod.RightMiddle].Z < relaxed[hexapod.RightMiddle].Z)

	// an extra translation rides on top of the lifted foot
	l.singleLeg(SingleLegCommand{
		Legs:        hexapod.LeftFrontFlag,
		Translation: math3d.Vector3{X: 0.01, Z: 0.01},
	})
	moved := l.currentPose()[hexapod.LeftFront]
	assert.InDelta(t, lf.X+0.01, moved.X, 0.0001)
	assert.InDelta(t, lf.Z+0.01, moved.Z, 0.0001)
}

func TestBodyTransformEases(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop

	l.cmd.translation = math3d.Vector3{Z: 0.02}
	l.shiftTransformation()
	assert.InDelta(t, maxTranslationStep, l.currentTranslation.Z, 1e-9)

	for i := 0; i < 10; i++ {
		l.shiftTransformation()
	}
	assert.Equal(t, 0.02, l.currentTranslation.Z)

	lifted := l.transformedRelaxed()
	relaxed := relaxedStance()
	for _, leg := range hexapod.Legs {
		assert.InDelta(t, relaxed[leg].Z-0.02, lifted[leg].Z, 0.0001)
	}
}

func TestUnreachablePoseSkipped(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t)}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	before := l.currentPose()
	writes := body.writes

	// a rear leg can never reach far ahead of the body
	bad := relaxedStance()
	bad[hexapod.LeftRear] = math3d.Vector3{X: 10}
	assert.False(t, l.writePose(bad))
	assert.Equal(t, before, l.currentPose(), "a failed solve must not move the published pose")
	assert.Equal(t, writes, body.writes)
}

func TestLowVoltageFlag(t *testing.T) {
	body := &fakeBody{voltage: 11.2}
	c := newTestController(t, body)
	c.loop.checkVoltage()
	assert.False(t, c.loop.lowBattery())

	body.voltage = 9.1
	c.loop.checkVoltage()
	assert.True(t, c.loop.lowBattery())
}

func TestBodyFailureGroundsRobot(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t), voltage: 11.5}
	c := newTestController(t, body)
	go c.run()

	c.SetPosture(Standing)
	assert.Eventually(t, func() bool {
		return c.Posture() == Standing
	}, 5*time.Second, time.Millisecond)

	// the motor layer dies: the loop must settle, release, and halt
	body.fail(errors.New("port gone"))
	assert.Eventually(t, func() bool {
		select {
		case <-c.done:
			return true
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond, "the loop must stop commanding a dead bus")

	assert.Equal(t, Grounded, c.Posture())
	enabled, ok := body.lastTorque()
	require.True(t, ok)
	assert.False(t, enabled)
}

func TestLowBatteryGroundsRobot(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t), voltage: 11.5}
	c := newTestController(t, body)
	l := c.loop
	l.initializePosture()
	l.standUp()
	l.setPosture(Standing)

	body.mu.Lock()
	body.voltage = 9.0
	body.mu.Unlock()
	l.checkVoltage()
	require.True(t, l.lowBattery())

	require.True(t, l.handleLowBattery())
	assert.Equal(t, Grounded, l.currentPosture())
	enabled, ok := body.lastTorque()
	require.True(t, ok)
	assert.False(t, enabled, "a flat battery must not be left holding torque")

	// once grounded there is nothing more to do
	assert.False(t, l.handleLowBattery())

	// and standing back up is refused until the battery recovers
	l.handlePostureTransition(Standing)
	assert.Equal(t, Grounded, l.currentPosture())
}

func TestHappyDance(t *testing.T) {
	start := relaxedStance()
	poses := happyDance(start)
	require.NotEmpty(t, poses)
	assert.Equal(t, start, poses[len(poses)-1], "the dance must end where it began")

	for i, pose := range poses {
		if i > 0 {
			for _, leg := range hexapod.Legs {
				d := pose[leg].Distance(poses[i-1][leg])
				assert.True(t, d <= maxMove+1e-9, "pose %d moves a foot %.4fm", i, d)
			}
		}
	}
}

func TestControllerLifecycle(t *testing.T) {
	body := &fakeBody{joints: groundedJoints(t), voltage: 11.5}
	c := newTestController(t, body)
	go c.run()

	c.SetPosture(Standing)
	assert.Eventually(t, func() bool {
		return c.Posture() == Standing
	}, 5*time.Second, time.Millisecond)

	c.SetMove(gait.MoveCommand{Direction: math3d.Vector2{X: 0.002}})
	assert.Eventually(t, func() bool {
		pos, _ := c.Odometry()
		return pos.X > 0.01
	}, 5*time.Second, time.Millisecond)
	c.SetMove(gait.MoveCommand{})

	c.SetSpeed(512)
	c.SetCompliance(64)
	assert.Eventually(t, func() bool {
		body.mu.Lock()
		defer body.mu.Unlock()
		return len(body.speeds) == 1 && len(body.slopes) == 1
	}, 5*time.Second, time.Millisecond)
	body.mu.Lock()
	assert.Equal(t, []int{512}, body.speeds)
	assert.Equal(t, []int{64}, body.slopes)
	body.mu.Unlock()

	require.NoError(t, c.Close())
	assert.Equal(t, Grounded, c.Posture(), "closing while standing sits the robot down")
	body.mu.Lock()
	assert.True(t, body.closed)
	body.mu.Unlock()

	// setters must not block after close
	c.StartDance()
	require.NoError(t, c.Close())
}
