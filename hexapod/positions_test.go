package hexapod

import (
	"math"
	"testing"

	"github.com/dmweis/hopper-go/math3d"
	"github.com/stretchr/testify/assert"
)

func uniform(v math3d.Vector3) LegPositions {
	return LegPositions{v, v, v, v, v, v}
}

func TestMoveTowardsFullStep(t *testing.T) {
	from := uniform(math3d.Vector3{})
	to := uniform(math3d.Vector3{X: 1})

	new, moved := from.MoveTowards(to, 1.0)
	assert.True(t, moved)
	assert.Equal(t, to, new)
}

func TestMoveTowardsNoMove(t *testing.T) {
	p := uniform(math3d.Vector3{X: 1})

	new, moved := p.MoveTowards(p, 10.0)
	assert.False(t, moved)
	assert.Equal(t, p, new)
}

func TestMoveTowardsMultipleSteps(t *testing.T) {
	a := math3d.Vector3{}
	b := math3d.Vector3{X: 1}
	c := math3d.Vector3{X: 2}

	start := uniform(a)
	middle := uniform(b)
	target := uniform(b)
	target[RightRear] = c

	// one step moves everyone a meter
	new, moved := start.MoveTowards(target, 1.0)
	assert.True(t, moved)
	assert.Equal(t, middle, new)

	// the next finishes the straggler
	new, moved = new.MoveTowards(target, 1.0)
	assert.True(t, moved)
	assert.Equal(t, target, new)

	// and then there is nothing left to do
	new, moved = new.MoveTowards(target, 1.0)
	assert.False(t, moved)
	assert.Equal(t, target, new)
}

func TestMoveTowardsMovesCorrectLegs(t *testing.T) {
	start := uniform(math3d.Vector3{})
	target := LegPositions{}
	for i, leg := range Legs {
		target[leg] = math3d.Vector3{X: float64(i + 1)}
	}

	step := start
	moved := true
	count := 0
	for moved {
		step, moved = step.MoveTowards(target, 1.0)
		count++
	}

	// six steps for the slowest leg, one more to notice
	assert.Equal(t, target, step)
	assert.Equal(t, 7, count)
}

func TestMoveTowardsPlanarBound(t *testing.T) {
	// the step bound applies to the remaining ground-plane distance, so a
	// purely vertical difference snaps in a single step
	from := uniform(math3d.Vector3{})
	to := uniform(math3d.Vector3{Z: 0.5})

	new, moved := from.MoveTowards(to, 0.01)
	assert.True(t, moved)
	assert.Equal(t, to, new)
}

func TestMergeWith(t *testing.T) {
	a := uniform(math3d.Vector3{X: 1})
	b := uniform(math3d.Vector3{X: 2})

	merged := a.MergeWith(b, RLRTripod)
	for _, leg := range Legs {
		if RLRTripod.Contains(leg.Flag()) {
			assert.Equal(t, b[leg], merged[leg], "%v", leg)
		} else {
			assert.Equal(t, a[leg], merged[leg], "%v", leg)
		}
	}
}

func TestTransform(t *testing.T) {
	p := uniform(math3d.Vector3{X: 1})

	// translate up, then yaw a quarter turn
	moved := p.Transform(math3d.Vector3{Z: 0.1}, *math3d.MakeYaw(math.Pi/2))
	for _, leg := range Legs {
		assert.InDelta(t, 0, moved[leg].X, 0.0001)
		assert.InDelta(t, 1, moved[leg].Y, 0.0001)
		assert.InDelta(t, 0.1, moved[leg].Z, 0.0001)
	}
}

func TestMaxHorizontalDistance(t *testing.T) {
	a := uniform(math3d.Vector3{})
	b := uniform(math3d.Vector3{})
	b[LeftMiddle] = math3d.Vector3{X: 3, Y: 4, Z: 100}
	b[RightRear] = math3d.Vector3{X: 1}

	// the vertical component doesn't count
	assert.InDelta(t, 5.0, a.MaxHorizontalDistance(b), 0.0001)
}
