package hexapod

import (
	"testing"

	"github.com/dmweis/hopper-go/math3d"
	"github.com/stretchr/testify/assert"
)

func TestOptionalMergeWith(t *testing.T) {
	base := BodyJoints{}
	for _, leg := range Legs {
		base[leg] = LegJoints{Coxa: 1, Femur: 2, Tibia: 3}
	}

	opt := OptionalBodyJoints{}
	opt[LeftFront].Femur = Angle(150)
	opt[RightRear].Coxa = Angle(90)

	merged := opt.MergeWith(base)

	assert.Equal(t, 1.0, merged[LeftFront].Coxa)
	assert.InDelta(t, math3d.Rad(150), merged[LeftFront].Femur, 0.0001)
	assert.Equal(t, 3.0, merged[LeftFront].Tibia)
	assert.InDelta(t, math3d.Rad(90), merged[RightRear].Coxa, 0.0001)
	assert.Equal(t, base[LeftMiddle], merged[LeftMiddle])
}

func TestOptionalRoundTrip(t *testing.T) {
	b := BodyJoints{}
	for i, leg := range Legs {
		b[leg] = LegJoints{Coxa: float64(i), Femur: float64(i) + 0.1, Tibia: float64(i) + 0.2}
	}

	assert.Equal(t, b, b.Optional().MergeWith(BodyJoints{}))
}

func TestJointsMoveTowards(t *testing.T) {
	start := BodyJoints{}

	target := OptionalBodyJoints{}
	coxa := 0.75
	target[LeftFront].Coxa = &coxa

	joints := start
	moved := true
	count := 0
	for moved {
		joints, moved = joints.MoveTowards(target, 0.25)
		count++
	}

	// three steps to arrive, one more to notice
	assert.Equal(t, 4, count)
	assert.Equal(t, 0.75, joints[LeftFront].Coxa)

	// absent joints never move
	assert.Equal(t, 0.0, joints[LeftFront].Femur)
	assert.Equal(t, LegJoints{}, joints[RightMiddle])
}

func TestJointsMoveTowardsClamped(t *testing.T) {
	start := BodyJoints{}
	start[LeftRear] = LegJoints{Coxa: 1, Femur: -1}

	target := OptionalBodyJoints{}
	zero := 0.0
	target[LeftRear].Coxa = &zero
	target[LeftRear].Femur = &zero

	next, moved := start.MoveTowards(target, 0.25)
	assert.True(t, moved)
	assert.Equal(t, 0.75, next[LeftRear].Coxa)
	assert.Equal(t, -0.75, next[LeftRear].Femur)
}
