package motion

import (
	"math"
	"time"

	"github.com/dmweis/hopper-go/hexapod"
)

// The folding sequences run in joint space rather than cartesian space,
// because the folded configurations are far outside the workspace the solver
// covers. Waypoints are written in bus degrees (150 is centered) and stored
// as radians via hexapod.Angle.

const (
	// Per-tick joint strides, in radians.
	foldStride       = math.Pi / 180 * 1.3
	foldGroundStride = math.Pi / 180 * 1.0

	// A joint within this much of its folded target counts as folded.
	foldedTolerance = math.Pi / 180 * 20
)

var (
	leftLegs  = []hexapod.Leg{hexapod.LeftFront, hexapod.LeftMiddle, hexapod.LeftRear}
	rightLegs = []hexapod.Leg{hexapod.RightFront, hexapod.RightMiddle, hexapod.RightRear}
)

// moveJointsTowards steps the live joints toward the given partial targets
// until nothing moves, writing each intermediate set to the body.
func (l *loop) moveJointsTowards(target hexapod.OptionalBodyJoints, stride float64) {
	current := l.currentJoints()
	for {
		next, moved := current.MoveTowards(target, stride)
		if !moved {
			break
		}
		current = next
		l.writeJoints(next)
		l.tick()
	}
}

// settleAndRelease waits for the last targets to land, then cuts torque.
func (l *loop) settleAndRelease() {
	if l.interval > 0 {
		time.Sleep(settleDelay)
	}
	if err := l.body.SetTorque(false); err != nil {
		log.Errorf("disabling motors after folding: %s", err)
	}
}

// foldedFemurTibia tucks every femur and tibia against the body, leaving the
// coxas alone.
func foldedFemurTibia() hexapod.OptionalBodyJoints {
	var t hexapod.OptionalBodyJoints
	for _, leg := range leftLegs {
		t[leg].Femur = hexapod.Angle(60)
		t[leg].Tibia = hexapod.Angle(240)
	}
	for _, leg := range rightLegs {
		t[leg].Femur = hexapod.Angle(240)
		t[leg].Tibia = hexapod.Angle(60)
	}
	return t
}

// foldedCoxas returns the coxa angles of the fully folded configuration. The
// middle legs can fold either forward or backward, so they get two candidate
// sets.
func foldedCoxas() (front hexapod.OptionalBodyJoints, middleA hexapod.OptionalBodyJoints, middleB hexapod.OptionalBodyJoints) {
	front[hexapod.LeftFront].Coxa = hexapod.Angle(240)
	front[hexapod.LeftRear].Coxa = hexapod.Angle(60)
	front[hexapod.RightFront].Coxa = hexapod.Angle(60)
	front[hexapod.RightRear].Coxa = hexapod.Angle(240)

	middleA[hexapod.LeftMiddle].Coxa = hexapod.Angle(60)
	middleA[hexapod.RightMiddle].Coxa = hexapod.Angle(60)
	middleB[hexapod.LeftMiddle].Coxa = hexapod.Angle(240)
	middleB[hexapod.RightMiddle].Coxa = hexapod.Angle(240)
	return
}

// jointsNear reports whether every joint named in target is within tol of
// its current angle.
func jointsNear(current hexapod.BodyJoints, target hexapod.OptionalBodyJoints, tol float64) bool {
	for _, leg := range hexapod.Legs {
		t := target[leg]
		c := current[leg]
		if t.Coxa != nil && math.Abs(c.Coxa-*t.Coxa) > tol {
			return false
		}
		if t.Femur != nil && math.Abs(c.Femur-*t.Femur) > tol {
			return false
		}
		if t.Tibia != nil && math.Abs(c.Tibia-*t.Tibia) > tol {
			return false
		}
	}
	return true
}

// checkIfFolded reports whether the given joints look like the folded
// configuration. The middle coxas may be folded in either direction.
func checkIfFolded(joints hexapod.BodyJoints) bool {
	front, middleA, middleB := foldedCoxas()
	if !jointsNear(joints, front, foldedTolerance) {
		return false
	}
	lm, rm := joints[hexapod.LeftMiddle].Coxa, joints[hexapod.RightMiddle].Coxa
	nearA := math.Abs(lm-*middleA[hexapod.LeftMiddle].Coxa) <= foldedTolerance ||
		math.Abs(lm-*middleB[hexapod.LeftMiddle].Coxa) <= foldedTolerance
	nearB := math.Abs(rm-*middleA[hexapod.RightMiddle].Coxa) <= foldedTolerance ||
		math.Abs(rm-*middleB[hexapod.RightMiddle].Coxa) <= foldedTolerance
	return nearA && nearB
}

// coxas builds a partial target setting only the named coxa angles.
func coxas(pairs ...legAngle) hexapod.OptionalBodyJoints {
	var t hexapod.OptionalBodyJoints
	for _, p := range pairs {
		t[p.leg].Coxa = hexapod.Angle(p.degrees)
	}
	return t
}

// limbs builds a partial target setting femur and tibia for the named legs.
func limbs(pairs ...legLimb) hexapod.OptionalBodyJoints {
	var t hexapod.OptionalBodyJoints
	for _, p := range pairs {
		t[p.leg].Femur = hexapod.Angle(p.femur)
		t[p.leg].Tibia = hexapod.Angle(p.tibia)
	}
	return t
}

type legAngle struct {
	leg     hexapod.Leg
	degrees float64
}

type legLimb struct {
	leg   hexapod.Leg
	femur float64
	tibia float64
}

// unfoldOnGround unpacks the robot from the folded carry configuration into
// the grounded stance, one leg group at a time so the body never tips.
func (l *loop) unfoldOnGround() {
	log.Info("unfolding")

	l.moveJointsTowards(foldedFemurTibia(), foldGroundStride)

	// plant the middle tibias so they can take weight
	var middleTibias hexapod.OptionalBodyJoints
	middleTibias[hexapod.LeftMiddle].Tibia = hexapod.Angle(200)
	middleTibias[hexapod.RightMiddle].Tibia = hexapod.Angle(100)
	l.moveJointsTowards(middleTibias, foldGroundStride)

	l.moveJointsTowards(coxas(
		legAngle{hexapod.LeftMiddle, 150},
		legAngle{hexapod.RightMiddle, 150},
	), foldGroundStride)

	// shift weight onto the right middle leg while the right side unpacks
	l.moveJointsTowards(limbs(legLimb{hexapod.RightMiddle, 170, 100}), foldGroundStride)

	l.moveJointsTowards(coxas(
		legAngle{hexapod.RightFront, 195},
		legAngle{hexapod.RightRear, 105},
	), foldGroundStride)

	var rightTibias hexapod.OptionalBodyJoints
	rightTibias[hexapod.RightFront].Tibia = hexapod.Angle(90)
	rightTibias[hexapod.RightRear].Tibia = hexapod.Angle(90)
	l.moveJointsTowards(rightTibias, foldGroundStride)

	// swap the supporting side
	l.moveJointsTowards(limbs(
		legLimb{hexapod.LeftMiddle, 130, 200},
		legLimb{hexapod.RightMiddle, 240, 90},
	), foldGroundStride)

	l.moveJointsTowards(coxas(
		legAngle{hexapod.LeftFront, 105},
		legAngle{hexapod.LeftRear, 195},
	), foldGroundStride)

	var leftTibias hexapod.OptionalBodyJoints
	leftTibias[hexapod.LeftFront].Tibia = hexapod.Angle(210)
	leftTibias[hexapod.LeftRear].Tibia = hexapod.Angle(210)
	l.moveJointsTowards(leftTibias, foldGroundStride)

	l.moveJointsTowards(limbs(legLimb{hexapod.LeftMiddle, 60, 210}), foldGroundStride)

	l.settleAndRelease()
}

// flatOnGround spreads every leg straight out with the body resting on the
// ground, the starting point for folding.
func flatOnGround() hexapod.OptionalBodyJoints {
	var t hexapod.OptionalBodyJoints
	for _, leg := range hexapod.Legs {
		t[leg].Coxa = hexapod.Angle(150)
	}
	for _, leg := range leftLegs {
		t[leg].Femur = hexapod.Angle(60)
		t[leg].Tibia = hexapod.Angle(210)
	}
	for _, leg := range rightLegs {
		t[leg].Femur = hexapod.Angle(240)
		t[leg].Tibia = hexapod.Angle(90)
	}
	return t
}

// foldOnGround packs the robot from the grounded stance into the folded
// carry configuration, the reverse of unfoldOnGround.
func (l *loop) foldOnGround() {
	log.Info("folding")

	l.moveJointsTowards(flatOnGround(), foldGroundStride)

	// support on the right middle leg while the right side packs up
	l.moveJointsTowards(limbs(legLimb{hexapod.RightMiddle, 170, 100}), foldGroundStride)

	l.moveJointsTowards(limbs(
		legLimb{hexapod.RightFront, 240, 60},
		legLimb{hexapod.RightRear, 240, 60},
	), foldGroundStride)

	l.moveJointsTowards(coxas(
		legAngle{hexapod.RightFront, 60},
		legAngle{hexapod.RightRear, 240},
	), foldGroundStride)

	// swap the supporting side
	l.moveJointsTowards(limbs(
		legLimb{hexapod.LeftMiddle, 130, 200},
		legLimb{hexapod.RightMiddle, 240, 90},
	), foldGroundStride)

	l.moveJointsTowards(limbs(
		legLimb{hexapod.LeftFront, 60, 240},
		legLimb{hexapod.LeftRear, 60, 240},
	), foldGroundStride)

	l.moveJointsTowards(coxas(
		legAngle{hexapod.LeftFront, 240},
		legAngle{hexapod.LeftRear, 60},
	), foldGroundStride)

	l.moveJointsTowards(limbs(legLimb{hexapod.LeftMiddle, 60, 210}), foldGroundStride)

	// swing the middle coxas clear of the packed edge legs before tucking
	l.moveJointsTowards(coxas(
		legAngle{hexapod.LeftMiddle, 230},
		legAngle{hexapod.RightMiddle, 70},
	), foldGroundStride)

	l.moveJointsTowards(limbs(
		legLimb{hexapod.LeftMiddle, 60, 240},
		legLimb{hexapod.RightMiddle, 240, 60},
	), foldGroundStride)

	l.settleAndRelease()
}
