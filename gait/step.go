package gait

import (
	"math"

	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
)

// Step yields the intermediate poses of one tripod step. The lifted tripod
// arcs through the air (linear over the ground, half-sine in height), while
// the grounded tripod slides in a straight line. Progress advances by maxMove
// meters of the longest leg's ground-plane travel per call to Next.
type Step struct {
	start      hexapod.LegPositions
	current    hexapod.LegPositions
	target     hexapod.LegPositions
	maxMove    float64
	stepHeight float64
	tripod     Tripod
}

// NewStep starts a step from start to target, lifting the given tripod.
func NewStep(start hexapod.LegPositions, target hexapod.LegPositions, maxMove float64, stepHeight float64, tripod Tripod) *Step {
	return &Step{
		start:      start,
		current:    start,
		target:     target,
		maxMove:    maxMove,
		stepHeight: stepHeight,
		tripod:     tripod,
	}
}

// Next returns the next pose of the step, or false when every leg has landed
// on its target. A step whose start equals its target is already done.
func (s *Step) Next() (hexapod.LegPositions, bool) {
	fullDistance := s.start.MaxHorizontalDistance(s.target)
	currentDistance := math.Min(s.current.MaxHorizontalDistance(s.start)+s.maxMove, fullDistance)
	progress := currentDistance / fullDistance
	if math.IsNaN(progress) || math.IsInf(progress, 0) {
		// no horizontal travel to pace the step against: snap straight to
		// the target instead of hanging at zero progress
		progress = 1
	}

	lifted := s.tripod.Flags()
	moved := false
	next := hexapod.LegPositions{}
	for _, leg := range hexapod.Legs {
		var m bool
		if lifted.Contains(leg.Flag()) {
			next[leg], m = stepLiftedLeg(s.start[leg], s.current[leg], s.target[leg], s.stepHeight, progress)
		} else {
			next[leg], m = stepGroundedLeg(s.start[leg], s.current[leg], s.target[leg], progress)
		}
		moved = moved || m
	}

	if !moved {
		return s.current, false
	}
	s.current = next
	return next, true
}

func stepLiftedLeg(start math3d.Vector3, lastWritten math3d.Vector3, target math3d.Vector3, stepHeight float64, progress float64) (math3d.Vector3, bool) {
	if lastWritten == target {
		return target, false
	}
	if progress >= 1.0 {
		return target, true
	}

	return math3d.Vector3{
		X: start.X + (target.X-start.X)*progress,
		Y: start.Y + (target.Y-start.Y)*progress,
		Z: math.Sin(progress*math.Pi)*stepHeight + start.Z,
	}, true
}

func stepGroundedLeg(start math3d.Vector3, lastWritten math3d.Vector3, target math3d.Vector3, progress float64) (math3d.Vector3, bool) {
	if lastWritten == target {
		return target, false
	}
	if progress >= 1.0 {
		return target, true
	}

	return start.Add(target.Subtract(start).MultiplyByScalar(progress)), true
}

// StepTarget composes where one step should land: the lifted tripod returns
// to the relaxed stance carried forward by the command, and the grounded
// tripod pushes the body by dragging backwards from where it stands. Each
// side takes half of the commanded rotation, in opposite directions.
func StepTarget(start hexapod.LegPositions, relaxed hexapod.LegPositions, lifted Tripod, cmd MoveCommand) hexapod.LegPositions {
	motion := cmd.Direction.Vector3()

	target := hexapod.LegPositions{}
	flags := lifted.Flags()
	for _, leg := range hexapod.Legs {
		if flags.Contains(leg.Flag()) {
			target[leg] = relaxed[leg].Add(motion).RotateZ(cmd.Rotation / 2)
		} else {
			target[leg] = start[leg].Subtract(motion).RotateZ(-cmd.Rotation / 2)
		}
	}
	return target
}
