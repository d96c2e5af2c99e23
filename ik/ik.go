// Package ik converts foot positions into motor-bus joint angles and back.
// Legs are solved analytically: the coxa yaw aims the leg plane at the
// target, and the femur and tibia angles fall out of the triangle formed by
// the two links and the line from coxa tip to foot.
package ik

import (
	"fmt"
	"math"

	"github.com/dmweis/hopper-go/config"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
)

// All motors on the bus are centered at 150 degrees.
var busCenter = math3d.Rad(150)

// maxYaw is how far a coxa can aim away from its mount direction.
const maxYaw = math.Pi / 2

// UnreachableError is returned when a foot target needs more coxa yaw than
// the joint has.
type UnreachableError struct {
	Leg    hexapod.Leg
	Target math3d.Vector3
	Yaw    float64
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s can't reach %s (yaw %+.1f°)", e.Leg, e.Target, math3d.Deg(e.Yaw))
}

// SolveLeg returns the bus joint angles which place the given leg's foot at
// target (in meters, relative to the body center). The target is unreachable
// if it needs more than 90 degrees of coxa yaw; exactly 90 is accepted.
func SolveLeg(target math3d.Vector3, leg hexapod.Leg, c *config.Config) (hexapod.LegJoints, error) {
	lc := c.Legs.Leg(leg)

	rel := target.Subtract(lc.Position)
	yaw := math.Atan2(rel.Y, rel.X) + lc.AngleOffset
	if math.Abs(yaw) > maxYaw {
		return hexapod.LegJoints{}, &UnreachableError{Leg: leg, Target: target, Yaw: yaw}
	}

	horizontal := math.Sqrt(rel.X*rel.X+rel.Y*rel.Y) - c.CoxaLength
	distance := math.Sqrt(horizontal*horizontal + rel.Z*rel.Z)

	// the femur, the tibia, and the coxa-to-foot line form a triangle whose
	// angles the law of cosines gives directly
	byTibia := sssAngle(distance, c.FemurLength, c.TibiaLength)
	byFemur := sssAngle(c.TibiaLength, c.FemurLength, distance)

	elevation := math.Atan2(horizontal, -rel.Z)

	return hexapod.LegJoints{
		Coxa:  busCenter + yaw,
		Femur: math.Abs(lc.FemurCorrection + c.FemurOffset + byFemur + elevation),
		Tibia: math.Abs(lc.TibiaCorrection + c.TibiaOffset + byTibia),
	}, nil
}

// Solve returns the bus joint angles for all six feet. It fails on the first
// unreachable leg, leaving the caller's previous angles untouched.
func Solve(pose hexapod.LegPositions, c *config.Config) (hexapod.BodyJoints, error) {
	joints := hexapod.BodyJoints{}
	for _, leg := range hexapod.Legs {
		j, err := SolveLeg(pose[leg], leg, c)
		if err != nil {
			return hexapod.BodyJoints{}, err
		}
		joints[leg] = j
	}
	return joints, nil
}

// ForwardLeg projects bus joint angles back into the foot position they
// describe. It inverts SolveLeg wherever the angles came from a reachable
// target, which makes it useful for read-back and consistency checks.
func ForwardLeg(joints hexapod.LegJoints, leg hexapod.Leg, c *config.Config) math3d.Vector3 {
	lc := c.Legs.Leg(leg)

	femurAngle := math.Abs(joints.Femur - math.Abs(lc.FemurCorrection+c.FemurOffset))
	tibiaAngle := math.Abs(joints.Tibia - math.Abs(lc.TibiaCorrection+c.TibiaOffset))
	coxaAngle := joints.Coxa - busCenter - lc.AngleOffset

	baseX := math.Cos(coxaAngle)
	baseY := math.Sin(coxaAngle)

	coxa := math3d.Vector3{X: baseX, Y: baseY}.MultiplyByScalar(c.CoxaLength)

	femurH := math.Cos(femurAngle-math.Pi/2) * c.FemurLength
	femurV := math.Sin(femurAngle-math.Pi/2) * c.FemurLength
	femur := math3d.Vector3{X: baseX * femurH, Y: baseY * femurH, Z: femurV}

	// the tibia's angle from vertical follows from the triangle it forms
	// with the femur and the horizontal through the knee
	tibiaFromVertical := tibiaAngle - (math.Pi/2 - (femurAngle - math.Pi/2))
	tibiaH := math.Sin(tibiaFromVertical) * c.TibiaLength
	tibiaV := math.Cos(tibiaFromVertical) * c.TibiaLength
	tibia := math3d.Vector3{X: baseX * tibiaH, Y: baseY * tibiaH, Z: -tibiaV}

	return lc.Position.Add(coxa).Add(femur).Add(tibia)
}

// Forward projects all six legs.
func Forward(joints hexapod.BodyJoints, c *config.Config) hexapod.LegPositions {
	pose := hexapod.LegPositions{}
	for _, leg := range hexapod.Legs {
		pose[leg] = ForwardLeg(joints[leg], leg, c)
	}
	return pose
}

// sssAngle returns the angle opposite side a in a triangle with sides a, b,
// and c. The cosine is clamped, so impossible triangles collapse to a fully
// folded or fully extended joint rather than NaN.
func sssAngle(a float64, b float64, c float64) float64 {
	cos := (b*b + c*c - a*a) / (2 * b * c)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}
