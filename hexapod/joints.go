package hexapod

import (
	"fmt"
	"math"
	"strings"

	"github.com/dmweis/hopper-go/math3d"
)

// LegJoints holds the three joint angles of one leg, in motor-bus radians.
// The bus convention centers every motor at 150 degrees.
type LegJoints struct {
	Coxa  float64
	Femur float64
	Tibia float64
}

// BodyJoints holds the joint angles of all six legs. Index with a Leg.
type BodyJoints [LegCount]LegJoints

// OptionalLegJoints is a partial LegJoints. Nil fields are left alone when
// merging or stepping, which lets fold sequences drive some joints while
// others hold position.
type OptionalLegJoints struct {
	Coxa  *float64
	Femur *float64
	Tibia *float64
}

type OptionalBodyJoints [LegCount]OptionalLegJoints

// Angle returns a pointer to the given bus angle (in degrees, converted to
// radians), for building optional joint sets from literal values.
func Angle(degrees float64) *float64 {
	r := math3d.Rad(degrees)
	return &r
}

// Optional returns the joint set with every field present.
func (b BodyJoints) Optional() OptionalBodyJoints {
	opt := OptionalBodyJoints{}
	for _, leg := range Legs {
		j := b[leg]
		opt[leg] = OptionalLegJoints{Coxa: &j.Coxa, Femur: &j.Femur, Tibia: &j.Tibia}
	}
	return opt
}

// MergeWith fills the nil fields from base, and returns the complete set.
func (o OptionalBodyJoints) MergeWith(base BodyJoints) BodyJoints {
	merged := base
	for _, leg := range Legs {
		if o[leg].Coxa != nil {
			merged[leg].Coxa = *o[leg].Coxa
		}
		if o[leg].Femur != nil {
			merged[leg].Femur = *o[leg].Femur
		}
		if o[leg].Tibia != nil {
			merged[leg].Tibia = *o[leg].Tibia
		}
	}
	return merged
}

// MoveTowards advances each joint named in target by at most maxStep radians,
// leaving absent joints alone, and returns the new set plus a flag indicating
// whether anything moved. A joint within maxStep of its target snaps exactly
// onto it, so repeated application always terminates.
func (b BodyJoints) MoveTowards(target OptionalBodyJoints, maxStep float64) (BodyJoints, bool) {
	moved := false
	next := b
	for _, leg := range Legs {
		var m bool
		if target[leg].Coxa != nil {
			next[leg].Coxa, m = stepJoint(b[leg].Coxa, *target[leg].Coxa, maxStep)
			moved = moved || m
		}
		if target[leg].Femur != nil {
			next[leg].Femur, m = stepJoint(b[leg].Femur, *target[leg].Femur, maxStep)
			moved = moved || m
		}
		if target[leg].Tibia != nil {
			next[leg].Tibia, m = stepJoint(b[leg].Tibia, *target[leg].Tibia, maxStep)
			moved = moved || m
		}
	}
	return next, moved
}

func stepJoint(current float64, target float64, maxStep float64) (float64, bool) {
	if current == target {
		return target, false
	}
	if math.Abs(target-current) <= maxStep {
		return target, true
	}
	if target > current {
		return current + maxStep, true
	}
	return current - maxStep, true
}

func (j LegJoints) String() string {
	return fmt.Sprintf("&LegJoints{c=%.1f° f=%.1f° t=%.1f°}",
		math3d.Deg(j.Coxa), math3d.Deg(j.Femur), math3d.Deg(j.Tibia))
}

func (b BodyJoints) String() string {
	var sb strings.Builder
	sb.WriteString("&BodyJoints{")
	for i, leg := range Legs {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=%s", leg, b[leg])
	}
	sb.WriteString("}")
	return sb.String()
}
