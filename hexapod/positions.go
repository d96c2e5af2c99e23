package hexapod

import (
	"fmt"
	"strings"

	"github.com/dmweis/hopper-go/math3d"
)

// LegPositions holds the foot position of each leg, in meters, relative to
// the center of the body. Index with a Leg.
type LegPositions [LegCount]math3d.Vector3

// Selected returns the positions of the flagged legs, in slot order.
func (p LegPositions) Selected(flags LegFlags) []math3d.Vector3 {
	sel := make([]math3d.Vector3, 0, LegCount)
	for _, leg := range Legs {
		if flags.Contains(leg.Flag()) {
			sel = append(sel, p[leg])
		}
	}
	return sel
}

// MergeWith returns a copy of p with the flagged legs taken from other.
func (p LegPositions) MergeWith(other LegPositions, flags LegFlags) LegPositions {
	merged := p
	for _, leg := range Legs {
		if flags.Contains(leg.Flag()) {
			merged[leg] = other[leg]
		}
	}
	return merged
}

// Transform returns the pose with every foot moved by the rigid transform
// made of the given rotation (around the body center) and translation.
func (p LegPositions) Transform(translation math3d.Vector3, rotation math3d.EulerAngles) LegPositions {
	m := math3d.MakeMatrix44(translation, rotation)
	moved := LegPositions{}
	for _, leg := range Legs {
		moved[leg] = p[leg].MultiplyByMatrix44(*m)
	}
	return moved
}

// MoveTowards advances each foot towards its target by at most maxStep, and
// returns the new pose plus a flag indicating whether anything moved. A foot
// whose remaining ground-plane distance is within maxStep snaps exactly onto
// its target, so repeated application always terminates.
func (p LegPositions) MoveTowards(target LegPositions, maxStep float64) (LegPositions, bool) {
	moved := false
	next := LegPositions{}
	for _, leg := range Legs {
		if p[leg] == target[leg] {
			next[leg] = target[leg]
			continue
		}

		if p[leg].DistanceXY(target[leg]) <= maxStep {
			next[leg] = target[leg]
			moved = true
			continue
		}

		dir := target[leg].Subtract(p[leg]).Unit()
		next[leg] = p[leg].Add(dir.MultiplyByScalar(maxStep))
		moved = true
	}
	return next, moved
}

// MaxHorizontalDistance returns the largest ground-plane distance between any
// foot and its counterpart in other.
func (p LegPositions) MaxHorizontalDistance(other LegPositions) float64 {
	max := 0.0
	for _, leg := range Legs {
		d := p[leg].DistanceXY(other[leg])
		if d > max {
			max = d
		}
	}
	return max
}

func (p LegPositions) String() string {
	var b strings.Builder
	b.WriteString("&LegPositions{")
	for i, leg := range Legs {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%s", leg, p[leg])
	}
	b.WriteString("}")
	return b.String()
}
