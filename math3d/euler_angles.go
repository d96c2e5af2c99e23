package math3d

import (
	"fmt"
	"math"
)

// EulerAngles is an orientation expressed as rotations (in radians) around
// the body axes: roll around X, pitch around Y, yaw around Z.
type EulerAngles struct {
	Roll  float64 // x
	Pitch float64 // y
	Yaw   float64 // z
}

var (
	IdentityOrientation = EulerAngles{}
)

func MakeEulerAngles(roll float64, pitch float64, yaw float64) *EulerAngles {
	return &EulerAngles{roll, pitch, yaw}
}

// MakeYaw returns an orientation rotated around only the vertical axis.
func MakeYaw(yaw float64) *EulerAngles {
	return &EulerAngles{Yaw: yaw}
}

func (ea EulerAngles) Zero() bool {
	return (ea.Roll == 0) && (ea.Pitch == 0) && (ea.Yaw == 0)
}

// RotateTowards advances each axis towards the target orientation by at most
// maxStep radians, and returns the new orientation plus a flag indicating
// whether any axis moved. Equal orientations never move, so repeated
// application terminates.
func (ea EulerAngles) RotateTowards(target EulerAngles, maxStep float64) (EulerAngles, bool) {
	roll, movedR := rotateAxisTowards(ea.Roll, target.Roll, maxStep)
	pitch, movedP := rotateAxisTowards(ea.Pitch, target.Pitch, maxStep)
	yaw, movedY := rotateAxisTowards(ea.Yaw, target.Yaw, maxStep)
	return EulerAngles{roll, pitch, yaw}, movedR || movedP || movedY
}

func rotateAxisTowards(current float64, target float64, maxStep float64) (float64, bool) {
	if current == target {
		return target, false
	}
	diff := target - current
	if math.Abs(diff) <= maxStep {
		return target, true
	}
	if diff > 0 {
		return current + maxStep, true
	}
	return current - maxStep, true
}

func (ea EulerAngles) String() string {
	return fmt.Sprintf("&Euler{r=%+.2f° p=%+.2f° y=%+.2f°}", Deg(ea.Roll), Deg(ea.Pitch), Deg(ea.Yaw))
}

func Deg(rads float64) float64 {
	return rads / (math.Pi / 180)
}

func Rad(degrees float64) float64 {
	return (math.Pi / 180) * degrees
}
