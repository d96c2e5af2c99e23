// Package gait turns motion commands into tripod step sequences. One tripod
// of legs swings through the air towards its landing spot while the other
// tripod stays planted and slides the body forward.
package gait

import (
	"math"

	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
)

// Tripod names one of the two alternating leg sets.
type Tripod int

const (
	LRL Tripod = iota
	RLR
)

// Invert returns the other tripod.
func (t Tripod) Invert() Tripod {
	if t == LRL {
		return RLR
	}
	return LRL
}

// Flags returns the legs in this tripod.
func (t Tripod) Flags() hexapod.LegFlags {
	if t == LRL {
		return hexapod.LRLTripod
	}
	return hexapod.RLRTripod
}

func (t Tripod) String() string {
	if t == LRL {
		return "LRL"
	}
	return "RLR"
}

// commands below this are treated as zero
const epsilon = 1e-9

// MoveCommand is one step's worth of motion: a ground-plane translation in
// meters and a rotation around the body center in radians.
type MoveCommand struct {
	Direction math3d.Vector2
	Rotation  float64
}

// ShouldMove returns false if the command is (numerically) zero.
func (c MoveCommand) ShouldMove() bool {
	return math.Abs(c.Rotation) >= epsilon ||
		math.Abs(c.Direction.X) >= epsilon ||
		math.Abs(c.Direction.Y) >= epsilon
}
