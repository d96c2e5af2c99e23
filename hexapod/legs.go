// Package hexapod defines the leg slots, poses, and joint sets shared by the
// kinematics, gait, and body layers.
package hexapod

// Leg identifies one of the six leg slots. The order matches the motor bus
// wiring, so it doubles as an index into pose and joint arrays.
type Leg int

const (
	LeftFront Leg = iota
	RightFront
	LeftMiddle
	RightMiddle
	LeftRear
	RightRear

	LegCount = 6
)

var legNames = [LegCount]string{
	"left-front",
	"right-front",
	"left-middle",
	"right-middle",
	"left-rear",
	"right-rear",
}

func (l Leg) String() string {
	if l < 0 || l >= LegCount {
		return "invalid-leg"
	}
	return legNames[l]
}

// Legs lists every slot, in index order.
var Legs = [LegCount]Leg{
	LeftFront,
	RightFront,
	LeftMiddle,
	RightMiddle,
	LeftRear,
	RightRear,
}

// LegFlags selects a subset of the six legs.
type LegFlags uint8

const (
	LeftFrontFlag   LegFlags = 1 << LeftFront
	RightFrontFlag  LegFlags = 1 << RightFront
	LeftMiddleFlag  LegFlags = 1 << LeftMiddle
	RightMiddleFlag LegFlags = 1 << RightMiddle
	LeftRearFlag    LegFlags = 1 << LeftRear
	RightRearFlag   LegFlags = 1 << RightRear

	NoLegs LegFlags = 0

	// The two walking tripods. Each keeps the body supported while the
	// other is in the air.
	LRLTripod = LeftFrontFlag | RightMiddleFlag | LeftRearFlag
	RLRTripod = RightFrontFlag | LeftMiddleFlag | RightRearFlag

	LeftLegs   = LeftFrontFlag | LeftMiddleFlag | LeftRearFlag
	RightLegs  = RightFrontFlag | RightMiddleFlag | RightRearFlag
	FrontLegs  = LeftFrontFlag | RightFrontFlag
	MiddleLegs = LeftMiddleFlag | RightMiddleFlag
	RearLegs   = LeftRearFlag | RightRearFlag

	AllLegs = LeftLegs | RightLegs
)

// Flag returns the single-leg mask for this slot.
func (l Leg) Flag() LegFlags {
	return 1 << uint(l)
}

// Contains returns true if every leg in other is also in f.
func (f LegFlags) Contains(other LegFlags) bool {
	return f&other == other
}
