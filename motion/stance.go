package motion

import (
	"github.com/dmweis/hopper-go/hexapod"
)

// Stance geometry, in meters. These were tuned on the robot; the relaxed
// stance keeps every foot well inside its reachable envelope so the body
// transform has room to move.
const (
	legHeight       = -0.09
	stanceForward   = 0.18
	stanceSide      = 0.15
	middleLegOffset = 0.07
	stanceMargin    = 0.015
	groundLegHeight = -0.03
)

func stancePose(forward float64, side float64, middleSide float64, height float64) hexapod.LegPositions {
	return hexapod.LegPositions{
		hexapod.LeftFront:   {X: forward, Y: side, Z: height},
		hexapod.RightFront:  {X: forward, Y: -side, Z: height},
		hexapod.LeftMiddle:  {X: 0, Y: middleSide, Z: height},
		hexapod.RightMiddle: {X: 0, Y: -middleSide, Z: height},
		hexapod.LeftRear:    {X: -forward, Y: side, Z: height},
		hexapod.RightRear:   {X: -forward, Y: -side, Z: height},
	}
}

// relaxedStance is the neutral standing pose, and the pose walking returns
// legs to.
func relaxedStance() hexapod.LegPositions {
	return stancePose(stanceForward, stanceSide, stanceSide+middleLegOffset, legHeight)
}

// relaxedWideStance spreads the feet a little for stability during stand-up
// and sit-down.
func relaxedWideStance() hexapod.LegPositions {
	return stancePose(stanceForward+stanceMargin, stanceSide+stanceMargin,
		stanceSide+middleLegOffset+stanceMargin, legHeight)
}

// groundedStance is the wide stance with the body resting on the ground.
func groundedStance() hexapod.LegPositions {
	return stancePose(stanceForward+stanceMargin, stanceSide+stanceMargin,
		stanceSide+middleLegOffset+stanceMargin, groundLegHeight)
}
