package hexapod

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTripodsPartitionLegs(t *testing.T) {
	assert.Equal(t, NoLegs, LRLTripod&RLRTripod)
	assert.Equal(t, AllLegs, LRLTripod|RLRTripod)
}

func TestContains(t *testing.T) {
	type eg struct {
		set   LegFlags
		other LegFlags
		exp   bool
	}

	examples := []eg{
		{AllLegs, LeftFrontFlag, true},
		{LRLTripod, LeftFrontFlag, true},
		{LRLTripod, RightFrontFlag, false},
		{LRLTripod, LRLTripod, true},
		{LeftLegs, RearLegs, false},
		{NoLegs, NoLegs, true},
		{NoLegs, LeftRearFlag, false},
	}

	for _, x := range examples {
		assert.Equal(t, x.exp, x.set.Contains(x.other), "%v contains %v", x.set, x.other)
	}
}

func TestLegNames(t *testing.T) {
	assert.Equal(t, "left-front", LeftFront.String())
	assert.Equal(t, "right-rear", RightRear.String())
	assert.Equal(t, "invalid-leg", Leg(99).String())
}
