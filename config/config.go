// Package config holds the geometry snapshot: link lengths, per-leg mount
// points, motor IDs, and the angle corrections which map model angles onto
// the motor bus. The snapshot is loaded once at startup and treated as
// immutable afterwards.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/math3d"
)

//go:embed hopper.toml
var defaultTOML []byte

// LegConfig describes one leg: where it is mounted on the body, which motors
// drive it, and the per-leg corrections folded into the bus angles.
type LegConfig struct {
	CoxaID  int `toml:"coxa_id"`
	FemurID int `toml:"femur_id"`
	TibiaID int `toml:"tibia_id"`

	// AngleOffset is the mount direction of the leg relative to the +X
	// (forward) axis, in radians.
	AngleOffset float64 `toml:"angle_offset"`

	// Position is the coxa pivot relative to the body center, in meters.
	Position math3d.Vector3 `toml:"position"`

	FemurCorrection float64 `toml:"femur_correction"`
	TibiaCorrection float64 `toml:"tibia_correction"`
}

// Body holds the six leg configs.
type Body struct {
	LeftFront   LegConfig `toml:"left_front"`
	RightFront  LegConfig `toml:"right_front"`
	LeftMiddle  LegConfig `toml:"left_middle"`
	RightMiddle LegConfig `toml:"right_middle"`
	LeftRear    LegConfig `toml:"left_rear"`
	RightRear   LegConfig `toml:"right_rear"`
}

// Leg returns the config for the given leg slot.
func (b *Body) Leg(leg hexapod.Leg) *LegConfig {
	switch leg {
	case hexapod.LeftFront:
		return &b.LeftFront
	case hexapod.RightFront:
		return &b.RightFront
	case hexapod.LeftMiddle:
		return &b.LeftMiddle
	case hexapod.RightMiddle:
		return &b.RightMiddle
	case hexapod.LeftRear:
		return &b.LeftRear
	case hexapod.RightRear:
		return &b.RightRear
	}
	panic(fmt.Sprintf("no config for leg %d", leg))
}

// IDs returns the motor IDs of every joint, in bus order: coxa, femur, tibia
// for each leg slot in turn.
func (b *Body) IDs() [3 * hexapod.LegCount]int {
	var ids [3 * hexapod.LegCount]int
	for _, leg := range hexapod.Legs {
		lc := b.Leg(leg)
		ids[int(leg)*3+0] = lc.CoxaID
		ids[int(leg)*3+1] = lc.FemurID
		ids[int(leg)*3+2] = lc.TibiaID
	}
	return ids
}

// Config is the full geometry snapshot.
type Config struct {
	// Link lengths, in meters.
	CoxaLength  float64 `toml:"coxa_length"`
	FemurLength float64 `toml:"femur_length"`
	TibiaLength float64 `toml:"tibia_length"`

	// Angular offsets of the femur and tibia resting pose, in radians.
	FemurOffset float64 `toml:"femur_offset"`
	TibiaOffset float64 `toml:"tibia_offset"`

	Legs Body `toml:"legs"`
}

// Default returns the built-in geometry. The embedded file is validated at
// startup, so a decode failure here is a build defect and panics.
func Default() *Config {
	var c Config
	if err := toml.Unmarshal(defaultTOML, &c); err != nil {
		panic(fmt.Sprintf("decoding embedded config: %s", err))
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("embedded config: %s", err))
	}
	return &c
}

// Load reads and validates a geometry snapshot from a TOML file.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var c Config
	if err := toml.Unmarshal(buf, &c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks that the snapshot is usable: positive link lengths, sane
// offsets, and unique motor IDs in the AX range.
func (c *Config) Validate() error {
	if c.CoxaLength <= 0 || c.FemurLength <= 0 || c.TibiaLength <= 0 {
		return fmt.Errorf("link lengths must be positive (coxa=%v femur=%v tibia=%v)",
			c.CoxaLength, c.FemurLength, c.TibiaLength)
	}

	seen := map[int]hexapod.Leg{}
	for _, leg := range hexapod.Legs {
		lc := c.Legs.Leg(leg)

		if math.Abs(lc.AngleOffset) > math.Pi {
			return fmt.Errorf("%s: angle offset %v out of range", leg, lc.AngleOffset)
		}

		for _, id := range []int{lc.CoxaID, lc.FemurID, lc.TibiaID} {
			if id < 1 || id > 253 {
				return fmt.Errorf("%s: motor ID %d out of range", leg, id)
			}
			if other, dup := seen[id]; dup {
				return fmt.Errorf("%s: motor ID %d already used by %s", leg, id, other)
			}
			seen[id] = leg
		}
	}

	return nil
}
