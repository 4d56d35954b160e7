// Package state defines the State value type shared by every propagator:
// a position/velocity/epoch triple produced by a propagator call. Per
// spec.md §3, states are values with no sharing.
package state

import (
	"time"

	"github.com/ssacore/conjunction/bodies"
	"github.com/ssacore/conjunction/internal/vec3"
)

// State is a Cartesian position+velocity at an epoch, in meters and
// meters/second, in the core's single common inertial frame.
type State struct {
	Position vec3.V
	Velocity vec3.V
	Epoch    time.Time
}

// Valid reports whether the state satisfies spec.md §3's invariants: finite
// components and a position magnitude above the planet's radius.
func (s State) Valid() bool {
	if !vec3.IsFinite(s.Position) || !vec3.IsFinite(s.Velocity) {
		return false
	}
	return vec3.Norm(s.Position) > bodies.EarthRadius
}
