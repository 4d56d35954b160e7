// Package sgp4 is the analytic element-set propagator of spec.md §4.3: given
// a two-line element set it returns position/velocity at an arbitrary epoch.
// It wraps github.com/joshuaferrara/go-satellite, the same SGP4
// implementation anupshinde/goeph's satellite package wraps.
package sgp4

import (
	"strconv"
	"strings"
	"time"

	gosatellite "github.com/joshuaferrara/go-satellite"

	"github.com/ssacore/conjunction/internal/vec3"
	"github.com/ssacore/conjunction/ssaerrors"
	"github.com/ssacore/conjunction/state"
)

// lineLength is the fixed width of a valid TLE line.
const lineLength = 69

// ElementSet is a catalog id, name and two-line element set, with its parsed
// epoch, per spec.md §3. It is immutable once produced by an
// ElementSetSource.
type ElementSet struct {
	CatalogID uint32
	Name      string
	Line1     string
	Line2     string
	Epoch     time.Time
}

// Validate checks the spec.md §3 invariants on the raw lines: 69-char lines,
// eccentricity in [0,1), mean motion > 0, inclination in [0,180] degrees.
// It does not invoke SGP4; it is the cheap pre-check spec.md §4.3 requires
// before propagation is attempted.
func (es ElementSet) Validate() error {
	if len(es.Line1) != lineLength {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "line1 is not 69 characters")
	}
	if len(es.Line2) != lineLength {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "line2 is not 69 characters")
	}
	incl, err := parseFixed(es.Line2, 8, 16)
	if err != nil {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "could not parse inclination: "+err.Error())
	}
	if incl < 0 || incl > 180 {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "inclination out of [0,180] degrees")
	}
	eccStr := strings.TrimSpace(es.Line2[26:33])
	ecc, err := strconv.ParseFloat("0."+eccStr, 64)
	if err != nil {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "could not parse eccentricity: "+err.Error())
	}
	if ecc < 0 || ecc >= 1 {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "eccentricity out of [0,1)")
	}
	meanMotion, err := parseFixed(es.Line2, 52, 63)
	if err != nil {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "could not parse mean motion: "+err.Error())
	}
	if meanMotion <= 0 {
		return ssaerrors.NewInvalidElementSet(es.CatalogID, "mean motion must be positive")
	}
	return nil
}

func parseFixed(line string, start, end int) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(line[start:end]), 64)
}

// satErrorReason maps go-satellite's internal SGP4 error codes to a short
// reason string for PropagationError.
var satErrorReason = map[int]string{
	1: "mean eccentricity out of range",
	2: "mean motion less than zero",
	3: "perturbed eccentricity out of range",
	4: "semi-latus rectum < 0",
	5: "epoch elements are sub-orbital",
	6: "satellite has decayed",
}

// Propagate returns the position and velocity (meters, meters/second) of the
// element set at epoch t, using SGP4. Per spec.md §4.3 the output frame is
// TEME, treated by the rest of the core as the one common inertial frame
// (no rotation applied; see §9 Open Question (a)).
func Propagate(es ElementSet, t time.Time) (state.State, error) {
	if err := es.Validate(); err != nil {
		return state.State{}, err
	}
	sat := gosatellite.TLEToSat(es.Line1, es.Line2, gosatellite.GravityWGS84)
	t = t.UTC()
	posKm, velKmS := gosatellite.Propagate(sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if sat.Error != 0 {
		reason, ok := satErrorReason[sat.Error]
		if !ok {
			reason = "unknown SGP4 error"
		}
		return state.State{}, ssaerrors.NewPropagationError("SGP4", reason)
	}
	out := state.State{
		Position: vec3.V{posKm.X * 1000, posKm.Y * 1000, posKm.Z * 1000},
		Velocity: vec3.V{velKmS.X * 1000, velKmS.Y * 1000, velKmS.Z * 1000},
		Epoch:    t,
	}
	if !out.Valid() {
		return state.State{}, ssaerrors.NewPropagationError("SGP4", "propagated state is non-finite or below Earth radius")
	}
	return out, nil
}
