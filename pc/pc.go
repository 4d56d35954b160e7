// Package pc implements the probability-of-collision estimator of spec.md
// §4.7: a pure function of miss distance, combined position covariance and
// hard-body radius. It has no I/O and no state, matching spec.md's
// description of Pc as "a conservative monotone surrogate for a full 2D
// encounter-plane integral."
package pc

import (
	"math"

	"github.com/ssacore/conjunction/covariance"
)

// sigmaFloor is the minimum isotropic sigma used in the Pc formula, per
// spec.md §4.7, avoiding a division blow-up for a near-singular covariance.
const sigmaFloor = 1e-6

// RiskBand is the CRITICAL/HIGH/MEDIUM/LOW classification spec.md §4.7
// defines from a Pc value.
type RiskBand string

const (
	RiskCritical RiskBand = "CRITICAL"
	RiskHigh     RiskBand = "HIGH"
	RiskMedium   RiskBand = "MEDIUM"
	RiskLow      RiskBand = "LOW"
)

// Estimate is the CollisionEstimate of spec.md §3: a Pc value, the combined
// isotropic sigma it was computed from, the hard-body radius used, and the
// resulting risk band.
type Estimate struct {
	Pc       float64
	Sigma    float64
	HBR      float64
	RiskBand RiskBand
}

// Compute returns the collision estimate for miss distance d (m), combined
// position covariance posCov (3x3, m^2) and hard-body radius hbr (m), per
// the exact formula of spec.md §4.7.
func Compute(d float64, posCov covariance.Covariance, hbr float64) Estimate {
	trace := posCov.TracePosition()
	sigma := math.Sqrt(trace / 3)
	if sigma < sigmaFloor {
		sigma = sigmaFloor
	}
	base := math.Exp(-(d * d) / (2 * sigma * sigma))
	scale := math.Min(1, (hbr/sigma)*(hbr/sigma))
	p := clamp(base*scale, 0, 1)
	return Estimate{
		Pc:       p,
		Sigma:    sigma,
		HBR:      hbr,
		RiskBand: bandFor(p),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bandFor classifies a Pc value into a risk band, per spec.md §4.7's fixed
// thresholds.
func bandFor(p float64) RiskBand {
	switch {
	case p >= 1e-3:
		return RiskCritical
	case p >= 1e-4:
		return RiskHigh
	case p >= 1e-6:
		return RiskMedium
	default:
		return RiskLow
	}
}
