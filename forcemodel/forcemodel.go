// Package forcemodel provides pure acceleration functions for the numerical
// propagator: two-body, zonal harmonics J2-J4, third-body (Sun+Moon) and
// cannonball solar radiation pressure with a cylindrical shadow factor. Each
// function is independently testable, grounded in the teacher's perturbation
// dispatch (perturbations.go) and the analytic partials (estimate.go) used to
// build the J2-J4 Cartesian acceleration.
package forcemodel

import (
	"math"

	"github.com/ssacore/conjunction/bodies"
	"github.com/ssacore/conjunction/internal/vec3"
)

// Config selects which perturbations the numerical propagator sums, per
// spec.md §4.2/§6.
type Config struct {
	UseJ234       bool
	UseThirdBody  bool
	UseSRP        bool
	Cr            float64
	AreaOverMass  float64
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		UseJ234:      true,
		UseThirdBody: true,
		UseSRP:       true,
		Cr:           bodies.DefaultCr,
		AreaOverMass: bodies.DefaultAreaOverMass,
	}
}

// TwoBody returns the central-body acceleration a = -mu*r/|r|^3.
func TwoBody(r vec3.V) vec3.V {
	n := vec3.Norm(r)
	return vec3.Scale(-bodies.EarthMu/(n*n*n), r)
}

// aboveFloor reports whether r is above the altitude floor where zonal terms
// are applied, avoiding blow-up near/below the surface during tests.
func aboveFloor(r vec3.V) bool {
	return vec3.Norm(r)-bodies.EarthRadius > bodies.AltitudeFloor
}

// J2 returns the J2 zonal acceleration contribution, zero below the altitude
// floor.
func J2(r vec3.V) vec3.V {
	if !aboveFloor(r) {
		return vec3.V{}
	}
	x, y, z := r[0], r[1], r[2]
	rn := vec3.Norm(r)
	r2 := rn * rn
	z2 := z * z
	factor := -1.5 * bodies.EarthJ2 * bodies.EarthMu * bodies.EarthRadius * bodies.EarthRadius / math.Pow(rn, 5)
	return vec3.V{
		factor * x * (1 - 5*z2/r2),
		factor * y * (1 - 5*z2/r2),
		factor * z * (3 - 5*z2/r2),
	}
}

// J3 returns the J3 zonal acceleration contribution, zero below the altitude
// floor.
func J3(r vec3.V) vec3.V {
	if !aboveFloor(r) {
		return vec3.V{}
	}
	x, y, z := r[0], r[1], r[2]
	rn := vec3.Norm(r)
	r2 := rn * rn
	z2, z3 := z*z, z*z*z
	factor := -2.5 * bodies.EarthJ3 * bodies.EarthMu * math.Pow(bodies.EarthRadius, 3) / math.Pow(rn, 7)
	return vec3.V{
		factor * x * (3*z - 7*z3/r2),
		factor * y * (3*z - 7*z3/r2),
		factor * (6*z2 - (7*z2*z2)/r2 - 0.6*r2),
	}
}

// J4 returns the J4 zonal acceleration contribution, zero below the altitude
// floor.
func J4(r vec3.V) vec3.V {
	if !aboveFloor(r) {
		return vec3.V{}
	}
	x, y, z := r[0], r[1], r[2]
	rn := vec3.Norm(r)
	r2 := rn * rn
	z2, z4 := z*z, z*z*z*z
	factor := 0.625 * bodies.EarthJ4 * bodies.EarthMu * math.Pow(bodies.EarthRadius, 4) / math.Pow(rn, 7)
	return vec3.V{
		factor * x * (3 - 42*z2/r2 + 63*z4/(r2*r2)),
		factor * y * (3 - 42*z2/r2 + 63*z4/(r2*r2)),
		factor * z * (15 - 70*z2/r2 + 63*z4/(r2*r2)),
	}
}

// ThirdBody returns the summed Sun+Moon third-body acceleration on an object
// at r, given the current Sun and Moon position vectors (meters, same
// inertial frame).
func ThirdBody(r, sunPos, moonPos vec3.V) vec3.V {
	contribution := func(rBody vec3.V, mu float64) vec3.V {
		d := vec3.Sub(rBody, r)
		dn := vec3.Norm(d)
		rn := vec3.Norm(rBody)
		return vec3.Scale(mu, vec3.Sub(vec3.Scale(1/(dn*dn*dn), d), vec3.Scale(1/(rn*rn*rn), rBody)))
	}
	return vec3.Add(contribution(sunPos, bodies.SunMu), contribution(moonPos, bodies.MoonMu))
}

// ShadowFactor returns the illumination fraction s in [0,1]: 1 when fully
// sunlit, 0 in umbra, linear across the penumbra band. The umbra is a
// cylinder of Earth's radius along the anti-Sun axis and the penumbra a band
// one Earth radius wide around it; the shadow cones are not modelled. r is the
// object's position and sunPos the Sun's position, both in the common
// inertial frame, meters.
func ShadowFactor(r, sunPos vec3.V) float64 {
	sunDir := vec3.Unit(sunPos)
	// Projection of r onto the anti-sun direction: positive means the
	// object is on the night side.
	alongShadowAxis := -vec3.Dot(r, sunDir)
	if alongShadowAxis <= 0 {
		return 1 // sunlit side, no shadow possible
	}
	// Perpendicular distance from the Earth-Sun axis.
	perp := vec3.Sub(r, vec3.Scale(-alongShadowAxis, sunDir))
	perpDist := vec3.Norm(perp)
	// Cylindrical approximation of the umbra/penumbra radii at this
	// distance behind Earth, with a fixed penumbra band the width of
	// Earth's radius to keep the fall-off well-defined without a full
	// conical-shadow geometry solve.
	umbraRadius := bodies.EarthRadius
	penumbraRadius := bodies.EarthRadius * 2
	switch {
	case perpDist <= umbraRadius:
		return 0
	case perpDist >= penumbraRadius:
		return 1
	default:
		return (perpDist - umbraRadius) / (penumbraRadius - umbraRadius)
	}
}

// SRP returns the cannonball solar-radiation-pressure acceleration on an
// object at r, given the Sun's position, reflectivity Cr and area/mass
// ratio, per spec.md §4.2.
func SRP(r, sunPos vec3.V, cr, areaOverMass float64) vec3.V {
	sunVecFromObj := vec3.Sub(sunPos, r)
	rAU := vec3.Norm(sunVecFromObj) / bodies.AU
	s := ShadowFactor(r, sunPos)
	if s == 0 {
		return vec3.V{}
	}
	pressure := bodies.SolarPressureAt1AU / (rAU * rAU)
	uSun := vec3.Unit(sunVecFromObj)
	return vec3.Scale(-pressure*cr*areaOverMass*s, uSun)
}

// Acceleration sums the selected perturbations on top of the two-body term.
func Acceleration(r, sunPos, moonPos vec3.V, cfg Config) vec3.V {
	acc := TwoBody(r)
	if cfg.UseJ234 {
		acc = vec3.Add(acc, J2(r))
		acc = vec3.Add(acc, J3(r))
		acc = vec3.Add(acc, J4(r))
	}
	if cfg.UseThirdBody {
		acc = vec3.Add(acc, ThirdBody(r, sunPos, moonPos))
	}
	if cfg.UseSRP {
		acc = vec3.Add(acc, SRP(r, sunPos, cfg.Cr, cfg.AreaOverMass))
	}
	return acc
}
