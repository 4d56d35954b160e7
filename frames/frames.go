// Package frames provides Julian-date conversions and low-precision Sun/Moon
// ephemerides in the single inertial frame the core treats SGP4 (TEME) output
// and numerically integrated (ECI) states as sharing. No rotation is applied
// between the two; this is the modeling assumption spec.md §4.1 and §9 Open
// Question (a) document explicitly.
package frames

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/ssacore/conjunction/bodies"
	"github.com/ssacore/conjunction/internal/vec3"
)

// JD is a Julian date split into an integer day count and day fraction, the
// representation the teacher's ephemeris wrappers (celestial.go) pass around
// as a single float64; we keep both forms available since the fraction is
// what most low-precision series key off of via base.J2000Century.
type JD struct {
	Day  float64
	Frac float64
}

// Float returns the combined Julian date.
func (j JD) Float() float64 { return j.Day + j.Frac }

// JDFromUTC converts a UTC time.Time to a Julian date.
func JDFromUTC(t time.Time) JD {
	t = t.UTC()
	full := julian.TimeToJD(t)
	day := math.Floor(full)
	return JD{Day: day, Frac: full - day}
}

// sphericalToCartesian converts (right ascension, declination, radius) to a
// Cartesian vector in the same units as radius.
func sphericalToCartesian(ra, dec unit.Angle, r float64) vec3.V {
	sr, cr := ra.Sincos()
	sd, cd := dec.Sincos()
	return vec3.V{r * cd * cr, r * cd * sr, r * sd}
}

// eclipticToEquatorial rotates an ecliptic-longitude/latitude pair to
// equatorial right-ascension/declination using the mean obliquity of date,
// the same rotation the teacher applies via meeus/coord.EclToEq (see
// celestial.go's use of planetposition + pluto, which returns ecliptic
// coordinates that must be rotated before use as an inertial Cartesian
// vector).
func eclipticToEquatorial(lon, lat unit.Angle, jde float64) (ra, dec unit.Angle) {
	eps := nutation.MeanObliquity(jde)
	sl, cl := lon.Sincos()
	sb, cb := lat.Sincos()
	se, ce := eps.Sincos()
	raRad := math.Atan2(sl*ce-(sb/cb)*se, cl)
	decRad := math.Asin(sb*ce + cb*se*sl)
	return unit.Angle(raRad), unit.Angle(decRad)
}

// SunPositionInertial returns the Sun's geocentric position in meters, in the
// core's common inertial frame, using the low-precision solar series (meeus
// ch. 25) which is accurate to about 0.01 degree over 1950-2050, per spec.md
// §4.1.
func SunPositionInertial(jd JD) vec3.V {
	jde := jd.Float()
	T := (jde - 2451545.0) / 36525.0
	s, _ := solar.True(T)
	r := solar.Radius(T) * bodies.AU
	ra, dec := eclipticToEquatorial(s, 0, jde)
	return sphericalToCartesian(ra, dec, r)
}

// MoonPositionInertial returns the Moon's geocentric position in meters,
// using the reduced ELP2000-82B series (meeus ch. 47 / moonposition), which
// spec.md §4.1 documents as accurate to 1-2 km over decades.
func MoonPositionInertial(jd JD) vec3.V {
	jde := jd.Float()
	lon, lat, distKm := moonposition.Position(jde)
	ra, dec := eclipticToEquatorial(lon, lat, jde)
	return sphericalToCartesian(ra, dec, distKm*1000.0)
}
