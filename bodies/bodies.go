// Package bodies defines the celestial constants the force model and frames
// packages need: Earth's gravitational parameter and zonal coefficients, and
// the gravitational parameters of the Sun and Moon used for third-body
// perturbations. Values follow the teacher's CelestialObject table
// (celestial.go) restricted to what the SSA core's Earth-orbit force model
// needs.
package bodies

// Earth gravitational and shape parameters (SI units: meters, seconds).
const (
	EarthMu     = 3.986004418e14 // m^3/s^2
	EarthRadius = 6378137.0      // m, equatorial radius (WGS84-equivalent)
	EarthJ2     = 1.082626683e-3
	EarthJ3     = -2.532717e-6
	EarthJ4     = -1.6196219e-6

	// AltitudeFloor is the altitude above EarthRadius below which zonal
	// terms are not applied, avoiding blow-up during tests with
	// near-surface synthetic states.
	AltitudeFloor = 100000.0 // m
)

// Sun and Moon gravitational parameters, for third-body perturbations.
const (
	SunMu  = 1.3271244e20 // m^3/s^2
	MoonMu = 4.9048695e12 // m^3/s^2
)

// AU is one astronomical unit in meters.
const AU = 1.49597870700e11

// SRP default cannonball parameters.
const (
	SolarPressureAt1AU = 4.56e-6 // N/m^2
	DefaultCr          = 1.5
	DefaultAreaOverMass = 0.02 // m^2/kg
)
