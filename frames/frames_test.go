package frames

import (
	"testing"
	"time"

	"github.com/ssacore/conjunction/bodies"
	"github.com/ssacore/conjunction/internal/vec3"
)

// TestSunMoonRange exercises P3: |r_sun| in [0.98,1.02] AU and |r_moon| in
// [3.5e8, 4.1e8] m across 1950-2050.
func TestSunMoonRange(t *testing.T) {
	start := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 37 * 24 * time.Hour // coarse sampling across the century
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		jd := JDFromUTC(ts)
		sunPos := SunPositionInertial(jd)
		sunAU := vec3.Norm(sunPos) / bodies.AU
		if sunAU < 0.98 || sunAU > 1.02 {
			t.Fatalf("sun range at %s = %.4f AU, want [0.98,1.02]", ts, sunAU)
		}
		moonPos := MoonPositionInertial(jd)
		moonDist := vec3.Norm(moonPos)
		if moonDist < 3.5e8 || moonDist > 4.1e8 {
			t.Fatalf("moon range at %s = %.0f m, want [3.5e8,4.1e8]", ts, moonDist)
		}
	}
}

func TestJDFromUTCMonotonic(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	jd1 := JDFromUTC(t1)
	jd2 := JDFromUTC(t2)
	if jd2.Float()-jd1.Float() <= 0 {
		t.Fatalf("JD should increase with time: %f -> %f", jd1.Float(), jd2.Float())
	}
	if jd2.Float()-jd1.Float() > 1.01 || jd2.Float()-jd1.Float() < 0.99 {
		t.Fatalf("one day should advance JD by ~1.0, got %f", jd2.Float()-jd1.Float())
	}
}
