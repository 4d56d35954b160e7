// Package numeric is the numerical propagator of spec.md §4.4: it integrates
// d2r/dt2 = sum(accelerations) with an adaptive 8th-order explicit
// Runge-Kutta integrator (DOP853-equivalent), via
// github.com/ready-steady/ode/dopri -- the same integrator the teacher
// exercises in src/cmd/integrator_test/dopri_example.go. Tolerance is fixed
// at 1e-10 relative and absolute, per spec.md §4.4.
package numeric

import (
	"math"
	"time"

	"github.com/ready-steady/ode/dopri"

	"github.com/ssacore/conjunction/forcemodel"
	"github.com/ssacore/conjunction/frames"
	"github.com/ssacore/conjunction/internal/vec3"
	"github.com/ssacore/conjunction/ssaerrors"
	"github.com/ssacore/conjunction/state"
)

const (
	relTolerance = 1e-10
	absTolerance = 1e-10
)

// rhsBuilder returns the 6-vector right-hand side d[r,v]/dt = [v, a(r,t)]
// for a given start epoch and force model configuration. t is seconds since
// the start epoch. failed is set if a non-finite derivative is produced.
func rhsBuilder(start time.Time, cfg forcemodel.Config, failed *bool) func(t float64, y, dy []float64) {
	return func(t float64, y, dy []float64) {
		r := vec3.V{y[0], y[1], y[2]}
		v := vec3.V{y[3], y[4], y[5]}
		epoch := start.Add(time.Duration(t * float64(time.Second)))
		jd := frames.JDFromUTC(epoch)
		sunPos := frames.SunPositionInertial(jd)
		moonPos := frames.MoonPositionInertial(jd)
		acc := forcemodel.Acceleration(r, sunPos, moonPos, cfg)
		dy[0], dy[1], dy[2] = v[0], v[1], v[2]
		dy[3], dy[4], dy[5] = acc[0], acc[1], acc[2]
		if !vec3.IsFinite(acc) || math.IsNaN(dy[0]) || math.IsInf(dy[0], 0) {
			*failed = true
		}
	}
}

// Integrate propagates initial forward to each of evalTimes (sorted,
// strictly after initial.Epoch), returning the state at each. On an
// integrator failure (including NaN/Inf detection) it returns the partial
// results computed up to the failure and a PropagationError, per spec.md
// §4.4/§7.
func Integrate(initial state.State, evalTimes []time.Time, cfg forcemodel.Config) ([]state.State, error) {
	results := make([]state.State, 0, len(evalTimes))
	failed := false
	rhs := rhsBuilder(initial.Epoch, cfg, &failed)

	integrator, err := dopri.New(tunedConfig())
	if err != nil {
		return results, ssaerrors.NewPropagationError("DOPRI853", "could not construct integrator: "+err.Error())
	}

	y := []float64{
		initial.Position[0], initial.Position[1], initial.Position[2],
		initial.Velocity[0], initial.Velocity[1], initial.Velocity[2],
	}
	tPrev := 0.0
	for _, target := range evalTimes {
		dt := target.Sub(initial.Epoch).Seconds()
		if dt <= tPrev {
			return results, ssaerrors.NewPropagationError("DOPRI853", "evaluation times must be strictly increasing and after the initial epoch")
		}
		xs := []float64{tPrev, dt}
		ys, _, computeErr := integrator.Compute(rhs, y, xs)
		if computeErr != nil {
			return results, ssaerrors.NewPropagationError("DOPRI853", computeErr.Error())
		}
		if failed {
			return results, ssaerrors.NewPropagationError("DOPRI853", "non-finite derivative encountered")
		}
		// ys holds the trajectory at each of xs; the last 6 values are
		// the state at xs[len(xs)-1] == dt.
		n := len(ys)
		next := ys[n-6 : n]
		r := vec3.V{next[0], next[1], next[2]}
		v := vec3.V{next[3], next[4], next[5]}
		st := state.State{Position: r, Velocity: v, Epoch: target}
		if !st.Valid() {
			return results, ssaerrors.NewPropagationError("DOPRI853", "propagated state is non-finite or below Earth radius")
		}
		results = append(results, st)
		y = next
		tPrev = dt
	}
	return results, nil
}

// tunedConfig returns the dopri integrator configuration at the spec.md
// §4.4-mandated tolerances.
func tunedConfig() *dopri.Config {
	cfg := dopri.DefaultConfig()
	cfg.RelativeTolerance = relTolerance
	cfg.AbsoluteTolerance = absTolerance
	return &cfg
}
