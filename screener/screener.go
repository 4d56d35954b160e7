// Package screener is the pairwise close-approach search of spec.md §4.5:
// a short-arc analytic TCA filter followed by dense-grid + bracketed
// numerical refinement, run over deterministically partitioned worker
// lanes. The fan-out replaces mission.go's hand-rolled sync.WaitGroup
// goroutine pool with golang.org/x/sync/errgroup, which propagates the
// first worker error and ties into context cancellation the way spec.md §5
// requires without reinventing it.
package screener

import (
	"context"
	"hash/fnv"
	"math"
	"runtime"
	"sort"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"golang.org/x/sync/errgroup"

	"github.com/ssacore/conjunction/catalog"
	"github.com/ssacore/conjunction/covariance"
	"github.com/ssacore/conjunction/forcemodel"
	"github.com/ssacore/conjunction/internal/vec3"
	"github.com/ssacore/conjunction/pc"
	"github.com/ssacore/conjunction/propagator/numeric"
	"github.com/ssacore/conjunction/ssaerrors"
	"github.com/ssacore/conjunction/state"
)

// Config is the screener's tunable set, per spec.md §6. The Sigma*/
// HardBodyRadiusM fields are the covariance defaults Screen uses to attach a
// Pc/RiskBand to each ranked result, per spec.md §9 ("the screener package
// exposes the same CRITICAL/HIGH/MEDIUM/LOW banding the pc package computes,
// so screen()'s ranked list can be filtered/labelled by band without a
// second Pc pass").
type Config struct {
	Horizon     time.Duration
	CoarseSteps int
	ScreeningKM float64
	RiskKM      float64
	Workers     int

	SigmaPosInitKM  float64
	SigmaVelInitKMS float64
	SigmaPosProcKM  float64
	SigmaVelProcKMS float64
	HardBodyRadiusM float64
}

// DefaultConfig returns spec.md §6's defaults (screening_km, risk_km,
// coarse_steps, covariance sigmas, hard body radius), with a one-hour
// horizon as a caller-overridden default.
func DefaultConfig() Config {
	return Config{
		Horizon:     time.Hour,
		CoarseSteps: 500,
		ScreeningKM: 50,
		RiskKM:      1.0,
		Workers:     0,

		SigmaPosInitKM:  0.1,
		SigmaVelInitKMS: 0.001,
		SigmaPosProcKM:  0.05,
		SigmaVelProcKMS: 0.0001,
		HardBodyRadiusM: 10.0,
	}
}

// CloseApproach is spec.md §3's entity of the same name: the refined result
// of screening one (primary, secondary) pair. Pc/RiskBand are populated by
// Screen (not by ScreenPair, which core.Assess uses to run its own,
// covariance-process-noise-aware estimate) from the covariance defaults in
// Config.
type CloseApproach struct {
	PrimaryID      uint32
	SecondaryID    uint32
	TCA            time.Time
	MissDistance   float64
	RelSpeed       float64
	PrimaryState   state.State
	SecondaryState state.State
	Pc             float64
	RiskBand       pc.RiskBand
}

type pair struct {
	primary, secondary catalog.Entry
}

// Screen runs the two-stage search over every (primary x secondary) pair in
// snap, returning a deterministically ordered, ranked slice of
// CloseApproach per spec.md §4.5/§9 ("ordering guarantees"). On
// cancellation it returns the partial result gathered so far together with
// ssaerrors.ErrCancelled, per spec.md §5.
func Screen(ctx context.Context, snap catalog.Snapshot, cfg Config, fcfg forcemodel.Config, logger kitlog.Logger) ([]CloseApproach, error) {
	pairs := buildPairs(snap)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(pairs) && len(pairs) > 0 {
		workers = len(pairs)
	}
	if workers == 0 {
		return nil, nil
	}
	lanes := partitionPairs(pairs, workers)

	results := make([][]CloseApproach, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range lanes {
		i := i
		g.Go(func() error {
			buf := make([]CloseApproach, 0, len(lanes[i]))
			for _, p := range lanes[i] {
				select {
				case <-gctx.Done():
					results[i] = buf
					return ssaerrors.ErrCancelled
				default:
				}
				ca, ok, err := screenPair(gctx, p, cfg, fcfg)
				if err != nil {
					logSkip(logger, p, err.Error())
					continue
				}
				if ok {
					ca.Pc, ca.RiskBand = riskAssess(ca, p.primary.LastState.Epoch, p.secondary.LastState.Epoch, cfg)
					buf = append(buf, ca)
				}
			}
			results[i] = buf
			return nil
		})
	}
	waitErr := g.Wait()

	merged := make([]CloseApproach, 0, len(pairs))
	for _, r := range results {
		merged = append(merged, r...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.MissDistance != b.MissDistance {
			return a.MissDistance < b.MissDistance
		}
		if a.PrimaryID != b.PrimaryID {
			return a.PrimaryID < b.PrimaryID
		}
		return a.SecondaryID < b.SecondaryID
	})

	if waitErr != nil {
		return merged, ssaerrors.ErrCancelled
	}
	return merged, nil
}

// riskAssess builds independent covariances for the pair's two objects at
// their cached epochs, propagates both to ca.TCA, combines them and runs
// pc.Compute, using the covariance defaults carried in cfg. A propagation or
// combination failure degrades to pc.RiskLow rather than failing the whole
// screening run -- Screen's job is a ranked list, not a hard assessment.
func riskAssess(ca CloseApproach, primaryEpoch, secondaryEpoch time.Time, cfg Config) (float64, pc.RiskBand) {
	sigmaPosM := cfg.SigmaPosInitKM * 1000
	sigmaVelM := cfg.SigmaVelInitKMS * 1000
	procNoise := covariance.ProcessNoise{
		SigmaPos: cfg.SigmaPosProcKM * 1000,
		SigmaVel: cfg.SigmaVelProcKMS * 1000,
	}
	primaryAtTCA, err := covariance.Init(sigmaPosM, sigmaVelM, primaryEpoch).Propagate(ca.TCA, procNoise)
	if err != nil {
		return 0, pc.RiskLow
	}
	secondaryAtTCA, err := covariance.Init(sigmaPosM, sigmaVelM, secondaryEpoch).Propagate(ca.TCA, procNoise)
	if err != nil {
		return 0, pc.RiskLow
	}
	combined, err := covariance.Combine(primaryAtTCA, secondaryAtTCA)
	if err != nil {
		return 0, pc.RiskLow
	}
	est := pc.Compute(ca.MissDistance, combined, cfg.HardBodyRadiusM)
	return est.Pc, est.RiskBand
}

func logSkip(logger kitlog.Logger, p pair, reason string) {
	if logger == nil {
		return
	}
	logger.Log(
		"level", "warning",
		"subsys", "screener",
		"primary_id", p.primary.CatalogID,
		"secondary_id", p.secondary.CatalogID,
		"reason", reason,
	)
}

// buildPairs returns every (primary, secondary) pair in the snapshot, with
// secondary ranging over the whole catalog excluding the primary itself.
func buildPairs(snap catalog.Snapshot) []pair {
	primaries := snap.Primaries()
	all := snap.Entries()
	out := make([]pair, 0, len(primaries)*len(all))
	for _, p := range primaries {
		for _, s := range all {
			if s.CatalogID == p.CatalogID {
				continue
			}
			out = append(out, pair{primary: p, secondary: s})
		}
	}
	return out
}

// partitionPairs deterministically assigns each pair to one of n lanes by
// hashing the pair id, per spec.md §5/§9's "partition pairs deterministically
// (e.g. by hash of pair id into worker lanes)".
func partitionPairs(pairs []pair, n int) [][]pair {
	lanes := make([][]pair, n)
	for _, p := range pairs {
		h := fnv.New64a()
		_, _ = h.Write([]byte{
			byte(p.primary.CatalogID), byte(p.primary.CatalogID >> 8),
			byte(p.primary.CatalogID >> 16), byte(p.primary.CatalogID >> 24),
			byte(p.secondary.CatalogID), byte(p.secondary.CatalogID >> 8),
			byte(p.secondary.CatalogID >> 16), byte(p.secondary.CatalogID >> 24),
		})
		lane := int(h.Sum64() % uint64(n))
		lanes[lane] = append(lanes[lane], p)
	}
	return lanes
}

// ScreenPair runs the two-stage procedure on a single named pair, bypassing
// catalog-wide partitioning. The core orchestrator's Assess operation uses
// this directly rather than filtering a whole-catalog Screen run down to
// one pair.
func ScreenPair(ctx context.Context, primary, secondary catalog.Entry, cfg Config, fcfg forcemodel.Config) (CloseApproach, bool, error) {
	return screenPair(ctx, pair{primary: primary, secondary: secondary}, cfg, fcfg)
}

// screenPair runs the two-stage procedure on one pair. ok is false when the
// pair does not clear stage 1 or is discarded after stage 2 refinement.
func screenPair(ctx context.Context, p pair, cfg Config, fcfg forcemodel.Config) (CloseApproach, bool, error) {
	h := cfg.Horizon.Seconds()
	r1, v1 := p.primary.LastState.Position, p.primary.LastState.Velocity
	r2, v2 := p.secondary.LastState.Position, p.secondary.LastState.Velocity

	tStar := shortArcTCA(r1, v1, r2, v2, h)
	missAtTStar := vec3.Norm(relativeSeparation(r1, v1, r2, v2, tStar))
	if missAtTStar > cfg.ScreeningKM*1000 {
		return CloseApproach{}, false, nil
	}

	select {
	case <-ctx.Done():
		return CloseApproach{}, false, ssaerrors.ErrCancelled
	default:
	}

	epoch := p.primary.LastState.Epoch
	n := cfg.CoarseSteps
	if n < 2 {
		n = 2
	}
	gridTimes := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dt := h * float64(i+1) / float64(n)
		gridTimes[i] = epoch.Add(time.Duration(dt * float64(time.Second)))
	}

	primaryStates, err := numeric.Integrate(p.primary.LastState, gridTimes, fcfg)
	if err != nil {
		return CloseApproach{}, false, err
	}
	secondaryStates, err := numeric.Integrate(p.secondary.LastState, gridTimes, fcfg)
	if err != nil {
		return CloseApproach{}, false, err
	}
	m := len(primaryStates)
	if len(secondaryStates) < m {
		m = len(secondaryStates)
	}
	if m == 0 {
		return CloseApproach{}, false, ssaerrors.NewPropagationError("SCREEN", "no coarse-grid samples produced")
	}

	minIdx := 0
	minDist := math.Inf(1)
	for i := 0; i < m; i++ {
		d := vec3.Norm(vec3.Sub(primaryStates[i].Position, secondaryStates[i].Position))
		if d < minDist {
			minDist = d
			minIdx = i
		}
	}

	select {
	case <-ctx.Done():
		return CloseApproach{}, false, ssaerrors.ErrCancelled
	default:
	}

	dtCoarse := h / float64(n)
	tIdx := float64(minIdx+1) * dtCoarse
	lo := math.Max(0, tIdx-h/10)
	hi := math.Min(h, tIdx+h/10)

	tcaOffset, primaryAtTCA, secondaryAtTCA, err := refineBracket(p, lo, hi, fcfg)
	if err != nil {
		return CloseApproach{}, false, err
	}
	missDistance := vec3.Norm(vec3.Sub(primaryAtTCA.Position, secondaryAtTCA.Position))
	if missDistance > cfg.RiskKM*1000 {
		return CloseApproach{}, false, nil
	}
	relVel := vec3.Norm(vec3.Sub(primaryAtTCA.Velocity, secondaryAtTCA.Velocity))

	return CloseApproach{
		PrimaryID:      p.primary.CatalogID,
		SecondaryID:    p.secondary.CatalogID,
		TCA:            epoch.Add(time.Duration(tcaOffset * float64(time.Second))),
		MissDistance:   missDistance,
		RelSpeed:       relVel,
		PrimaryState:   primaryAtTCA,
		SecondaryState: secondaryAtTCA,
	}, true, nil
}

// shortArcTCA is spec.md §4.5 stage 1: constant-velocity relative motion
// minimized analytically, clamped to [0, h].
func shortArcTCA(r1, v1, r2, v2 vec3.V, h float64) float64 {
	dr := vec3.Sub(r1, r2)
	dv := vec3.Sub(v1, v2)
	dv2 := vec3.Dot(dv, dv)
	if dv2 < 1e-8 {
		return 0
	}
	t := -vec3.Dot(dr, dv) / dv2
	if t < 0 {
		t = 0
	}
	if t > h {
		t = h
	}
	return t
}

// relativeSeparation returns the constant-velocity separation at time t.
func relativeSeparation(r1, v1, r2, v2 vec3.V, t float64) vec3.V {
	dr := vec3.Sub(r1, r2)
	dv := vec3.Sub(v1, v2)
	return vec3.Add(dr, vec3.Scale(t, dv))
}

// refineBracket scalar-minimizes the inter-object distance over [lo,hi]
// using golden-section search to a tolerance of 0.1s, per spec.md §4.5
// stage 2.
func refineBracket(p pair, lo, hi float64, fcfg forcemodel.Config) (float64, state.State, state.State, error) {
	const tol = 0.1
	const goldenRatio = 0.6180339887498949
	epoch := p.primary.LastState.Epoch

	distAt := func(t float64) (float64, state.State, state.State, error) {
		target := []time.Time{epoch.Add(time.Duration(t * float64(time.Second)))}
		ps, err := numeric.Integrate(p.primary.LastState, target, fcfg)
		if err != nil {
			return 0, state.State{}, state.State{}, err
		}
		ss, err := numeric.Integrate(p.secondary.LastState, target, fcfg)
		if err != nil {
			return 0, state.State{}, state.State{}, err
		}
		return vec3.Norm(vec3.Sub(ps[0].Position, ss[0].Position)), ps[0], ss[0], nil
	}

	a, b := lo, hi
	if b-a < 1e-9 {
		_, ps, ss, err := distAt(a)
		return a, ps, ss, err
	}
	c := b - goldenRatio*(b-a)
	d := a + goldenRatio*(b-a)
	fc, psC, ssC, err := distAt(c)
	if err != nil {
		return 0, state.State{}, state.State{}, err
	}
	fd, psD, ssD, err := distAt(d)
	if err != nil {
		return 0, state.State{}, state.State{}, err
	}
	for math.Abs(b-a) > tol {
		if fc < fd {
			b, d, fd, psD, ssD = d, c, fc, psC, ssC
			c = b - goldenRatio*(b-a)
			fc, psC, ssC, err = distAt(c)
			if err != nil {
				return 0, state.State{}, state.State{}, err
			}
		} else {
			a, c, fc, psC, ssC = c, d, fd, psD, ssD
			d = a + goldenRatio*(b-a)
			fd, psD, ssD, err = distAt(d)
			if err != nil {
				return 0, state.State{}, state.State{}, err
			}
		}
	}
	if fc < fd {
		return c, psC, ssC, nil
	}
	return d, psD, ssD, nil
}
