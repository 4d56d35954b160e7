package screener

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ssacore/conjunction/bodies"
	"github.com/ssacore/conjunction/catalog"
	"github.com/ssacore/conjunction/forcemodel"
	"github.com/ssacore/conjunction/internal/vec3"
	"github.com/ssacore/conjunction/state"
)

func circularLEOState(epoch time.Time) state.State {
	r0 := bodies.EarthRadius + 500e3
	v0 := math.Sqrt(bodies.EarthMu / r0)
	return state.State{
		Position: vec3.V{r0, 0, 0},
		Velocity: vec3.V{0, v0, 0},
		Epoch:    epoch,
	}
}

func entryWithState(id uint32, st state.State, primary bool) catalog.Entry {
	tags := []catalog.Tag{catalog.TagDebris}
	if primary {
		tags = []catalog.Tag{catalog.TagPrimary}
	}
	return catalog.Entry{CatalogID: id, Name: "test", Tags: tags, LastState: st}
}

// twoBodyOnly disables every perturbation so the force model reduces to
// pure two-body gravity, keeping these geometry-driven tests close to the
// short-arc constant-velocity approximation stage 1 assumes.
func twoBodyOnly() forcemodel.Config { return forcemodel.Config{} }

func TestScreenPairHeadOnCollisionCourse(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := circularLEOState(epoch)
	// Secondary starts 5 km ahead along the primary's velocity direction,
	// moving directly toward it: a near head-on collision within seconds.
	secondary := state.State{
		Position: vec3.Add(primary.Position, vec3.Scale(5000, vec3.Unit(primary.Velocity))),
		Velocity: vec3.Scale(-1, primary.Velocity),
		Epoch:    epoch,
	}
	cfg := Config{Horizon: 10 * time.Second, CoarseSteps: 200, ScreeningKM: 50, RiskKM: 10, Workers: 1}

	ca, ok, err := ScreenPair(context.Background(),
		entryWithState(1, primary, true), entryWithState(2, secondary, false), cfg, twoBodyOnly())
	if err != nil {
		t.Fatalf("ScreenPair() error = %v", err)
	}
	if !ok {
		t.Fatal("expected a close approach to be found for a head-on collision course")
	}
	if ca.MissDistance > 2000 {
		t.Fatalf("miss distance = %.1f m, want a close pass well under 2 km", ca.MissDistance)
	}
}

func TestScreenPairParallelOrbitOffset(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := circularLEOState(epoch)
	// Secondary shares the primary's velocity but is offset 2 km
	// cross-track: the two should stay roughly 2 km apart over a short
	// horizon.
	secondary := state.State{
		Position: vec3.Add(primary.Position, vec3.V{0, 0, 2000}),
		Velocity: primary.Velocity,
		Epoch:    epoch,
	}
	cfg := Config{Horizon: 60 * time.Second, CoarseSteps: 200, ScreeningKM: 50, RiskKM: 5, Workers: 1}

	ca, ok, err := ScreenPair(context.Background(),
		entryWithState(1, primary, true), entryWithState(2, secondary, false), cfg, twoBodyOnly())
	if err != nil {
		t.Fatalf("ScreenPair() error = %v", err)
	}
	if !ok {
		t.Fatal("expected a close approach to be reported for a 2 km parallel offset")
	}
	if ca.MissDistance < 500 || ca.MissDistance > 3500 {
		t.Fatalf("miss distance = %.1f m, want roughly near 2000 m", ca.MissDistance)
	}
}

func TestScreenPairFarSeparationIsFiltered(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := circularLEOState(epoch)
	// Secondary in a GEO-altitude orbit, tens of thousands of km away: the
	// stage-1 short-arc filter should reject the pair outright.
	r0 := bodies.EarthRadius + 35786e3
	v0 := math.Sqrt(bodies.EarthMu / r0)
	secondary := state.State{
		Position: vec3.V{r0, 0, 0},
		Velocity: vec3.V{0, v0, 0},
		Epoch:    epoch,
	}
	cfg := Config{Horizon: time.Hour, CoarseSteps: 200, ScreeningKM: 50, RiskKM: 5, Workers: 1}

	_, ok, err := ScreenPair(context.Background(),
		entryWithState(1, primary, true), entryWithState(2, secondary, false), cfg, twoBodyOnly())
	if err != nil {
		t.Fatalf("ScreenPair() error = %v", err)
	}
	if ok {
		t.Fatal("expected the far-separated pair to be filtered out at stage 1")
	}
}

func TestScreenOrdersByMissDistanceAscending(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := circularLEOState(epoch)
	near := state.State{
		Position: vec3.Add(primary.Position, vec3.V{0, 0, 1000}),
		Velocity: primary.Velocity,
		Epoch:    epoch,
	}
	far := state.State{
		Position: vec3.Add(primary.Position, vec3.V{0, 0, 8000}),
		Velocity: primary.Velocity,
		Epoch:    epoch,
	}
	entries := []catalog.Entry{
		entryWithState(1, primary, true),
		entryWithState(2, far, false),
		entryWithState(3, near, false),
	}
	built := catalog.NewSnapshot(entries)
	cfg := Config{Horizon: 60 * time.Second, CoarseSteps: 100, ScreeningKM: 50, RiskKM: 20, Workers: 2}

	results, err := Screen(context.Background(), built, cfg, twoBodyOnly(), nil)
	if err != nil {
		t.Fatalf("Screen() error = %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("got %d results, want at least 2", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].MissDistance < results[i-1].MissDistance {
			t.Fatalf("results not sorted ascending by miss distance: %v", results)
		}
	}
}

func TestScreenAttachesPcAndRiskBand(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := circularLEOState(epoch)
	near := state.State{
		Position: vec3.Add(primary.Position, vec3.V{0, 0, 100}),
		Velocity: primary.Velocity,
		Epoch:    epoch,
	}
	built := catalog.NewSnapshot([]catalog.Entry{entryWithState(1, primary, true), entryWithState(2, near, false)})
	cfg := DefaultConfig()
	cfg.Horizon = 60 * time.Second
	cfg.CoarseSteps = 100
	cfg.RiskKM = 20
	cfg.Workers = 1

	results, err := Screen(context.Background(), built, cfg, twoBodyOnly(), nil)
	if err != nil {
		t.Fatalf("Screen() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one close approach for a 100 m offset")
	}
	ca := results[0]
	if ca.RiskBand == "" {
		t.Fatal("expected Screen to attach a non-empty risk band")
	}
	if ca.Pc <= 0 {
		t.Fatalf("Pc = %v, want > 0 for a close approach within the hard body radius margin", ca.Pc)
	}
}

func TestScreenReturnsErrorOnPreCancelledContext(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := circularLEOState(epoch)
	secondary := state.State{
		Position: vec3.Add(primary.Position, vec3.V{0, 0, 1000}),
		Velocity: primary.Velocity,
		Epoch:    epoch,
	}
	built := catalog.NewSnapshot([]catalog.Entry{entryWithState(1, primary, true), entryWithState(2, secondary, false)})
	cfg := Config{Horizon: 60 * time.Second, CoarseSteps: 100, ScreeningKM: 50, RiskKM: 20, Workers: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Screen(ctx, built, cfg, twoBodyOnly(), nil)
	if err == nil {
		t.Fatal("expected an error on a pre-cancelled context")
	}
}
