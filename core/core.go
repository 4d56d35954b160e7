// Package core is the orchestrator and event store of spec.md §4.9: it
// exposes Assess, Screen and GetEvent exactly as that section defines them.
// The event store is a single sync.Mutex-guarded map (spec.md §5's "serialized
// by a single mutex, O(1) inserts"), and a correlation id from
// github.com/google/uuid is attached to each run purely for log correlation
// -- the Event's own id stays the deterministic SHA-256 truncation §4.9
// mandates.
package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssacore/conjunction/catalog"
	"github.com/ssacore/conjunction/cdm"
	"github.com/ssacore/conjunction/config"
	"github.com/ssacore/conjunction/covariance"
	"github.com/ssacore/conjunction/forcemodel"
	"github.com/ssacore/conjunction/internal/vec3"
	"github.com/ssacore/conjunction/pc"
	"github.com/ssacore/conjunction/ports"
	"github.com/ssacore/conjunction/screener"
	"github.com/ssacore/conjunction/ssaerrors"
)

// Event is spec.md §3's entity of the same name: a deterministic event id,
// the originating CloseApproach, the resulting CollisionEstimate, the
// covariances combined at TCA, and a creation time.
type Event struct {
	ID                  string
	CloseApproach       screener.CloseApproach
	Estimate            pc.Estimate
	PrimaryCovariance   covariance.Covariance
	SecondaryCovariance covariance.Covariance
	CombinedCovariance  covariance.Covariance
	CreatedAt           time.Time
}

// EventStore is the core's only mutable shared resource: a mutex-guarded
// map from event id to Event, per spec.md §5.
type EventStore struct {
	mu     sync.Mutex
	events map[string]Event
}

// NewEventStore returns an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]Event)}
}

func (s *EventStore) put(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
}

// Get returns the event for id, or a NotFoundError.
func (s *EventStore) Get(id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return Event{}, ssaerrors.NewNotFound(id)
	}
	return ev, nil
}

// Core wires together the catalog, screener, covariance engine, Pc
// estimator and CDM serializer behind the spec.md §4.9 operations. It is
// usable with a nil Sink and nil Metrics, per spec.md §1's "the core must
// be usable without any of them."
type Core struct {
	Source  ports.ElementSetSource
	Clock   ports.Clock
	Sink    ports.EventSink
	Logger  kitlog.Logger
	Metrics *Metrics
	Config  config.Config

	store *EventStore

	snapMu   sync.Mutex
	snapshot *catalog.Snapshot
}

// New constructs a Core. A nil clock defaults to ports.SystemClock; a nil
// sink defaults to ports.NopSink.
func New(source ports.ElementSetSource, clock ports.Clock, sink ports.EventSink, logger kitlog.Logger, metrics *Metrics, cfg config.Config) *Core {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if sink == nil {
		sink = ports.NopSink{}
	}
	return &Core{
		Source:  source,
		Clock:   clock,
		Sink:    sink,
		Logger:  logger,
		Metrics: metrics,
		Config:  cfg,
		store:   NewEventStore(),
	}
}

// refreshCatalog refreshes and caches the latest snapshot, honoring §3's
// epoch-monotonicity invariant via the previous snapshot it passes to
// catalog.Refresh.
func (c *Core) refreshCatalog(ctx context.Context) (catalog.Snapshot, error) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	var skipped *prometheus.CounterVec
	if c.Metrics != nil {
		skipped = c.Metrics.ObjectsSkipped
	}
	snap, err := catalog.Refresh(ctx, c.Source, c.Clock, c.snapshot, c.Logger, skipped)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	c.snapshot = &snap
	return snap, nil
}

func (c *Core) forceConfig() forcemodel.Config {
	return forcemodel.Config{
		UseJ234:      c.Config.EnablePerturbations,
		UseThirdBody: c.Config.EnablePerturbations,
		UseSRP:       c.Config.UseSRP,
		Cr:           c.Config.Cr,
		AreaOverMass: c.Config.AreaOverMass,
	}
}

// Assess is spec.md §4.9's assess(primary_id, secondary_id, window_s,
// step_s, sigmas, hbr). It refreshes the catalog, runs the two-stage search
// on the named pair, propagates and combines covariances at TCA, computes
// Pc, stores the resulting Event and emits it to the sink. The sigmas and
// hard-body radius come from c.Config, not from arguments. stepS is only
// checked by Config.Validate: the dense-grid size is Config.CoarseSteps and
// the bracket refinement tolerance is fixed at 0.1 s.
func (c *Core) Assess(ctx context.Context, primaryID, secondaryID uint32, windowS, stepS float64) (Event, error) {
	correlationID := uuid.New().String()
	if c.Logger != nil {
		c.Logger.Log("level", "info", "subsys", "core", "op", "assess", "correlation_id", correlationID,
			"primary_id", primaryID, "secondary_id", secondaryID)
	}
	if c.Metrics != nil {
		defer c.Metrics.AssessmentsRun.Inc()
	}

	if err := c.Config.Validate(windowS, stepS); err != nil {
		return Event{}, err
	}

	snap, err := c.refreshCatalog(ctx)
	if err != nil {
		return Event{}, err
	}
	primary, ok := snap.Entry(primaryID)
	if !ok {
		return Event{}, ssaerrors.NewInvalidElementSet(primaryID, "primary id not present in catalog")
	}
	secondary, ok := snap.Entry(secondaryID)
	if !ok {
		return Event{}, ssaerrors.NewInvalidElementSet(secondaryID, "secondary id not present in catalog")
	}

	scfg := screener.Config{
		Horizon:     config.WindowDuration(windowS),
		CoarseSteps: c.Config.CoarseSteps,
		ScreeningKM: c.Config.ScreeningKM,
		RiskKM:      c.Config.RiskKM,
	}
	ca, found, err := screener.ScreenPair(ctx, primary, secondary, scfg, c.forceConfig())
	if err != nil {
		return Event{}, err
	}
	if !found {
		return Event{}, ssaerrors.NewNoCloseApproach(primaryID, secondaryID)
	}

	sigmaPosM := c.Config.SigmaPosInitKM * 1000
	sigmaVelM := c.Config.SigmaVelInitKMS * 1000
	procPosM := c.Config.SigmaPosProcKM * 1000
	procVelM := c.Config.SigmaVelProcKMS * 1000
	procNoise := covariance.ProcessNoise{SigmaPos: procPosM, SigmaVel: procVelM}

	primaryCovInit := covariance.Init(sigmaPosM, sigmaVelM, primary.LastState.Epoch)
	secondaryCovInit := covariance.Init(sigmaPosM, sigmaVelM, secondary.LastState.Epoch)

	primaryCovAtTCA, err := primaryCovInit.Propagate(ca.TCA, procNoise)
	if err != nil {
		return Event{}, err
	}
	secondaryCovAtTCA, err := secondaryCovInit.Propagate(ca.TCA, procNoise)
	if err != nil {
		return Event{}, err
	}
	combined, err := covariance.Combine(primaryCovAtTCA, secondaryCovAtTCA)
	if err != nil {
		return Event{}, err
	}
	if !combined.IsPSD() {
		return Event{}, ssaerrors.NewNumericalFailure("combined covariance is not positive semidefinite after symmetrization")
	}

	estimate := pc.Compute(ca.MissDistance, combined, c.Config.HardBodyRadiusM)

	now := c.Clock.Now()
	ev := Event{
		ID:                  computeEventID(primaryID, secondaryID, ca.TCA, ca.MissDistance, estimate.Pc),
		CloseApproach:       ca,
		Estimate:            estimate,
		PrimaryCovariance:   primaryCovAtTCA,
		SecondaryCovariance: secondaryCovAtTCA,
		CombinedCovariance:  combined,
		CreatedAt:           now,
	}
	c.store.put(ev)

	record := toRecord(ev, primary, secondary)
	body, serErr := cdm.Serialize(record)
	if serErr == nil {
		c.Sink.Emit(ev, body)
	} else if c.Logger != nil {
		c.Logger.Log("level", "error", "subsys", "core", "reason", "cdm serialization failed: "+serErr.Error())
	}

	return ev, nil
}

// Screen is spec.md §4.9's screen(primaries, horizon_s, step_s,
// screening_km, risk_km). It takes no step argument: the dense-grid size is
// Config.CoarseSteps. An empty primaryIDs screens every tagged-primary
// entry in the catalog. On cancellation it returns the partial ranked
// result together with ssaerrors.ErrCancelled, per spec.md §5.
func (c *Core) Screen(ctx context.Context, primaryIDs []uint32, horizonS float64, screeningKM, riskKM float64) ([]screener.CloseApproach, error) {
	snap, err := c.refreshCatalog(ctx)
	if err != nil {
		return nil, err
	}
	snap = snap.WithPrimaryFilter(primaryIDs)

	scfg := screener.Config{
		Horizon:         config.WindowDuration(horizonS),
		CoarseSteps:     c.Config.CoarseSteps,
		ScreeningKM:     screeningKM,
		RiskKM:          riskKM,
		SigmaPosInitKM:  c.Config.SigmaPosInitKM,
		SigmaVelInitKMS: c.Config.SigmaVelInitKMS,
		SigmaPosProcKM:  c.Config.SigmaPosProcKM,
		SigmaVelProcKMS: c.Config.SigmaVelProcKMS,
		HardBodyRadiusM: c.Config.HardBodyRadiusM,
	}
	results, err := screener.Screen(ctx, snap, scfg, c.forceConfig(), c.Logger)
	if c.Metrics != nil {
		// Every primary is paired with every other catalog entry.
		c.Metrics.PairsScreened.Add(float64(len(snap.Primaries()) * (snap.Len() - 1)))
	}
	return results, err
}

// GetEvent is spec.md §4.9's get_event(event_id).
func (c *Core) GetEvent(id string) (Event, error) {
	return c.store.Get(id)
}

func toRecord(ev Event, primary, secondary catalog.Entry) cdm.Record {
	return cdm.Record{
		EventID:        ev.ID,
		CreationDate:   ev.CreatedAt,
		TCA:            ev.CloseApproach.TCA,
		MissDistanceKM: ev.CloseApproach.MissDistance / 1000,
		RelSpeedKMS:    ev.CloseApproach.RelSpeed / 1000,
		Pc:             ev.Estimate.Pc,
		RiskLevel:      string(ev.Estimate.RiskBand),
		Primary: cdm.StateVector{
			ObjectID: fmt.Sprintf("%d", primary.CatalogID),
			Source:   primary.Name,
			Position: scaleKM(ev.CloseApproach.PrimaryState.Position),
			Velocity: scaleKM(ev.CloseApproach.PrimaryState.Velocity),
		},
		Secondary: cdm.StateVector{
			ObjectID: fmt.Sprintf("%d", secondary.CatalogID),
			Source:   secondary.Name,
			Position: scaleKM(ev.CloseApproach.SecondaryState.Position),
			Velocity: scaleKM(ev.CloseApproach.SecondaryState.Velocity),
		},
	}
}

func scaleKM(v vec3.V) vec3.V {
	return vec3.V{v[0] / 1000, v[1] / 1000, v[2] / 1000}
}

// computeEventID is spec.md §4.9's deterministic event id:
// SHA-256(primary||secondary||TCA||miss||Pc) truncated to 12 hex chars,
// uppercased. crypto/sha256 is standard library; no ecosystem hashing
// library appears anywhere in the corpus, so this stays on the standard
// library (see DESIGN.md).
func computeEventID(primaryID, secondaryID uint32, tca time.Time, miss, pcVal float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%d|%.6f|%.10e", primaryID, secondaryID, tca.UTC().UnixNano(), miss, pcVal)
	sum := h.Sum(nil)
	return strings.ToUpper(hex.EncodeToString(sum)[:12])
}
