// Package catalog is the in-memory object collection of spec.md §4.5 (named
// "Catalog" in §2's component list): each entry carries an element set, tags
// and a cached current state. Catalog.Refresh takes an ElementSetSource and
// produces an immutable snapshot, matching the teacher's pattern of
// rebuilding a Vehicle's Orbit from fresh Elements at each Mission step
// rather than mutating shared state in place.
package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssacore/conjunction/ports"
	"github.com/ssacore/conjunction/propagator/sgp4"
	"github.com/ssacore/conjunction/ssaerrors"
	"github.com/ssacore/conjunction/state"
)

// Tag is one of the three object roles spec.md §3 names.
type Tag string

const (
	TagPrimary    Tag = "primary"
	TagDebris     Tag = "debris"
	TagRocketBody Tag = "rocket_body"
)

// Entry is one catalog object: an id, name, element set, tags and the state
// last propagated during a Refresh, per spec.md §3's CatalogEntry row.
type Entry struct {
	CatalogID  uint32
	Name       string
	ElementSet sgp4.ElementSet
	Tags       []Tag
	LastState  state.State
}

// HasTag reports whether the entry carries tag t.
func (e Entry) HasTag(t Tag) bool {
	for _, got := range e.Tags {
		if got == t {
			return true
		}
	}
	return false
}

// IsPrimary reports whether the entry is a protected asset, the "primary"
// side of the (primary × secondary) pairing spec.md §4.5 screens.
func (e Entry) IsPrimary() bool { return e.HasTag(TagPrimary) }

// Snapshot is the immutable catalog handle a screening run reads from. It is
// produced by Refresh and never mutated afterward: spec.md §5 requires the
// catalog be single-writer-before/many-reader-during a run.
type Snapshot struct {
	entries map[uint32]Entry
	order   []uint32
}

// Entry returns the entry for id, if present.
func (s Snapshot) Entry(id uint32) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Entries returns every entry, in stable catalog-id order.
func (s Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// Primaries returns the tagged-primary entries, in stable catalog-id order.
func (s Snapshot) Primaries() []Entry {
	out := make([]Entry, 0)
	for _, id := range s.order {
		if e := s.entries[id]; e.IsPrimary() {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of entries in the snapshot.
func (s Snapshot) Len() int { return len(s.order) }

// NewSnapshot builds a Snapshot directly from a set of entries, in stable
// catalog-id order. It bypasses Refresh's fetch/validate/propagate pipeline,
// for callers (screener, core) that already hold entries with a cached
// LastState and need a Snapshot to read from -- chiefly tests.
func NewSnapshot(entries []Entry) Snapshot {
	m := make(map[uint32]Entry, len(entries))
	order := make([]uint32, 0, len(entries))
	for _, e := range entries {
		m[e.CatalogID] = e
		order = append(order, e.CatalogID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return Snapshot{entries: m, order: order}
}

// WithPrimaryFilter returns a snapshot in which only the listed catalog ids
// retain the primary tag, restricting a subsequent screener run to the
// "primaries" argument spec.md §4.9's screen() operation names. An empty
// ids returns s unchanged.
func (s Snapshot) WithPrimaryFilter(ids []uint32) Snapshot {
	if len(ids) == 0 {
		return s
	}
	allowed := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	filtered := make(map[uint32]Entry, len(s.entries))
	for id, e := range s.entries {
		if e.IsPrimary() && !allowed[id] {
			e.Tags = withoutTag(e.Tags, TagPrimary)
		}
		filtered[id] = e
	}
	return Snapshot{entries: filtered, order: s.order}
}

func withoutTag(tags []Tag, remove Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t != remove {
			out = append(out, t)
		}
	}
	return out
}

// Refresh fetches raw element sets from src, validates and propagates each
// to a current state at clock.Now(), and returns a new immutable snapshot.
// prev may be nil on the first refresh; when non-nil, an incoming element
// set whose epoch is not after the entry already held in prev is rejected
// as stale (spec.md §3: "element set monotone in epoch on refresh") and the
// previous entry is carried forward unchanged. Per-object failures are
// logged and skipped; Refresh itself only fails on the source call erroring
// or being cancelled. skipped, if non-nil, receives one increment per
// skipped object labelled by category, formalizing the objects_skipped_total
// counter spec.md §9 describes (core.Metrics.ObjectsSkipped).
func Refresh(ctx context.Context, src ports.ElementSetSource, clock ports.Clock, prev *Snapshot, logger kitlog.Logger, skipped *prometheus.CounterVec) (Snapshot, error) {
	raws, err := src.Fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	now := clock.Now()
	entries := make(map[uint32]Entry, len(raws))
	order := make([]uint32, 0, len(raws))

	for _, raw := range raws {
		epoch, err := parseEpoch(raw.Line1)
		if err != nil {
			logSkip(logger, skipped, raw.CatalogID, "invalid_epoch", "could not parse TLE epoch: "+err.Error())
			continue
		}
		es := sgp4.ElementSet{
			CatalogID: raw.CatalogID,
			Name:      raw.Name,
			Line1:     raw.Line1,
			Line2:     raw.Line2,
			Epoch:     epoch,
		}
		if err := es.Validate(); err != nil {
			logSkip(logger, skipped, raw.CatalogID, "invalid_element_set", err.Error())
			continue
		}
		if prev != nil {
			if existing, ok := prev.Entry(raw.CatalogID); ok && !epoch.After(existing.ElementSet.Epoch) {
				logSkip(logger, skipped, raw.CatalogID, "stale_epoch", "stale element set: epoch not after cached entry")
				entries[raw.CatalogID] = existing
				order = append(order, raw.CatalogID)
				continue
			}
		}
		st, err := sgp4.Propagate(es, now)
		if err != nil {
			var perr *ssaerrors.PropagationError
			if asPropagationError(err, &perr) {
				logSkip(logger, skipped, raw.CatalogID, "propagation_error", perr.Error())
			} else {
				logSkip(logger, skipped, raw.CatalogID, "propagation_error", err.Error())
			}
			continue
		}
		entries[raw.CatalogID] = Entry{
			CatalogID:  raw.CatalogID,
			Name:       raw.Name,
			ElementSet: es,
			Tags:       tagsFromStrings(raw.Tags),
			LastState:  st,
		}
		order = append(order, raw.CatalogID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return Snapshot{entries: entries, order: order}, nil
}

func asPropagationError(err error, out **ssaerrors.PropagationError) bool {
	pe, ok := err.(*ssaerrors.PropagationError)
	if ok {
		*out = pe
	}
	return ok
}

func tagsFromStrings(raw []string) []Tag {
	out := make([]Tag, 0, len(raw))
	for _, r := range raw {
		out = append(out, Tag(r))
	}
	return out
}

func logSkip(logger kitlog.Logger, skipped *prometheus.CounterVec, catalogID uint32, category, reason string) {
	if skipped != nil {
		skipped.WithLabelValues(category).Inc()
	}
	if logger == nil {
		return
	}
	logger.Log(
		"level", "warning",
		"subsys", "catalog",
		"catalog_id", catalogID,
		"category", category,
		"reason", reason,
	)
}

// parseEpoch parses the fixed-column TLE epoch (2-digit year + fractional
// day-of-year) from line 1, columns 19-32, into a UTC time.Time. Years
// 57-99 are 1900s, 00-56 are 2000s, the standard TLE pivot.
func parseEpoch(line1 string) (time.Time, error) {
	if len(line1) < 32 {
		return time.Time{}, ssaerrors.NewInvalidElementSet(0, "line1 too short to contain an epoch")
	}
	yy, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return time.Time{}, err
	}
	dayOfYear, err := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return time.Time{}, err
	}
	year := 1900 + yy
	if yy < 57 {
		year = 2000 + yy
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := time.Duration((dayOfYear - 1) * float64(24*time.Hour))
	return start.Add(offset), nil
}
