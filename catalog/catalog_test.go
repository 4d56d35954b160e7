package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ssacore/conjunction/ports"
)

type stubSource struct {
	raws []ports.RawElementSet
	err  error
}

func (s stubSource) Fetch(ctx context.Context) ([]ports.RawElementSet, error) {
	return s.raws, s.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func issRaw(catalogID uint32, epochLine string) ports.RawElementSet {
	return ports.RawElementSet{
		CatalogID: catalogID,
		Name:      "ISS (ZARYA)",
		Line1:     "1 25544U 98067A   " + epochLine + "  .00000748  00000-0  21664-4 0  9993",
		Line2:     "2 25544  51.6442 297.3951 0002605 135.1929 358.8216 15.49309239241157",
		Tags:      []string{"primary"},
	}
}

func TestRefreshBuildsSnapshotFromValidElementSets(t *testing.T) {
	src := stubSource{raws: []ports.RawElementSet{issRaw(25544, "20264.51782528")}}
	clock := fixedClock{t: time.Date(2020, 9, 21, 0, 0, 0, 0, time.UTC)}
	snap, err := Refresh(context.Background(), src, clock, nil, nil, nil)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("snapshot len = %d, want 1", snap.Len())
	}
	entry, ok := snap.Entry(25544)
	if !ok {
		t.Fatal("expected entry 25544 to be present")
	}
	if !entry.IsPrimary() {
		t.Fatal("expected entry to carry the primary tag")
	}
	if !entry.LastState.Valid() {
		t.Fatal("expected a valid cached state")
	}
}

func TestRefreshPropagatesFetchError(t *testing.T) {
	wantErr := errors.New("source unavailable")
	src := stubSource{err: wantErr}
	clock := fixedClock{t: time.Now()}
	_, err := Refresh(context.Background(), src, clock, nil, nil, nil)
	if err != wantErr {
		t.Fatalf("Refresh() error = %v, want %v", err, wantErr)
	}
}

func TestRefreshSkipsMalformedElementSet(t *testing.T) {
	bad := issRaw(99999, "20264.51782528")
	bad.Line2 = "garbage"
	src := stubSource{raws: []ports.RawElementSet{issRaw(25544, "20264.51782528"), bad}}
	clock := fixedClock{t: time.Date(2020, 9, 21, 0, 0, 0, 0, time.UTC)}
	snap, err := Refresh(context.Background(), src, clock, nil, nil, nil)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("snapshot len = %d, want 1 (malformed entry skipped)", snap.Len())
	}
	if _, ok := snap.Entry(99999); ok {
		t.Fatal("malformed entry should not appear in the snapshot")
	}
}

func TestRefreshRejectsStaleEpochAgainstPrevious(t *testing.T) {
	clock := fixedClock{t: time.Date(2020, 9, 21, 0, 0, 0, 0, time.UTC)}
	first := stubSource{raws: []ports.RawElementSet{issRaw(25544, "20264.51782528")}}
	prev, err := Refresh(context.Background(), first, clock, nil, nil, nil)
	if err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	// Same (non-newer) epoch on the second fetch: should be rejected as stale
	// and the previous entry carried forward unchanged.
	second := stubSource{raws: []ports.RawElementSet{issRaw(25544, "20264.51782528")}}
	next, err := Refresh(context.Background(), second, clock, &prev, nil, nil)
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	prevEntry, _ := prev.Entry(25544)
	nextEntry, _ := next.Entry(25544)
	if !nextEntry.LastState.Epoch.Equal(prevEntry.LastState.Epoch) {
		t.Fatal("stale refresh should carry the previous entry forward unchanged")
	}
}

func TestWithPrimaryFilterStripsUnlistedPrimaries(t *testing.T) {
	clock := fixedClock{t: time.Date(2020, 9, 21, 0, 0, 0, 0, time.UTC)}
	src := stubSource{raws: []ports.RawElementSet{
		issRaw(25544, "20264.51782528"),
		issRaw(25545, "20264.51782528"),
	}}
	snap, err := Refresh(context.Background(), src, clock, nil, nil, nil)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	filtered := snap.WithPrimaryFilter([]uint32{25544})
	e1, _ := filtered.Entry(25544)
	e2, _ := filtered.Entry(25545)
	if !e1.IsPrimary() {
		t.Fatal("25544 should remain primary")
	}
	if e2.IsPrimary() {
		t.Fatal("25545 should have had its primary tag stripped")
	}
}

func TestWithPrimaryFilterNoOpOnEmptyIDs(t *testing.T) {
	clock := fixedClock{t: time.Date(2020, 9, 21, 0, 0, 0, 0, time.UTC)}
	src := stubSource{raws: []ports.RawElementSet{issRaw(25544, "20264.51782528")}}
	snap, err := Refresh(context.Background(), src, clock, nil, nil, nil)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	filtered := snap.WithPrimaryFilter(nil)
	e, _ := filtered.Entry(25544)
	if !e.IsPrimary() {
		t.Fatal("empty filter should leave primaries untouched")
	}
}
