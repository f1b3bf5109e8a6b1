package usecase

import (
	"context"
	"testing"

	"akiya-radar/internal/core/domain"

	"github.com/google/uuid"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func i64Ptr(i int64) *int64     { return &i }
func intPtr(i int) *int         { return &i }
func boolPtr(b bool) *bool      { return &b }

func seedProperty(f *fakePropertyStorage, addressJa, normalized string, lat, lng *float64) *domain.Property {
	p := &domain.Property{
		ID:                uuid.New(),
		AddressJa:         &addressJa,
		AddressNormalized: &normalized,
		Latitude:          lat,
		Longitude:         lng,
		Status:            domain.PropertyStatusActive,
	}
	_ = f.CreateProperty(context.Background(), p)
	return p
}

func TestBigramSimilarity(t *testing.T) {
	if got := BigramSimilarity("abc", "abc"); got != 1.0 {
		t.Errorf("identical strings = %v, want 1.0", got)
	}
	if got := BigramSimilarity("", "x"); got != 0.0 {
		t.Errorf("empty vs non-empty = %v, want 0.0", got)
	}
	if a, b := BigramSimilarity("新宿区西新宿1-2-3", "新宿区西新宿1-2-4"), BigramSimilarity("新宿区西新宿1-2-4", "新宿区西新宿1-2-3"); a != b {
		t.Errorf("not symmetric: %v vs %v", a, b)
	}
	if got := BigramSimilarity("東京", "大阪"); got != 0.0 {
		t.Errorf("disjoint strings = %v, want 0.0", got)
	}
	// Near-identical addresses score above the match threshold
	if got := BigramSimilarity("長野県松本市大手3-5-12", "長野県松本市大手3-5-1"); got < addressSimilarityThreshold {
		t.Errorf("near-identical = %v, want >= %v", got, addressSimilarityThreshold)
	}
}

func TestDedupExactTier(t *testing.T) {
	storage := newFakePropertyStorage()
	want := seedProperty(storage, "東京都新宿区西新宿2丁目8番1号", "東京都新宿区西新宿2-8-1", f64Ptr(35.689), f64Ptr(139.692))

	uc := NewFindMatchingPropertyUseCase(storage)
	got, err := uc.Execute(context.Background(), domain.RawListing{
		Source:    "suumo",
		SourceID:  "s-1",
		Address:   strPtr("東京都新宿区西新宿２丁目８番１号"),
		Latitude:  f64Ptr(35.689),
		Longitude: f64Ptr(139.692),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("got %v, want property %s", got, want.ID)
	}

	// Exact tier fired; the spatial tier must not have been consulted.
	if storage.spatialCalls != 0 {
		t.Errorf("spatial tier invoked %d times despite exact match", storage.spatialCalls)
	}
	if storage.fuzzyCalls != 0 {
		t.Errorf("fuzzy tier invoked %d times despite exact match", storage.fuzzyCalls)
	}
}

func TestDedupFuzzyTier(t *testing.T) {
	storage := newFakePropertyStorage()
	// Same block, slightly different trailing lot number: not an exact
	// normalized match, but well above the bigram threshold.
	want := seedProperty(storage, "長野県松本市大手3丁目5番12号", "長野県松本市大手3-5-12", nil, nil)

	uc := NewFindMatchingPropertyUseCase(storage)
	got, err := uc.Execute(context.Background(), domain.RawListing{
		Source:       "homes",
		SourceID:     "h-1",
		Address:      strPtr("長野県松本市大手3丁目5番1号"),
		Municipality: strPtr("松本市"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("fuzzy match failed: got %v", got)
	}
}

func TestDedupSpatialTier(t *testing.T) {
	storage := newFakePropertyStorage()
	// ~20m away from the query point
	want := seedProperty(storage, "広島県尾道市某町", "広島県尾道市某町1-1", f64Ptr(34.40900), f64Ptr(133.20500))

	uc := NewFindMatchingPropertyUseCase(storage)
	got, err := uc.Execute(context.Background(), domain.RawListing{
		Source:    "athome",
		SourceID:  "a-1",
		Latitude:  f64Ptr(34.40915),
		Longitude: f64Ptr(133.20510),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("spatial match failed: got %v", got)
	}
}

func TestDedupSpatialTooFar(t *testing.T) {
	storage := newFakePropertyStorage()
	// ~500m away: inside no bounding box, no match
	seedProperty(storage, "広島県尾道市遠い町", "広島県尾道市遠い町1-1", f64Ptr(34.41400), f64Ptr(133.20500))

	uc := NewFindMatchingPropertyUseCase(storage)
	got, err := uc.Execute(context.Background(), domain.RawListing{
		Source:    "athome",
		SourceID:  "a-2",
		Latitude:  f64Ptr(34.40900),
		Longitude: f64Ptr(133.20500),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected no match, got %v", got.ID)
	}
}

func TestDedupNoSignalsReturnsNil(t *testing.T) {
	storage := newFakePropertyStorage()
	uc := NewFindMatchingPropertyUseCase(storage)

	got, err := uc.Execute(context.Background(), domain.RawListing{Source: "bit", SourceID: "b-1"})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for listing with no address or coordinates")
	}
}
