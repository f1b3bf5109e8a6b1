package usecase

import (
	"context"
	"testing"

	"akiya-radar/internal/core/domain"
)

func newUpsertUnderTest(storage *fakePropertyStorage) *UpsertPropertyUseCase {
	return NewUpsertPropertyUseCase(storage, NewFindMatchingPropertyUseCase(storage))
}

func TestUpsertCreatesPropertyAndListing(t *testing.T) {
	storage := newFakePropertyStorage()
	uc := newUpsertUnderTest(storage)

	raw := domain.RawListing{
		Source:    "akiya",
		SourceID:  "akiya-999",
		URL:       "https://example.jp/akiya/999",
		Title:     strPtr("古民家 要リフォーム"),
		Address:   strPtr("東京都新宿区西新宿1-2-3"),
		PriceYen:  i64Ptr(5_000_000),
		ImageURLs: []string{"https://example.jp/img/1.jpg"},
	}

	isNew, err := uc.Execute(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Error("first upsert should report a new property")
	}
	if len(storage.properties) != 1 {
		t.Fatalf("stored %d properties, want 1", len(storage.properties))
	}
	if len(storage.listings) != 1 {
		t.Fatalf("stored %d listings, want 1", len(storage.listings))
	}

	for _, p := range storage.properties {
		if p.AddressJa == nil || *p.AddressJa != "東京都新宿区西新宿1-2-3" {
			t.Errorf("address = %v, want raw address", p.AddressJa)
		}
		if p.AddressNormalized == nil || *p.AddressNormalized != "東京都新宿区西新宿1-2-3" {
			t.Errorf("normalized = %v", p.AddressNormalized)
		}
		if p.PriceYen == nil || *p.PriceYen != 5_000_000 {
			t.Errorf("price = %v, want 5000000", p.PriceYen)
		}
	}
	for _, l := range storage.listings {
		if len(storage.images[l.ID]) != 1 {
			t.Errorf("images = %v, want 1 url", storage.images[l.ID])
		}
	}
}

func TestUpsertReScrapeIsIdempotent(t *testing.T) {
	storage := newFakePropertyStorage()
	uc := newUpsertUnderTest(storage)

	raw := domain.RawListing{
		Source:   "akiya",
		SourceID: "akiya-999",
		URL:      "https://example.jp/akiya/999",
		Address:  strPtr("東京都新宿区西新宿1-2-3"),
		PriceYen: i64Ptr(5_000_000),
	}

	isNew, err := uc.Execute(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Fatal("first scrape should create")
	}

	// Re-scrape with a price drop
	raw.PriceYen = i64Ptr(4_500_000)
	isNew, err = uc.Execute(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Error("re-scrape must not create a second property")
	}

	if len(storage.properties) != 1 || len(storage.listings) != 1 {
		t.Fatalf("got %d properties and %d listings, want 1 and 1",
			len(storage.properties), len(storage.listings))
	}
	for _, p := range storage.properties {
		if p.PriceYen == nil || *p.PriceYen != 4_500_000 {
			t.Errorf("property price after re-scrape = %v, want 4500000", p.PriceYen)
		}
	}
	for _, l := range storage.listings {
		if l.PriceYen == nil || *l.PriceYen != 4_500_000 {
			t.Errorf("listing price after re-scrape = %v, want 4500000", l.PriceYen)
		}
	}
}

func TestUpsertSecondSourceMergesIntoSameProperty(t *testing.T) {
	storage := newFakePropertyStorage()
	uc := newUpsertUnderTest(storage)

	first := domain.RawListing{
		Source:   "akiya",
		SourceID: "a-1",
		URL:      "https://example.jp/akiya/1",
		Address:  strPtr("東京都新宿区西新宿1-2-3"),
		PriceYen: i64Ptr(5_000_000),
	}
	second := domain.RawListing{
		Source:      "suumo",
		SourceID:    "s-77",
		URL:         "https://example.jp/suumo/77",
		Address:     strPtr("東京都新宿区西新宿１丁目２番３号"),
		LandAreaSqm: f64Ptr(120.5),
	}

	if _, err := uc.Execute(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	isNew, err := uc.Execute(context.Background(), second)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Error("same normalized address from another source must merge, not create")
	}

	if len(storage.properties) != 1 {
		t.Fatalf("stored %d properties, want 1", len(storage.properties))
	}
	if len(storage.listings) != 2 {
		t.Fatalf("stored %d listings, want 2", len(storage.listings))
	}
	for _, p := range storage.properties {
		// Merge keeps the first price and gains the second source's area.
		if p.PriceYen == nil || *p.PriceYen != 5_000_000 {
			t.Errorf("merged price = %v, want 5000000", p.PriceYen)
		}
		if p.LandAreaSqm == nil || *p.LandAreaSqm != 120.5 {
			t.Errorf("merged area = %v, want 120.5", p.LandAreaSqm)
		}
	}
}

func TestUpsertMergeNeverNullsFields(t *testing.T) {
	prop := domain.Property{
		PriceYen:    i64Ptr(1_000_000),
		LandAreaSqm: f64Ptr(200),
		YearBuilt:   intPtr(1985),
	}
	mergeRawIntoProperty(&prop, domain.RawListing{
		PriceYen: i64Ptr(900_000),
		// land area and year absent
	})

	if *prop.PriceYen != 900_000 {
		t.Errorf("price = %d, want overwritten 900000", *prop.PriceYen)
	}
	if prop.LandAreaSqm == nil || *prop.LandAreaSqm != 200 {
		t.Error("absent raw area must not null the stored area")
	}
	if prop.YearBuilt == nil || *prop.YearBuilt != 1985 {
		t.Error("absent raw year must not null the stored year")
	}
}

func TestUpsertWithoutAddressCreatesUnknown(t *testing.T) {
	storage := newFakePropertyStorage()
	uc := newUpsertUnderTest(storage)

	raw := domain.RawListing{
		Source:   "bitauction",
		SourceID: "lot-3",
		URL:      "https://example.jp/bit/3",
	}
	isNew, err := uc.Execute(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Error("address-less listing should still create a property")
	}
	for _, p := range storage.properties {
		if p.AddressJa == nil || *p.AddressJa != "Unknown" {
			t.Errorf("address = %v, want Unknown placeholder", p.AddressJa)
		}
	}
}
