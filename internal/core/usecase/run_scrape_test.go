package usecase

import (
	"context"
	"errors"
	"testing"

	"akiya-radar/internal/core/domain"
)

func TestRunScrapeEnrichesFromDetailPages(t *testing.T) {
	scraper := &fakeScraper{
		name: "akiya",
		searchOut: []domain.RawListing{
			{Source: "akiya", SourceID: "1", URL: "https://example.jp/1", Title: strPtr("listing one")},
			{Source: "akiya", SourceID: "2", URL: "https://example.jp/2", Title: strPtr("listing two")},
		},
		detailOut: map[string]*domain.RawListing{
			"https://example.jp/1": {Source: "akiya", SourceID: "1", URL: "https://example.jp/1", PriceYen: i64Ptr(3_000_000)},
			"https://example.jp/2": {Source: "akiya", SourceID: "2", URL: "https://example.jp/2", PriceYen: i64Ptr(1_200_000)},
		},
	}
	uc := NewRunScrapeUseCase(scraper)

	listings, summary, err := uc.Execute(context.Background(), domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.ListingsFound != 2 || summary.DetailsScraped != 2 || summary.DetailsFailed != 0 {
		t.Errorf("summary = %+v, want 2 found / 2 scraped / 0 failed", summary)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	if listings[0].PriceYen == nil || *listings[0].PriceYen != 3_000_000 {
		t.Errorf("first listing not enriched: price = %v", listings[0].PriceYen)
	}
}

func TestRunScrapeDetailFailureKeepsSearchListing(t *testing.T) {
	scraper := &fakeScraper{
		name: "suumo",
		searchOut: []domain.RawListing{
			{Source: "suumo", SourceID: "ok", URL: "https://example.jp/ok", Title: strPtr("fine")},
			{Source: "suumo", SourceID: "bad", URL: "https://example.jp/bad", Title: strPtr("broken detail")},
		},
		detailOut: map[string]*domain.RawListing{
			"https://example.jp/ok": {Source: "suumo", SourceID: "ok", URL: "https://example.jp/ok", PriceYen: i64Ptr(2_000_000)},
		},
		detailErr: map[string]error{
			"https://example.jp/bad": errors.New("HTTP 503"),
		},
	}
	uc := NewRunScrapeUseCase(scraper)

	listings, summary, err := uc.Execute(context.Background(), domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.DetailsScraped != 1 || summary.DetailsFailed != 1 {
		t.Errorf("summary = %+v, want 1 scraped / 1 failed", summary)
	}
	if len(summary.Errors) != 1 {
		t.Errorf("recorded %d errors, want 1", len(summary.Errors))
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want both kept", len(listings))
	}
	// The failed item survives with its search-level fields intact.
	if listings[1].Title == nil || *listings[1].Title != "broken detail" {
		t.Errorf("failed item = %+v, want search-level listing kept", listings[1])
	}
	if listings[1].PriceYen != nil {
		t.Errorf("failed item should not gain detail fields")
	}
}

func TestRunScrapeListingsWithoutURLSkipDetail(t *testing.T) {
	scraper := &fakeScraper{
		name: "bitauction",
		searchOut: []domain.RawListing{
			{Source: "bitauction", SourceID: "manifest-only"},
		},
	}
	uc := NewRunScrapeUseCase(scraper)

	listings, summary, err := uc.Execute(context.Background(), domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if scraper.detailHits != 0 {
		t.Errorf("detail fetched %d times for URL-less listing, want 0", scraper.detailHits)
	}
	if summary.DetailsScraped != 0 || summary.DetailsFailed != 0 {
		t.Errorf("summary = %+v, want no detail activity", summary)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
}

func TestRunScrapeNilDetailFallsBack(t *testing.T) {
	// A scraper may return (nil, nil) when the detail page has no
	// extractable content; the search listing is kept and counted failed.
	scraper := &fakeScraper{
		name: "homes",
		searchOut: []domain.RawListing{
			{Source: "homes", SourceID: "x", URL: "https://example.jp/x", Title: strPtr("empty detail")},
		},
		detailOut: map[string]*domain.RawListing{},
	}
	uc := NewRunScrapeUseCase(scraper)

	listings, summary, err := uc.Execute(context.Background(), domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.DetailsFailed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if len(listings) != 1 || listings[0].Title == nil || *listings[0].Title != "empty detail" {
		t.Errorf("listings = %+v, want search-level listing kept", listings)
	}
}
