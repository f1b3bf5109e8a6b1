package port

import (
	"context"
	"time"

	"akiya-radar/internal/core/domain"
)

// ScraperPort is the common contract implemented by every source extractor.
type ScraperPort interface {
	// Name returns the source identifier used in listings and jobs.
	Name() string

	// CrawlDelay is the fixed politeness delay between page fetches,
	// also applied by the orchestrator between detail fetches.
	CrawlDelay() time.Duration

	// Search runs the paginated search and returns summary-level listings.
	// Pagination stops at MaxPages, at the first page that yields no
	// listings, or when no next-page indicator is found.
	Search(ctx context.Context, params domain.SearchParams) ([]domain.RawListing, error)

	// FetchDetail scrapes the full detail page for one listing.
	// Returns (nil, nil) when the page could not be fetched or parsed;
	// the caller falls back to the search-level listing.
	FetchDetail(ctx context.Context, url string) (*domain.RawListing, error)
}
