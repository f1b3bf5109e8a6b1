package usecase

import (
	"context"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
)

// RunScrapeUseCase drives one source extractor through the search and
// detail-enrichment phases.
type RunScrapeUseCase struct {
	scraper port.ScraperPort
}

func NewRunScrapeUseCase(scraper port.ScraperPort) *RunScrapeUseCase {
	return &RunScrapeUseCase{scraper: scraper}
}

// Execute runs search once (the extractor paginates internally), then
// enriches every found listing sequentially from its detail page. A
// failing detail fetch keeps the search-level listing and records the
// error; a single item never aborts the run. The crawl delay is applied
// between detail fetches and skipped after the last item.
func (uc *RunScrapeUseCase) Execute(ctx context.Context, params domain.SearchParams) ([]domain.RawListing, domain.ScrapeSummary, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "RunScrape",
		"source":   uc.scraper.Name(),
	})

	summary := domain.ScrapeSummary{}

	logger.Info("Starting scrape", port.Fields{
		"prefecture": params.PrefectureCode,
		"price_max":  params.PriceMax,
		"max_pages":  params.MaxPages,
	})

	found, err := uc.scraper.Search(ctx, params)
	if err != nil {
		return nil, summary, fmt.Errorf("search phase for source %s: %w", uc.scraper.Name(), err)
	}
	summary.ListingsFound = len(found)

	logger.Info("Search complete", port.Fields{"listings_found": len(found)})

	delay := uc.scraper.CrawlDelay()
	enriched := make([]domain.RawListing, 0, len(found))

	for i, listing := range found {
		if ctx.Err() != nil {
			return enriched, summary, ctx.Err()
		}

		if listing.URL != "" {
			detail, err := uc.scraper.FetchDetail(ctx, listing.URL)
			switch {
			case err != nil:
				summary.DetailsFailed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("detail %s: %v", listing.URL, err))
				logger.Warn("Detail fetch failed, keeping search-level listing", port.Fields{
					"url":   listing.URL,
					"error": err.Error(),
				})
				enriched = append(enriched, listing)
			case detail == nil:
				summary.DetailsFailed++
				enriched = append(enriched, listing)
			default:
				summary.DetailsScraped++
				enriched = append(enriched, *detail)
			}
		} else {
			enriched = append(enriched, listing)
		}

		// politeness delay, skipped after the final item
		if i < len(found)-1 {
			select {
			case <-ctx.Done():
				return enriched, summary, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	logger.Info("Scrape finished", port.Fields{
		"found":           summary.ListingsFound,
		"details_scraped": summary.DetailsScraped,
		"details_failed":  summary.DetailsFailed,
	})
	return enriched, summary, nil
}
