// Package suumo scrapes the SUUMO 中古戸建 (used detached house)
// listings. SUUMO is the highest-traffic portal of the bunch, so the
// adapter ships with the most conservative crawl delay.
package suumo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
)

const (
	sourceName     = "suumo"
	defaultBaseURL = "https://suumo.jp"
	defaultDelay   = 30 * time.Second
)

// Region codes for the ar parameter, keyed by JIS prefecture code.
var regionCodes = map[string]string{
	"01": "010",
	"02": "020", "03": "020", "04": "020", "05": "020", "06": "020", "07": "020",
	"08": "030", "09": "030", "10": "030", "11": "030", "12": "030", "13": "030", "14": "030",
	"15": "040", "16": "040", "17": "040", "18": "040", "19": "040", "20": "040",
	"21": "050", "22": "050", "23": "050",
	"24": "060", "25": "060", "26": "060", "27": "060", "28": "060", "29": "060", "30": "060",
	"31": "070", "32": "070", "33": "070", "34": "070", "35": "070",
	"36": "080", "37": "080", "38": "080", "39": "080",
	"40": "090", "41": "090", "42": "090", "43": "090", "44": "090", "45": "090", "46": "090", "47": "090",
}

// Price ceilings (万円) accepted by the pc parameter.
var priceCodes = []int64{50, 100, 150, 200, 300, 400, 500, 600, 700, 800, 1000, 1500, 2000, 3000, 5000}

// priceCode snaps a yen ceiling to the nearest search-form price code.
func priceCode(priceYen int64) int64 {
	man := priceYen / 10_000
	for _, code := range priceCodes {
		if man <= code {
			return code
		}
	}
	return priceCodes[len(priceCodes)-1]
}

type Scraper struct {
	collector *colly.Collector
	baseURL   string
	delay     time.Duration
}

func NewScraper(baseURL string, delay time.Duration) (*Scraper, error) {
	if delay <= 0 {
		delay = defaultDelay
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("suumo: invalid base URL %q", baseURL)
	}

	c, err := scrapekit.NewCollector(parsed.Host, delay, parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("suumo: %w", err)
	}

	return &Scraper{
		collector: c,
		baseURL:   baseURL,
		delay:     delay,
	}, nil
}

func (s *Scraper) Name() string { return sourceName }

func (s *Scraper) CrawlDelay() time.Duration { return s.delay }

func (s *Scraper) Search(ctx context.Context, params domain.SearchParams) ([]domain.RawListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"scraper": sourceName})

	maxPages := params.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var listings []domain.RawListing
	for page := 1; page <= maxPages; page++ {
		pageURL := s.searchURL(params, page)
		logger.Info("fetching search page", port.Fields{"page": page, "url": pageURL})

		doc, _, err := scrapekit.FetchDocument(ctx, s.collector, pageURL)
		if err != nil {
			if len(listings) > 0 {
				logger.Warn("search page failed, keeping earlier pages", port.Fields{
					"page":  page,
					"error": err.Error(),
				})
				break
			}
			return nil, err
		}

		pageListings := parseSearchPage(doc, s.baseURL)

		kept := 0
		for _, listing := range pageListings {
			// The form only takes a ceiling, so the lower bound is
			// enforced here.
			if scrapekit.WithinPriceRange(listing.PriceYen, params.PriceMin, params.PriceMax) {
				listings = append(listings, listing)
				kept++
			}
		}

		logger.Info("parsed search page", port.Fields{
			"page":  page,
			"found": len(pageListings),
			"kept":  kept,
			"total": len(listings),
		})

		if len(pageListings) == 0 || !hasNextPage(doc) {
			break
		}
		if page < maxPages {
			if err := scrapekit.SleepBetweenPages(ctx, s.delay); err != nil {
				return listings, err
			}
		}
	}

	return listings, nil
}

func (s *Scraper) FetchDetail(ctx context.Context, listingURL string) (*domain.RawListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"scraper": sourceName})

	doc, status, err := scrapekit.FetchDocument(ctx, s.collector, listingURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("detail fetch failed", port.Fields{
			"url":    listingURL,
			"status": status,
			"error":  err.Error(),
		})
		return nil, nil
	}

	return parseDetailPage(doc, listingURL), nil
}

func (s *Scraper) searchURL(params domain.SearchParams, page int) string {
	prefCode := params.PrefectureCode
	if prefCode == "" {
		prefCode = "13"
	}
	ar, ok := regionCodes[prefCode]
	if !ok {
		ar = "030"
	}

	pc := priceCodes[len(priceCodes)-1]
	if params.PriceMax != nil {
		pc = priceCode(*params.PriceMax)
	}

	return fmt.Sprintf(
		"%s/jj/bukken/ichiran/JJ012FC001/?ar=%s&bs=021&ta=%s&pc=%d&cn=50&po=2&page=%d",
		s.baseURL, ar, prefCode, pc, page,
	)
}

var _ port.ScraperPort = (*Scraper)(nil)
