// Package athome scrapes at home (athome.co.jp) 中古戸建 listings.
package athome

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
	sourceName     = "athome"
	defaultBaseURL = "https://www.athome.co.jp"
	defaultDelay   = 5 * time.Second
)

// URL slugs by JIS prefecture code.
var prefectureSlugs = map[string]string{
	"01": "hokkaido", "02": "aomori", "03": "iwate", "04": "miyagi",
	"05": "akita", "06": "yamagata", "07": "fukushima", "08": "ibaraki",
	"09": "tochigi", "10": "gunma", "11": "saitama", "12": "chiba",
	"13": "tokyo", "14": "kanagawa", "15": "niigata", "16": "toyama",
	"17": "ishikawa", "18": "fukui", "19": "yamanashi", "20": "nagano",
	"21": "gifu", "22": "shizuoka", "23": "aichi", "24": "mie",
	"25": "shiga", "26": "kyoto", "27": "osaka", "28": "hyogo",
	"29": "nara", "30": "wakayama", "31": "tottori", "32": "shimane",
	"33": "okayama", "34": "hiroshima", "35": "yamaguchi", "36": "tokushima",
	"37": "kagawa", "38": "ehime", "39": "kochi", "40": "fukuoka",
	"41": "saga", "42": "nagasaki", "43": "kumamoto", "44": "oita",
	"45": "miyazaki", "46": "kagoshima", "47": "okinawa",
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
		return nil, fmt.Errorf("athome: invalid base URL %q", baseURL)
	}

	c, err := scrapekit.NewCollector(parsed.Host, delay, parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("athome: %w", err)
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

	return parseDetailPage(doc, s.baseURL, listingURL), nil
}

func (s *Scraper) searchURL(params domain.SearchParams, page int) string {
	slug, ok := prefectureSlugs[params.PrefectureCode]
	if !ok {
		slug = "tokyo"
	}

	u := fmt.Sprintf("%s/kodate/chuko/%s/list/?page=%d", s.baseURL, slug, page)
	if params.PriceMax != nil {
		u += fmt.Sprintf("&price_to=%d", *params.PriceMax/10_000)
	}
	if params.PriceMin != nil {
		u += fmt.Sprintf("&price_from=%d", *params.PriceMin/10_000)
	}
	return u
}

var _ port.ScraperPort = (*Scraper)(nil)
