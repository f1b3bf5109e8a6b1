// Package akiya scrapes the AtHome 空き家バンク (vacant-house bank)
// aggregation site. Municipality codes are discovered per prefecture
// from the area-selection form, and search results are filtered by
// price on the client because the form has no price field.
package akiya

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
)

const (
	sourceName     = "akiya"
	defaultBaseURL = "https://www.akiya-athome.jp"
	defaultDelay   = 3 * time.Second
)

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
		return nil, fmt.Errorf("akiya: invalid base URL %q", baseURL)
	}

	c, err := scrapekit.NewCollector(parsed.Host, delay, parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("akiya: %w", err)
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

	prefCode := params.PrefectureCode
	if _, ok := prefectureNames[prefCode]; !ok {
		return nil, fmt.Errorf("akiya: unknown prefecture code %q", prefCode)
	}

	municipalityCodes, err := s.discoverMunicipalities(ctx, prefCode)
	if err != nil {
		logger.Warn("municipality discovery failed, searching whole prefecture", port.Fields{
			"prefecture": prefCode,
			"error":      err.Error(),
		})
		municipalityCodes = nil
	}
	if params.MunicipalityCode != "" {
		municipalityCodes = []string{params.MunicipalityCode}
	}

	maxPages := params.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var listings []domain.RawListing
	for page := 1; page <= maxPages; page++ {
		pageURL := s.searchURL(prefCode, municipalityCodes, page)
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

		if len(pageListings) == 0 || !hasNextPage(doc, page) {
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

// discoverMunicipalities scrapes the area-selection form for the
// gyosei_cd values the search endpoint expects.
func (s *Scraper) discoverMunicipalities(ctx context.Context, prefCode string) ([]string, error) {
	v := url.Values{}
	v.Set("search_type", "area")
	v.Set("br_kbn", "buy")
	v.Set("sbt_kbn", "house")
	v.Set("pref_cd", prefCode)

	doc, _, err := scrapekit.FetchDocument(ctx, s.collector, s.baseURL+"/bukken/search/areas/?"+v.Encode())
	if err != nil {
		return nil, err
	}

	return parseMunicipalityCodes(doc), nil
}

func (s *Scraper) searchURL(prefCode string, municipalityCodes []string, page int) string {
	v := url.Values{}
	v.Set("search_type", "area")
	v.Set("br_kbn", "buy")
	v.Set("sbt_kbn", "house")
	v.Set("pref_cd", prefCode)
	for _, code := range municipalityCodes {
		v.Add("gyosei_cd[]", code)
	}
	v.Set("item_count", "100")
	v.Set("search_sort", "kokai_date")
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return s.baseURL + "/bukken/search/list/?" + v.Encode()
}

var _ port.ScraperPort = (*Scraper)(nil)
