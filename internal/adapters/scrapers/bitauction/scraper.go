// Package bitauction scrapes BIT, the Japanese court-auction portal.
// Lots are published as HTML tables plus supplementary PDF documents
// (the 3-set: 物件明細書, 現況調査報告書, 評価書). The search endpoint
// answers GET on some flows and insists on a form POST on others, so
// the adapter falls back to POST on a 405.
package bitauction

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
)

const (
	sourceName     = "bit"
	defaultBaseURL = "https://www.bit.courts.go.jp"
	defaultDelay   = 8 * time.Second

	searchPath = "/app/list/pt001/h01"
)

// Court districts by High Court jurisdiction, keyed by JIS prefecture
// code. BIT groups courts under the eight High Courts plus the large
// district courts it exposes as separate areas.
var courtDistricts = map[string]string{
	"01": "sapporo",
	"02": "sendai", "03": "sendai", "04": "sendai", "05": "sendai", "06": "sendai", "07": "sendai",
	"08": "tokyo", "09": "tokyo", "10": "tokyo", "11": "tokyo", "12": "tokyo", "13": "tokyo",
	"14": "yokohama",
	"15": "tokyo", "16": "nagoya", "17": "nagoya", "18": "nagoya", "19": "tokyo", "20": "tokyo",
	"21": "nagoya", "22": "nagoya", "23": "nagoya", "24": "nagoya",
	"25": "osaka", "26": "osaka", "27": "osaka", "28": "kobe", "29": "osaka", "30": "osaka",
	"31": "hiroshima", "32": "hiroshima", "33": "hiroshima", "34": "hiroshima", "35": "hiroshima",
	"36": "takamatsu", "37": "takamatsu", "38": "takamatsu", "39": "takamatsu",
	"40": "fukuoka", "41": "fukuoka", "42": "fukuoka", "43": "fukuoka", "44": "fukuoka",
	"45": "fukuoka", "46": "fukuoka", "47": "fukuoka",
}

// Search-form codes for the bpiKubun parameter.
var propertyTypeCodes = map[string]string{
	"detached_house": "10",
	"land":           "20",
	"condo":          "30",
	"other":          "99",
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
		return nil, fmt.Errorf("bitauction: invalid base URL %q", baseURL)
	}

	c, err := scrapekit.NewCollector(parsed.Host, delay, parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("bitauction: %w", err)
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
		doc, err := s.fetchSearchPage(ctx, params, page, logger)
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

		listings = append(listings, pageListings...)
		logger.Info("parsed search page", port.Fields{
			"page":  page,
			"found": len(pageListings),
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

// fetchSearchPage GETs the search URL and retries as a form POST when
// the server rejects the method.
func (s *Scraper) fetchSearchPage(ctx context.Context, params domain.SearchParams, page int, logger port.LoggerPort) (*goquery.Document, error) {
	pageURL := s.searchURL(params, page)
	logger.Info("fetching search page", port.Fields{"page": page, "url": pageURL})

	doc, status, err := scrapekit.FetchDocument(ctx, s.collector, pageURL)
	if err == nil {
		return doc, nil
	}
	if status != http.StatusMethodNotAllowed {
		return nil, err
	}

	logger.Info("search endpoint rejected GET, retrying as form POST", port.Fields{"page": page})
	doc, _, err = scrapekit.PostDocument(ctx, s.collector, s.baseURL+searchPath, s.searchForm(params, page))
	return doc, err
}

func (s *Scraper) FetchDetail(ctx context.Context, listingURL string) (*domain.RawListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"scraper": sourceName})

	if listingURL == "" {
		return nil, nil
	}

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

	raw := parseDetailPage(doc, s.baseURL, listingURL)

	if count := pdfDocumentCount(raw); count > 0 {
		// 3-set PDF parsing is not implemented; the manifest is kept in
		// RawData so the documents can be processed later.
		logger.Warn("3-set PDF documents recorded but not parsed", port.Fields{
			"url":  listingURL,
			"pdfs": count,
		})
	}

	return raw, nil
}

func (s *Scraper) searchURL(params domain.SearchParams, page int) string {
	v := s.searchValues(params, page)
	return s.baseURL + searchPath + "?" + v.Encode()
}

func (s *Scraper) searchForm(params domain.SearchParams, page int) map[string]string {
	form := map[string]string{}
	for key, values := range s.searchValues(params, page) {
		form[key] = values[0]
	}
	return form
}

func (s *Scraper) searchValues(params domain.SearchParams, page int) url.Values {
	propCode, ok := propertyTypeCodes[params.PropertyType]
	if !ok {
		propCode = propertyTypeCodes["detached_house"]
	}

	v := url.Values{}
	v.Set("bpiKubun", propCode)
	if params.PrefectureCode != "" {
		if district, ok := courtDistricts[params.PrefectureCode]; ok {
			v.Set("courtAreaId", district)
		}
		v.Set("kenCode", params.PrefectureCode)
	}
	if params.PriceMin != nil {
		v.Set("priceFrom", fmt.Sprintf("%d", *params.PriceMin))
	}
	if params.PriceMax != nil {
		v.Set("priceTo", fmt.Sprintf("%d", *params.PriceMax))
	}
	v.Set("page", fmt.Sprintf("%d", page))
	v.Set("sort", "new")
	return v
}

var _ port.ScraperPort = (*Scraper)(nil)
