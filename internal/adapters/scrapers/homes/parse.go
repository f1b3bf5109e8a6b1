package homes

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/jptext"
)

const maxImages = 10

var (
	cardSelectors = []string{
		".mod-mergeBuilding",
		".mod-buildingListUnit",
		"[class*='building']",
		".prg-building",
	}

	buildingIDPattern = regexp.MustCompile(`/(\d{5,})/|bid=(\d+)`)
	imageExtPattern   = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)`)
)

func parseSearchPage(doc *goquery.Document, baseURL string) []domain.RawListing {
	var cards []*goquery.Selection
	for _, selector := range cardSelectors {
		doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
			cards = append(cards, card)
		})
		if len(cards) > 0 {
			break
		}
	}
	if len(cards) == 0 {
		cards = scrapekit.UniqueParents(doc.Find("a[href*='/kodate/chu/']"), "div, li, article, section")
	}

	var listings []domain.RawListing
	for _, card := range cards {
		if listing := parseCard(card, baseURL); listing != nil {
			listings = append(listings, *listing)
		}
	}
	return listings
}

func parseCard(card *goquery.Selection, baseURL string) *domain.RawListing {
	link := card.Find("a[href*='/kodate/chu/']").First()
	if link.Length() == 0 {
		link = card.Find("a[href*='/kodate/']").First()
	}
	if link.Length() == 0 {
		link = card.Find("a[href]").First()
	}
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return nil
	}
	href = scrapekit.AbsoluteURL(baseURL, href)

	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(href),
		URL:      href,
	}

	if title := scrapekit.FirstText(card, 4, "h2", "h3", "[class*='title']", "[class*='name']", "a"); title != "" {
		raw.Title = &title
	}

	if priceText := scrapekit.FirstText(card, 2, "[class*='price'], [class*='Price']"); priceText != "" {
		raw.PriceYen = scrapekit.PriceFromText(priceText)
	}
	if raw.PriceYen == nil {
		raw.PriceYen = scrapekit.PriceFromText(card.Text())
	}

	scrapekit.ApplyDetails(raw, scrapekit.KeyValues(card))

	if raw.Address == nil && raw.PriceYen == nil {
		return nil
	}
	return raw
}

func parseDetailPage(doc *goquery.Document, pageURL string) *domain.RawListing {
	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(pageURL),
		URL:      pageURL,
	}

	if title := scrapekit.FirstText(doc.Selection, 1, "h1", "[class*='heading']", "[class*='title']"); title != "" {
		raw.Title = &title
	}

	scrapekit.ApplyDetails(raw, scrapekit.KeyValues(doc.Selection))

	ld := extractLDJSON(doc)
	applyLDJSON(raw, ld)

	if raw.Address != nil && raw.Prefecture == nil {
		if pref := jptext.ExtractPrefecture(*raw.Address); pref != "" {
			raw.Prefecture = &pref
		}
	}
	if raw.Address != nil && raw.Municipality == nil {
		if muni := jptext.ExtractMunicipality(*raw.Address); muni != "" {
			raw.Municipality = &muni
		}
	}

	if raw.Latitude == nil || raw.Longitude == nil {
		raw.Latitude, raw.Longitude = scrapekit.ExtractCoordinates(doc)
	}

	raw.ImageURLs = detailImages(doc, ld)

	return raw
}

// extractLDJSON returns the first ld+json object describing the
// property; @graph wrappers and top-level arrays are unwrapped.
func extractLDJSON(doc *goquery.Document) map[string]interface{} {
	var result map[string]interface{}

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := strings.TrimSpace(script.Text())
		if text == "" {
			return true
		}

		var payload interface{}
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return true
		}

		switch v := payload.(type) {
		case map[string]interface{}:
			if graph, ok := v["@graph"].([]interface{}); ok {
				for _, entry := range graph {
					if m, ok := entry.(map[string]interface{}); ok {
						result = m
						return false
					}
				}
				return true
			}
			result = v
			return false
		case []interface{}:
			for _, entry := range v {
				if m, ok := entry.(map[string]interface{}); ok {
					result = m
					return false
				}
			}
		}
		return true
	})

	return result
}

func applyLDJSON(raw *domain.RawListing, ld map[string]interface{}) {
	if ld == nil {
		return
	}

	if raw.PriceYen == nil {
		if offers, ok := ld["offers"].(map[string]interface{}); ok {
			if price := toInt64(offers["price"]); price != nil {
				raw.PriceYen = price
			}
		}
	}

	if raw.Address == nil {
		switch addr := ld["address"].(type) {
		case map[string]interface{}:
			composed := toString(addr["addressRegion"]) + toString(addr["addressLocality"]) + toString(addr["streetAddress"])
			if composed != "" {
				raw.Address = &composed
			}
		case string:
			if addr != "" {
				raw.Address = &addr
			}
		}
	}

	if geo, ok := ld["geo"].(map[string]interface{}); ok {
		if lat, lng := toFloat(geo["latitude"]), toFloat(geo["longitude"]); lat != nil && lng != nil {
			raw.Latitude = lat
			raw.Longitude = lng
		}
	}
}

func detailImages(doc *goquery.Document, ld map[string]interface{}) []string {
	var urls []string
	seen := map[string]bool{}

	doc.Find("img[src*='homes.co.jp'], img[data-src*='homes.co.jp']").Each(func(_ int, img *goquery.Selection) {
		if len(urls) >= maxImages {
			return
		}
		src, ok := img.Attr("data-src")
		if !ok || src == "" {
			src, _ = img.Attr("src")
		}
		if src == "" || seen[src] || !imageExtPattern.MatchString(src) || scrapekit.IsUIImage(src) {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	if len(urls) > 0 {
		return urls
	}

	if ld != nil {
		switch images := ld["image"].(type) {
		case []interface{}:
			for _, entry := range images {
				if u, ok := entry.(string); ok && u != "" {
					urls = append(urls, u)
					if len(urls) >= maxImages {
						break
					}
				}
			}
		case string:
			if images != "" {
				urls = append(urls, images)
			}
		}
	}

	return urls
}

func hasNextPage(doc *goquery.Document) bool {
	if doc.Find("a[rel='next'], a.pagination-next, [class*='pagination'] a[class*='next']").Length() > 0 {
		return true
	}

	found := false
	doc.Find("[class*='pagination'] a, .pager a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if strings.Contains(link.Text(), "次へ") {
			found = true
			return false
		}
		return true
	})
	return found
}

func sourceID(listingURL string) string {
	if m := buildingIDPattern.FindStringSubmatch(listingURL); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return scrapekit.LastPathSegment(listingURL)
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toFloat(v interface{}) *float64 {
	switch value := v.(type) {
	case float64:
		return &value
	case string:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return nil
}

func toInt64(v interface{}) *int64 {
	switch value := v.(type) {
	case float64:
		i := int64(value)
		return &i
	case string:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			i := int64(f)
			return &i
		}
	}
	return nil
}
