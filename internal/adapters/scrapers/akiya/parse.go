package akiya

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/core/domain"
)

const maxImages = 20

var (
	detailLinkSelector = "a[href*='/bukken/detail/buy/'], a[href*='/buy/detail/']"

	cardSelectors = []string{
		"section.propety article",
		"article.property-item",
		".akiya-item",
		".property-card",
		".bukken-list li",
		".property_unit",
	}

	// The photo carousel is initialised from an inline script variable
	// holding a JSON array of image records.
	carouselPattern = regexp.MustCompile(`image_tile_carousel_image_s\s*=\s*(\[[^\]]*\])`)
)

func parseMunicipalityCodes(doc *goquery.Document) []string {
	var codes []string
	seen := map[string]bool{}

	doc.Find("input[name='gyosei_cd[]']").Each(func(_ int, input *goquery.Selection) {
		value, ok := input.Attr("value")
		if !ok || value == "" || seen[value] {
			return
		}
		seen[value] = true
		codes = append(codes, value)
	})

	return codes
}

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
		cards = scrapekit.UniqueParents(doc.Find(detailLinkSelector), "section, article, div, li, tr")
	}

	var listings []domain.RawListing
	for _, card := range cards {
		if listing := parseSearchCard(card, baseURL); listing != nil {
			listings = append(listings, *listing)
		}
	}
	return listings
}

func parseSearchCard(card *goquery.Selection, baseURL string) *domain.RawListing {
	link := card.Find(detailLinkSelector).First()
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

	if priceText := scrapekit.FirstText(card, 2, "dl.price dd", "[class*='price']", ".price"); priceText != "" {
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

func parseDetailPage(doc *goquery.Document, baseURL, pageURL string) *domain.RawListing {
	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(pageURL),
		URL:      pageURL,
	}

	if title := scrapekit.FirstText(doc.Selection, 1, "h1", "[class*='title']", "h2"); title != "" {
		raw.Title = &title
	}

	scrapekit.ApplyDetails(raw, scrapekit.KeyValues(doc.Selection))

	if raw.PriceYen == nil {
		if priceText := scrapekit.FirstText(doc.Selection, 2, "[class*='price']"); priceText != "" {
			raw.PriceYen = scrapekit.PriceFromText(priceText)
		}
	}

	raw.Latitude, raw.Longitude = scrapekit.ExtractCoordinates(doc)

	raw.ImageURLs = carouselImages(doc, baseURL)
	if len(raw.ImageURLs) == 0 {
		raw.ImageURLs = scrapekit.CollectImages(doc.Selection, "img", baseURL, maxImages)
	}

	return raw
}

// carouselImages decodes the inline carousel JSON, preferring the
// full-size variant of each photo over its thumbnail.
func carouselImages(doc *goquery.Document, baseURL string) []string {
	var urls []string
	seen := map[string]bool{}

	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		m := carouselPattern.FindStringSubmatch(script.Text())
		if m == nil {
			return true
		}

		var records []struct {
			FullSize  string `json:"image_url_fullsize"`
			Thumbnail string `json:"image_url_thumbnail"`
		}
		if err := json.Unmarshal([]byte(m[1]), &records); err != nil {
			return true
		}

		for _, record := range records {
			src := record.FullSize
			if src == "" {
				src = record.Thumbnail
			}
			if src == "" || scrapekit.IsUIImage(src) {
				continue
			}
			resolved := scrapekit.AbsoluteURL(baseURL, src)
			if seen[resolved] {
				continue
			}
			seen[resolved] = true
			urls = append(urls, resolved)
			if len(urls) >= maxImages {
				break
			}
		}
		return false
	})

	return urls
}

func hasNextPage(doc *goquery.Document, page int) bool {
	nextParam := fmt.Sprintf("page=%d", page+1)
	found := false

	doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		text := scrapekit.CleanText(link.Text())
		if strings.Contains(href, nextParam) || strings.Contains(text, "次へ") || strings.Contains(text, "次の") {
			found = true
			return false
		}
		return true
	})

	return found
}

func sourceID(listingURL string) string {
	if id := scrapekit.TrailingNumericID(listingURL); id != "" {
		return sourceName + "-" + id
	}
	return sourceName + "-" + scrapekit.LastPathSegment(listingURL)
}
