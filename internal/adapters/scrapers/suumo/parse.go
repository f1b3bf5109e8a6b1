package suumo

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/core/domain"
)

const maxImages = 10

var (
	cardSelectors = []string{
		".property_unit",
		".cassetteitem",
		".dottable-line",
		"[class*='cassette']",
	}

	floorPlanPattern = regexp.MustCompile(`\d+[SLDK]+`)
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
		cards = scrapekit.UniqueParents(doc.Find("a[href*='/chukoikkodate/']"), "div, li, tr, article")
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
	link := card.Find("a[href*='/chukoikkodate/']").First()
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
		SourceID: scrapekit.LastPathSegment(href),
		URL:      href,
	}

	if title := scrapekit.FirstText(card, 4, "h2", ".property_unit-title", ".cassetteitem_content-title", "a"); title != "" {
		raw.Title = &title
	}

	if priceText := scrapekit.FirstText(card, 2, ".dottable-value", ".detailnote-price", "[class*='price']", ".cassetteitem_price"); priceText != "" {
		raw.PriceYen = scrapekit.PriceFromText(priceText)
	}
	if raw.PriceYen == nil {
		raw.PriceYen = scrapekit.PriceFromText(card.Text())
	}

	if address := cardAddress(card); address != "" {
		raw.Address = &address
	}

	kv := scrapekit.KeyValues(card)

	// Cassette cards put plan and year into unlabelled cells.
	for _, value := range kv {
		if raw.FloorPlan == nil {
			if plan := floorPlanPattern.FindString(value); plan != "" {
				raw.FloorPlan = &plan
			}
		}
	}

	scrapekit.ApplyDetails(raw, kv)

	if raw.Address == nil && raw.PriceYen == nil {
		return nil
	}
	return raw
}

func cardAddress(card *goquery.Selection) string {
	for _, selector := range []string{".dottable-vm", "[class*='address']", "[class*='area']", ".cassetteitem_detail-col1"} {
		text := scrapekit.CleanText(card.Find(selector).First().Text())
		if looksLikeAddress(text) {
			return text
		}
	}
	return ""
}

var addressMarkerPattern = regexp.MustCompile(`[都道府県市区町村郡]`)

func looksLikeAddress(text string) bool {
	return text != "" && addressMarkerPattern.MatchString(text)
}

func parseDetailPage(doc *goquery.Document, pageURL string) *domain.RawListing {
	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: scrapekit.LastPathSegment(pageURL),
		URL:      pageURL,
	}

	if title := scrapekit.FirstText(doc.Selection, 1, "h1", "[class*='title']"); title != "" {
		raw.Title = &title
	}

	scrapekit.ApplyDetails(raw, scrapekit.KeyValues(doc.Selection))

	raw.Latitude, raw.Longitude = scrapekit.ExtractCoordinates(doc)
	raw.ImageURLs = scrapekit.CollectImages(doc.Selection, "img[src*='img.suumo'], img[data-src*='img.suumo']", "", maxImages)

	return raw
}

func hasNextPage(doc *goquery.Document) bool {
	if doc.Find(".pagination_set-nav a[rel='next']").Length() > 0 {
		return true
	}

	found := false
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if scrapekit.CleanText(link.Text()) == "次へ" {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	return doc.Find(".pagination_set .pagination_set-num").Length() > 1
}
