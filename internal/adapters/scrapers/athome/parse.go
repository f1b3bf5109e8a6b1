package athome

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/core/domain"
)

const maxImages = 10

var (
	cardSelectors = []string{
		"[class*='property-card']",
		"[class*='propertyCard']",
		"[class*='bukken-card']",
		"[class*='object-list']",
		"[data-property-id]",
		".p-property",
		".cassette",
	}

	numericPathPattern = regexp.MustCompile(`/(\d{5,})/?`)
	cardLinkPattern    = regexp.MustCompile(`/\d{4,}`)
	bgImagePattern     = regexp.MustCompile(`url\(['"]?(https?://[^)'"]+)['"]?\)`)
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
		links := doc.Find("a[href]").FilterFunction(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			return numericPathPattern.MatchString(href)
		})
		cards = scrapekit.UniqueParents(links, "div, li, article, section")
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
	link := card.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		return cardLinkPattern.MatchString(href)
	}).First()
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

	if title := scrapekit.FirstText(card, 4, "h2", "h3", "[class*='title']", "[class*='name']", "[class*='heading']", "a"); title != "" {
		raw.Title = &title
	}

	if priceText := scrapekit.FirstText(card, 2, "[class*='price'], [class*='Price'], [class*='kakaku'], .value, span.num"); priceText != "" {
		raw.PriceYen = scrapekit.PriceFromText(priceText)
	}
	if raw.PriceYen == nil {
		raw.PriceYen = scrapekit.PriceFromText(card.Text())
	}

	scrapekit.ApplyDetails(raw, scrapekit.KeyValues(card))

	if raw.Address == nil {
		for _, selector := range []string{"[class*='address']", "[class*='Address']", "[class*='shozaichi']", "[class*='area']", "[class*='location']"} {
			text := scrapekit.CleanText(card.Find(selector).First().Text())
			if text != "" && addressMarkerPattern.MatchString(text) {
				raw.Address = &text
				break
			}
		}
	}

	if raw.Address == nil && raw.PriceYen == nil {
		return nil
	}
	return raw
}

var addressMarkerPattern = regexp.MustCompile(`[都道府県市区町村郡]`)

func parseDetailPage(doc *goquery.Document, baseURL, pageURL string) *domain.RawListing {
	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(pageURL),
		URL:      pageURL,
	}

	if title := scrapekit.FirstText(doc.Selection, 1, "h1", "[class*='heading']", "[class*='title']"); title != "" {
		raw.Title = &title
	}

	scrapekit.ApplyDetails(raw, scrapekit.KeyValues(doc.Selection))

	if raw.PriceYen == nil {
		if priceText := scrapekit.FirstText(doc.Selection, 2, "[class*='price'], [class*='Price'], [class*='kakaku']"); priceText != "" {
			raw.PriceYen = scrapekit.PriceFromText(priceText)
		}
	}

	raw.Latitude, raw.Longitude = scrapekit.ExtractCoordinates(doc)

	raw.ImageURLs = detailImages(doc, baseURL)

	return raw
}

func detailImages(doc *goquery.Document, baseURL string) []string {
	urls := scrapekit.CollectImages(
		doc.Selection,
		"img[src*='athome'], img[data-src*='athome']",
		baseURL,
		maxImages,
	)
	if len(urls) >= maxImages {
		return urls
	}

	// Gallery photos are sometimes rendered as background images.
	seen := map[string]bool{}
	for _, u := range urls {
		seen[u] = true
	}
	doc.Find("[style*='background-image']").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		m := bgImagePattern.FindStringSubmatch(style)
		if m == nil || seen[m[1]] || scrapekit.IsUIImage(m[1]) {
			return true
		}
		seen[m[1]] = true
		urls = append(urls, m[1])
		return len(urls) < maxImages
	})

	return urls
}

func hasNextPage(doc *goquery.Document) bool {
	if doc.Find("a[rel='next']").Length() > 0 {
		return true
	}

	found := false
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		text := scrapekit.CleanText(link.Text())
		if text == "次へ" || text == "次のページ" {
			found = true
			return false
		}
		return true
	})
	return found
}

func sourceID(listingURL string) string {
	if m := numericPathPattern.FindStringSubmatch(listingURL); m != nil {
		return m[1]
	}
	return scrapekit.LastPathSegment(listingURL)
}
