package bitauction

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"akiya-radar/internal/adapters/scrapers/scrapekit"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/jptext"
)

// Auction lot prices are at least in the 万円 range; smaller numbers in
// a table cell are lot counts or dates, not prices.
const minAuctionPrice = 10_000

var (
	rowSelectors = []string{
		"table.result-table tbody tr",
		"table.list-table tbody tr",
		"div.result-list table tr",
		"#result-list table tr",
	}

	cardFallbackSelectors = []string{
		"div.property-item",
		"div.result-item",
		"div.list-item",
	}

	caseNumberPattern  = regexp.MustCompile(`(?:令和|平成|昭和)\d+年\s*[(（][^)）]+[)）]\s*第?\d+号`)
	saleDatePattern    = regexp.MustCompile(`(?:令和|平成)?\d+年\d+月\d+日`)
	addressCellPattern = regexp.MustCompile(`[都道府県市区町村郡]`)
	idQueryPattern     = regexp.MustCompile(`[?&]id=([^&]+)`)
	courtNamePattern   = regexp.MustCompile(`[^\s]*(?:地方裁判所|地裁|家裁)[^\s]{0,10}`)

	// Priority order matters: 売却基準価額 is the canonical label.
	auctionPriceKeys = []string{"売却基準価額", "買受可能価額", "売却基準価格", "最低売却価額", "価格", "売却価額"}

	pageTextPricePattern = regexp.MustCompile(`(?:売却基準価額|買受可能価額)[^\d]*([\d,]+)\s*円`)
	yenAmountPattern     = regexp.MustCompile(`\d[\d,]{3,}円`)
)

// auctionPriceFromText parses a price mention out of free text,
// accepting both the 万円 form and the comma-grouped plain-yen amounts
// court notices prefer.
func auctionPriceFromText(text string) *int64 {
	if price := scrapekit.PriceFromText(text); price != nil {
		return price
	}
	if m := yenAmountPattern.FindString(text); m != "" {
		if price := jptext.ParsePrice(m); price != nil && *price >= minAuctionPrice {
			return price
		}
	}
	return nil
}

func parseSearchPage(doc *goquery.Document, baseURL string) []domain.RawListing {
	var rows []*goquery.Selection
	for _, selector := range rowSelectors {
		doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			rows = append(rows, row)
		})
		if len(rows) > 0 {
			break
		}
	}
	if len(rows) == 0 {
		rows = scrapekit.UniqueParents(doc.Find("a[href*='pt001'], a[href*='detail']"), "tr")
	}

	var listings []domain.RawListing
	if len(rows) == 0 {
		for _, selector := range cardFallbackSelectors {
			doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
				if listing := parseResultCard(card, baseURL); listing != nil {
					listings = append(listings, *listing)
				}
			})
			if len(listings) > 0 {
				break
			}
		}
		return listings
	}

	for _, row := range rows {
		if listing := parseResultRow(row, baseURL); listing != nil {
			listings = append(listings, *listing)
		}
	}
	return listings
}

func parseResultRow(row *goquery.Selection, baseURL string) *domain.RawListing {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return nil
	}

	rowText := scrapekit.CleanText(row.Text())
	rawData := map[string]string{"row_text": rowText}

	detailURL := detailLink(row, baseURL)

	caseNumber := caseNumberPattern.FindString(rowText)
	if caseNumber != "" {
		rawData["case_number"] = caseNumber
	}

	var priceYen *int64
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := scrapekit.CleanText(cell.Text())
		if parsed := jptext.ParsePrice(text); parsed != nil && *parsed >= minAuctionPrice {
			priceYen = parsed
			rawData["price_text"] = text
			return false
		}
		return true
	})

	var address string
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := scrapekit.CleanText(cell.Text())
		if addressCellPattern.MatchString(text) && len([]rune(text)) > 4 && !strings.Contains(text, "裁判所") {
			address = text
			rawData["address_text"] = text
			return false
		}
		return true
	})

	var courtName string
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := scrapekit.CleanText(cell.Text())
		if strings.Contains(text, "裁判所") || strings.Contains(text, "地裁") || strings.Contains(text, "支部") {
			courtName = text
			rawData["court_name"] = text
			return false
		}
		return true
	})

	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if date := saleDatePattern.FindString(cell.Text()); date != "" {
			rawData["sale_date"] = date
			return false
		}
		return true
	})

	if detailURL == "" && address == "" {
		return nil
	}

	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(detailURL, caseNumber, rowText),
		URL:      detailURL,
		PriceYen: priceYen,
		RawData:  rawData,
	}

	if address != "" {
		raw.Address = &address
		if pref := jptext.ExtractPrefecture(address); pref != "" {
			raw.Prefecture = &pref
		}
		if muni := jptext.ExtractMunicipality(address); muni != "" {
			raw.Municipality = &muni
		}
	}

	title := lotTitle(courtName, caseNumber, address, rowText)
	raw.Title = &title

	return raw
}

func parseResultCard(card *goquery.Selection, baseURL string) *domain.RawListing {
	cardText := scrapekit.CleanText(card.Text())
	rawData := map[string]string{"card_text": cardText}

	detailURL := detailLink(card, baseURL)

	caseNumber := caseNumberPattern.FindString(cardText)
	if caseNumber != "" {
		rawData["case_number"] = caseNumber
	}

	var address string
	for _, text := range strings.Fields(cardText) {
		if addressCellPattern.MatchString(text) && len([]rune(text)) > 4 && !strings.Contains(text, "裁判所") {
			address = text
			break
		}
	}

	if detailURL == "" && address == "" {
		return nil
	}

	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(detailURL, caseNumber, cardText),
		URL:      detailURL,
		PriceYen: auctionPriceFromText(cardText),
		RawData:  rawData,
	}

	if address != "" {
		raw.Address = &address
		if pref := jptext.ExtractPrefecture(address); pref != "" {
			raw.Prefecture = &pref
		}
		if muni := jptext.ExtractMunicipality(address); muni != "" {
			raw.Municipality = &muni
		}
	}

	title := cardText
	if len([]rune(title)) > 120 {
		title = string([]rune(title)[:120])
	}
	raw.Title = &title

	return raw
}

func parseDetailPage(doc *goquery.Document, baseURL, pageURL string) *domain.RawListing {
	details := scrapekit.KeyValues(doc.Selection)
	pageText := scrapekit.CleanText(doc.Text())

	raw := &domain.RawListing{
		Source:   sourceName,
		SourceID: sourceID(pageURL, caseNumberPattern.FindString(pageText), pageURL),
		URL:      pageURL,
	}

	for _, key := range auctionPriceKeys {
		if value, ok := details[key]; ok {
			if price := jptext.ParsePrice(value); price != nil && *price >= minAuctionPrice {
				raw.PriceYen = price
				break
			}
		}
	}
	if raw.PriceYen == nil {
		if m := pageTextPricePattern.FindStringSubmatch(pageText); m != nil {
			raw.PriceYen = jptext.ParsePrice(m[1] + "円")
		}
	}

	scrapekit.ApplyDetails(raw, details)

	if caseNumber := caseNumberPattern.FindString(pageText); caseNumber != "" {
		raw.RawData["case_number"] = caseNumber
	}
	if court := courtName(details, pageText); court != "" {
		raw.RawData["court_name"] = court
	}

	if raw.RebuildPossible == nil {
		raw.RebuildPossible = scrapekit.RebuildStatus(pageText)
	}

	raw.ImageURLs = lotImages(doc, baseURL)
	collectPDFDocuments(doc, baseURL, raw.RawData)

	title := lotTitle(raw.RawData["court_name"], raw.RawData["case_number"], stringValue(raw.Address), pageText)
	raw.Title = &title

	return raw
}

func detailLink(s *goquery.Selection, baseURL string) string {
	link := s.Find("a[href*='pt001']").First()
	if link.Length() == 0 {
		link = s.Find("a[href*='detail']").First()
	}
	if link.Length() == 0 {
		link = s.Find("a[href]").First()
	}
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return ""
	}
	return scrapekit.AbsoluteURL(baseURL, href)
}

func courtName(details map[string]string, pageText string) string {
	if value, ok := scrapekit.FirstValue(details, "裁判所", "裁判所名", "管轄裁判所"); ok {
		return value
	}
	return courtNamePattern.FindString(pageText)
}

// lotTitle composes a human-readable lot identifier; unlike portal
// listings, auction lots have no headline of their own.
func lotTitle(court, caseNumber, address, fallback string) string {
	var parts []string
	for _, part := range []string{court, caseNumber, address} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	runes := []rune(fallback)
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}

func lotImages(doc *goquery.Document, baseURL string) []string {
	var urls []string
	seen := map[string]bool{}

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("data-src")
		if !ok || src == "" {
			src, _ = img.Attr("src")
		}
		src = strings.TrimSpace(src)
		lower := strings.ToLower(src)
		if src == "" || scrapekit.IsUIImage(src) || strings.Contains(lower, "btn") || strings.Contains(lower, "arrow") {
			return true
		}
		resolved := scrapekit.AbsoluteURL(baseURL, src)
		if seen[resolved] {
			return true
		}
		seen[resolved] = true
		urls = append(urls, resolved)
		return true
	})

	return urls
}

// collectPDFDocuments records the 3-set document links in RawData.
// The PDFs themselves are not fetched or parsed.
func collectPDFDocuments(doc *goquery.Document, baseURL string, rawData map[string]string) {
	count := 0
	doc.Find("a[href$='.pdf'], a[href*='.pdf']").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := scrapekit.AbsoluteURL(baseURL, href)
		for i := 1; i <= count; i++ {
			if rawData[fmt.Sprintf("pdf_url_%d", i)] == resolved {
				return
			}
		}
		count++
		rawData[fmt.Sprintf("pdf_url_%d", count)] = resolved
		if label := scrapekit.CleanText(link.Text()); label != "" {
			rawData[fmt.Sprintf("pdf_label_%d", count)] = label
		}
	})
}

func pdfDocumentCount(raw *domain.RawListing) int {
	count := 0
	for count < len(raw.RawData) {
		if _, ok := raw.RawData[fmt.Sprintf("pdf_url_%d", count+1)]; !ok {
			break
		}
		count++
	}
	return count
}

func sourceID(detailURL, caseNumber, fallbackText string) string {
	if detailURL != "" {
		if m := idQueryPattern.FindStringSubmatch(detailURL); m != nil {
			return m[1]
		}
		if segment := scrapekit.LastPathSegment(detailURL); segment != detailURL && segment != "" {
			return segment
		}
	}
	if caseNumber != "" {
		return strings.Join(strings.Fields(caseNumber), "")
	}

	h := fnv.New32a()
	h.Write([]byte(fallbackText))
	return fmt.Sprintf("bit-%08x", h.Sum32())
}

func hasNextPage(doc *goquery.Document) bool {
	if doc.Find("a[rel='next']").Length() > 0 {
		return true
	}

	found := false
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		switch scrapekit.CleanText(link.Text()) {
		case "次へ", "次のページ", "次ページ", ">", ">>":
			found = true
			return false
		}
		return true
	})
	return found
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
