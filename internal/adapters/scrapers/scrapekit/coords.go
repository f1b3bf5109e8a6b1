package scrapekit

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

var (
	scriptLatPattern = regexp.MustCompile(`lat(?:itude)?["':\s]+(-?\d+\.\d+)`)
	scriptLngPattern = regexp.MustCompile(`(?:lng|lon(?:gitude)?)["':\s]+(-?\d+\.\d+)`)
	mapsQueryPattern = regexp.MustCompile(`q=(-?\d+\.\d+),(-?\d+\.\d+)`)
)

// ExtractCoordinates harvests a latitude/longitude pair from the page.
// Inline map-initialisation scripts are checked first, then embedded
// Google Maps iframes with a q=lat,lng query, then data attributes on
// map containers. Returns nils when nothing plausible is found.
func ExtractCoordinates(doc *goquery.Document) (*float64, *float64) {
	var lat, lng *float64

	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		latMatch := scriptLatPattern.FindStringSubmatch(text)
		lngMatch := scriptLngPattern.FindStringSubmatch(text)
		if latMatch == nil || lngMatch == nil {
			return true
		}
		lat = parseCoord(latMatch[1], -90, 90)
		lng = parseCoord(lngMatch[1], -180, 180)
		return !(lat != nil && lng != nil)
	})
	if lat != nil && lng != nil {
		return lat, lng
	}

	doc.Find("iframe[src*='maps']").EachWithBreak(func(_ int, frame *goquery.Selection) bool {
		src, _ := frame.Attr("src")
		m := mapsQueryPattern.FindStringSubmatch(src)
		if m == nil {
			return true
		}
		lat = parseCoord(m[1], -90, 90)
		lng = parseCoord(m[2], -180, 180)
		return !(lat != nil && lng != nil)
	})
	if lat != nil && lng != nil {
		return lat, lng
	}

	mapEl := doc.Find("[data-lat][data-lng], [data-latitude][data-longitude]").First()
	if mapEl.Length() > 0 {
		latAttr := firstAttr(mapEl, "data-lat", "data-latitude")
		lngAttr := firstAttr(mapEl, "data-lng", "data-longitude")
		lat = parseCoord(latAttr, -90, 90)
		lng = parseCoord(lngAttr, -180, 180)
		if lat != nil && lng != nil {
			return lat, lng
		}
	}

	return nil, nil
}

func parseCoord(text string, min, max float64) *float64 {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || value < min || value > max || value == 0 {
		return nil
	}
	return &value
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if value, ok := s.Attr(name); ok && value != "" {
			return value
		}
	}
	return ""
}
