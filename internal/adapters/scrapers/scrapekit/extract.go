package scrapekit

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var trailingIDPattern = regexp.MustCompile(`/(\d+)/?(?:\?.*)?$`)

// KeyValues collects the labelled key/value pairs under s, reading
// th/td table rows first and dt/dd definition pairs second. When the
// markup carries no labelled pairs at all, loose cell texts are kept
// under positional field_N keys so the provenance record is never
// empty.
func KeyValues(s *goquery.Selection) map[string]string {
	pairs := map[string]string{}

	s.Find("tr").Each(func(_ int, row *goquery.Selection) {
		key := CleanText(row.Find("th").First().Text())
		value := CleanText(row.Find("td").First().Text())
		if key != "" && value != "" {
			pairs[key] = value
		}
	})

	s.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		key := CleanText(dt.Text())
		value := CleanText(dd.Text())
		if key != "" && value != "" {
			pairs[key] = value
		}
	})

	if len(pairs) == 0 {
		s.Find("td, dd, span, p").Each(func(i int, cell *goquery.Selection) {
			text := CleanText(cell.Text())
			if len([]rune(text)) > 1 {
				pairs[fmt.Sprintf("field_%d", i)] = text
			}
		})
	}

	return pairs
}

// FirstValue returns the value of the first key present in details,
// in the order given.
func FirstValue(details map[string]string, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := details[key]; ok && value != "" {
			return value, true
		}
	}
	return "", false
}

// FirstValueContaining returns the value of the first key that contains
// the fragment as a substring. Used for sources whose labels carry
// decorations around the core key.
func FirstValueContaining(details map[string]string, fragments ...string) (string, bool) {
	for _, fragment := range fragments {
		for key, value := range details {
			if strings.Contains(key, fragment) && value != "" {
				return value, true
			}
		}
	}
	return "", false
}

// AbsoluteURL resolves href against base. Scheme-relative references
// keep the https scheme the listing sites serve everything over.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// TrailingNumericID extracts the trailing numeric path segment of a
// listing URL, the shape most sources use for their property IDs.
func TrailingNumericID(rawURL string) string {
	if m := trailingIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// LastPathSegment returns the last non-empty path segment of the URL,
// with any query string stripped. Falls back to the raw input when the
// URL has no usable path.
func LastPathSegment(rawURL string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 && i+1 < len(trimmed) {
		return trimmed[i+1:]
	}
	return rawURL
}

// CleanText collapses runs of whitespace, including full-width spaces,
// into single spaces and trims the result.
func CleanText(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, "　", " ")), " ")
}

// FirstText returns the first non-empty cleaned text matched by the
// selectors, tried in order. minRunes filters out stray glyphs when a
// broad selector like "a" is used as a last resort.
func FirstText(s *goquery.Selection, minRunes int, selectors ...string) string {
	for _, selector := range selectors {
		text := CleanText(s.Find(selector).First().Text())
		if len([]rune(text)) >= minRunes {
			return text
		}
	}
	return ""
}

// UniqueParents maps each matched element to its closest ancestor card
// container, deduplicated by node identity. Sources without stable card
// classes are scraped by locating detail links first and walking up to
// the element that carries the rest of the listing fields.
func UniqueParents(links *goquery.Selection, ancestorSelector string) []*goquery.Selection {
	var cards []*goquery.Selection

	seen := map[*html.Node]bool{}
	links.Each(func(_ int, link *goquery.Selection) {
		card := link.Closest(ancestorSelector)
		if card.Length() == 0 {
			return
		}
		node := card.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		cards = append(cards, card)
	})
	return cards
}
