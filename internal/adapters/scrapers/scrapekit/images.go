package scrapekit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// uiImageFragments mark icons, logos and placeholder graphics that must
// never be stored as listing photos.
var uiImageFragments = []string{"icon", "logo", "spacer", "blank", "noimage"}

// IsUIImage reports whether the URL points at site chrome rather than a
// property photo.
func IsUIImage(src string) bool {
	lower := strings.ToLower(src)
	for _, fragment := range uiImageFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// CollectImages gathers photo URLs from the img elements matched by
// selector, preferring lazy-load data-src over src, resolving relative
// references against base and deduplicating while preserving order.
// limit caps the result; zero means no cap.
func CollectImages(s *goquery.Selection, selector, base string, limit int) []string {
	var urls []string
	seen := map[string]bool{}

	s.Find(selector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("data-src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = img.Attr("src")
		}
		src = strings.TrimSpace(src)
		if src == "" || IsUIImage(src) {
			return true
		}

		resolved := AbsoluteURL(base, src)
		if resolved == "" || seen[resolved] {
			return true
		}
		seen[resolved] = true
		urls = append(urls, resolved)

		return limit == 0 || len(urls) < limit
	})

	return urls
}
