package scrapekit

import (
	"regexp"

	"golang.org/x/text/unicode/norm"

	"akiya-radar/internal/jptext"
)

var embeddedPriceRe = regexp.MustCompile(`\d[\d,]*億(?:\d[\d,]*万)?円?|\d[\d,]*万円`)

// PriceFromText finds an explicit price mention (万円 or 億円 form)
// inside free text and parses it. Unlike jptext.ParsePrice it never
// treats a bare number as yen, so it is safe to run over a whole card's
// text where years and areas also appear.
func PriceFromText(text string) *int64 {
	t := norm.NFKC.String(text)
	if m := embeddedPriceRe.FindString(t); m != "" {
		return jptext.ParsePrice(m)
	}
	return nil
}

// WithinPriceRange applies a client-side price window for sources whose
// search forms cannot express one. Unknown prices and free/donated
// listings (price 0) always pass so they are never filtered out before
// a human can look at them.
func WithinPriceRange(price, min, max *int64) bool {
	if price == nil || *price == 0 {
		return true
	}
	if min != nil && *price < *min {
		return false
	}
	if max != nil && *price > *max {
		return false
	}
	return true
}
