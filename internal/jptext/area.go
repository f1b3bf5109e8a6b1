package jptext

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 1 tsubo = 3.30579 m².
const tsuboInSqm = 3.30579

// Numbers may carry thousands separators ("1,234.5㎡"); the commas are
// captured and stripped before conversion.
var (
	areaRe  = regexp.MustCompile(`([\d,.]+)\s*(?:m[²2]|㎡|平米|平方メートル)`)
	tsuboRe = regexp.MustCompile(`([\d,.]+)\s*坪`)
	floatRe = regexp.MustCompile(`([\d,.]+)`)
)

// ParseArea parses an area string like "100.5m²", "100.5㎡" or "33坪"
// into square meters. Returns nil when no area unit is found.
func ParseArea(text string) *float64 {
	t := norm.NFKC.String(text)

	if m := areaRe.FindStringSubmatch(t); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			return &v
		}
	}
	if m := tsuboRe.FindStringSubmatch(t); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			sqm := math.Round(v*tsuboInSqm*100) / 100
			return &sqm
		}
	}
	return nil
}

// ParseFloat extracts the first decimal number from text, e.g. "4.5m" -> 4.5.
func ParseFloat(text string) *float64 {
	t := norm.NFKC.String(text)
	if m := floatRe.FindStringSubmatch(t); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			return &v
		}
	}
	return nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// SqmToTsubo converts square meters to tsubo, rounded to two decimals.
func SqmToTsubo(sqm float64) float64 {
	return math.Round(sqm/tsuboInSqm*100) / 100
}
