package jptext

import (
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Era start years: era year 1 = offset + 1.
var eraOffsets = []struct {
	name   string
	offset int
}{
	{"令和", 2018},
	{"平成", 1988},
	{"昭和", 1925},
	{"大正", 1911},
	{"明治", 1867},
}

var (
	westernYearRe = regexp.MustCompile(`(\d{4})年`)
	eraYearRe     = regexp.MustCompile(`(令和|平成|昭和|大正|明治)(\d+|元)年?`)
)

// ParseYear parses a construction year from Japanese date text.
// Accepts both Western ("2005年3月") and era ("平成17年") notation.
// Years outside 1868..2100 are rejected.
func ParseYear(text string) *int {
	t := norm.NFKC.String(text)

	// An out-of-range western match falls through to the era attempt.
	if m := westernYearRe.FindStringSubmatch(t); m != nil {
		y, _ := strconv.Atoi(m[1])
		if y >= 1868 && y <= 2100 {
			return &y
		}
	}

	if m := eraYearRe.FindStringSubmatch(t); m != nil {
		n := 1
		if m[2] != "元" {
			n, _ = strconv.Atoi(m[2])
		}
		for _, era := range eraOffsets {
			if era.name == m[1] {
				y := era.offset + n
				if y >= 1868 && y <= 2100 {
					return &y
				}
				return nil
			}
		}
	}

	return nil
}

// WesternToEra renders a Western year in era notation, e.g. 2024 -> "令和6年".
func WesternToEra(year int) string {
	for _, era := range eraOffsets {
		if year > era.offset {
			return fmt.Sprintf("%s%d年", era.name, year-era.offset)
		}
	}
	return fmt.Sprintf("%d年", year)
}
