package jptext

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	freeRe      = regexp.MustCompile(`無料|無償|0円|譲渡`)
	undecidedRe = regexp.MustCompile(`未定|要相談|応相談|お問[い合]合わせ`)
	okuRe       = regexp.MustCompile(`(\d+)\s*億(?:\s*(\d+)\s*万)?円?`)
	manRe       = regexp.MustCompile(`(\d+)\s*万\s*円?`)
	yenRe       = regexp.MustCompile(`(\d{3,})円`)
	bareYenRe   = regexp.MustCompile(`(\d{4,})`)
)

// ParsePrice parses a Japanese price string into yen.
// Returns nil when the text carries no price (empty, 未定, unparseable).
// Free/donated listings (無料, 譲渡, 0円) parse to 0.
func ParsePrice(text string) *int64 {
	if text == "" {
		return nil
	}

	t := norm.NFKC.String(text)
	t = strings.NewReplacer(",", "", " ", "", "　", "").Replace(t)
	t = strings.TrimSpace(t)

	if freeRe.MatchString(t) {
		zero := int64(0)
		return &zero
	}
	if undecidedRe.MatchString(t) {
		return nil
	}

	// 1億5000万円
	if m := okuRe.FindStringSubmatch(t); m != nil {
		total, _ := strconv.ParseInt(m[1], 10, 64)
		total *= 100_000_000
		if m[2] != "" {
			man, _ := strconv.ParseInt(m[2], 10, 64)
			total += man * 10_000
		}
		return &total
	}

	// 150万円 / 1500万
	if m := manRe.FindStringSubmatch(t); m != nil {
		man, _ := strconv.ParseInt(m[1], 10, 64)
		total := man * 10_000
		return &total
	}

	// 1500000円
	if m := yenRe.FindStringSubmatch(t); m != nil {
		total, _ := strconv.ParseInt(m[1], 10, 64)
		return &total
	}

	// Bare number that looks like yen
	if m := bareYenRe.FindStringSubmatch(t); m != nil {
		total, _ := strconv.ParseInt(m[1], 10, 64)
		return &total
	}

	return nil
}
