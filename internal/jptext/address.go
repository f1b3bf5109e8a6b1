package jptext

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var kanjiDigits = map[rune]int{
	'〇': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var kanjiMultipliers = map[rune]int{
	'十': 10, '百': 100, '千': 1000,
}

var (
	kanjiNumRe     = regexp.MustCompile(`[〇一二三四五六七八九十百千]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	chomeBanGoRe   = regexp.MustCompile(`(\d+)丁目(\d+)番地?(\d+)号?`)
	chomeBanRe     = regexp.MustCompile(`(\d+)丁目(\d+)番地?`)
	dashVariants   = strings.NewReplacer("ー", "-", "‐", "-", "−", "-", "―", "-")
	trailingNameRe = regexp.MustCompile(`\d[^\d-]`)

	prefectureRe = regexp.MustCompile(`^(北海道|青森県|岩手県|宮城県|秋田県|山形県|福島県|` +
		`茨城県|栃木県|群馬県|埼玉県|千葉県|東京都|神奈川県|` +
		`新潟県|富山県|石川県|福井県|山梨県|長野県|岐阜県|` +
		`静岡県|愛知県|三重県|滋賀県|京都府|大阪府|兵庫県|` +
		`奈良県|和歌山県|鳥取県|島根県|岡山県|広島県|山口県|` +
		`徳島県|香川県|愛媛県|高知県|福岡県|佐賀県|長崎県|` +
		`熊本県|大分県|宮崎県|鹿児島県|沖縄県)`)

	municipalityRe = regexp.MustCompile(`^(?:.+?郡)?(.+?[市区町村])`)
)

// KanjiToArabic converts kanji numerals to Arabic digits, including
// positional compounds: 二十三 -> 23, 三百五 -> 305.
func KanjiToArabic(text string) string {
	return kanjiNumRe.ReplaceAllStringFunc(text, func(s string) string {
		total := 0
		current := 0
		for _, r := range s {
			if mult, ok := kanjiMultipliers[r]; ok {
				if current == 0 {
					current = 1
				}
				total += current * mult
				current = 0
			} else if d, ok := kanjiDigits[r]; ok {
				current = d
			}
		}
		total += current
		if total > 0 {
			return strconv.Itoa(total)
		}
		return s
	})
}

// NormalizeAddress canonicalizes a Japanese address for duplicate matching.
//
// Steps: NFKC width fold, whitespace removal, kanji numerals to Arabic,
// 丁目/番地/号 collapsed to dash-separated block numbers, dash variants
// unified, and a trailing building name stripped after the last digit.
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}

	text := norm.NFKC.String(address)
	text = whitespaceRe.ReplaceAllString(text, "")
	text = KanjiToArabic(text)

	text = chomeBanGoRe.ReplaceAllString(text, "$1-$2-$3")
	text = chomeBanRe.ReplaceAllString(text, "$1-$2")
	text = dashVariants.Replace(text)

	// Building-name heuristic: if any digit is followed by something
	// other than a digit or dash, keep the address only up to the last digit.
	if trailingNameRe.MatchString(text) {
		last := -1
		for i, r := range text {
			if r >= '0' && r <= '9' {
				last = i
			}
		}
		if last >= 0 {
			text = text[:last+1]
		}
	}

	return strings.TrimSpace(text)
}

// ExtractPrefecture returns the prefecture at the start of the address, or "".
func ExtractPrefecture(address string) string {
	if m := prefectureRe.FindStringSubmatch(address); m != nil {
		return m[1]
	}
	return ""
}

// ExtractMunicipality returns the city/ward/town/village component of the
// address, skipping the prefecture and any 郡 (district) prefix. Returns ""
// when no municipality suffix can be found.
func ExtractMunicipality(address string) string {
	rest := address
	if pref := ExtractPrefecture(address); pref != "" {
		rest = address[len(pref):]
	}
	if m := municipalityRe.FindStringSubmatch(rest); m != nil {
		return m[1]
	}
	return ""
}
