package jptext

import "testing"

func TestParseArea(t *testing.T) {
	cases := []struct {
		text string
		want float64
		none bool
	}{
		{"100.5m²", 100.5, false},
		{"100.5㎡", 100.5, false},
		{"100.5 m2", 100.5, false},
		{"85平米", 85, false},
		{"85平方メートル", 85, false},
		{"１２０㎡", 120, false},
		{"30坪", 99.17, false},
		{"1,234.5㎡", 1234.5, false},
		{"1,000m²", 1000, false},
		{"1,515坪", 5008.27, false},
		{"広い庭", 0, true},
		{"", 0, true},
	}

	for _, c := range cases {
		got := ParseArea(c.text)
		if c.none {
			if got != nil {
				t.Errorf("ParseArea(%q) = %v, want nil", c.text, *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("ParseArea(%q) = nil, want %v", c.text, c.want)
			continue
		}
		if *got != c.want {
			t.Errorf("ParseArea(%q) = %v, want %v", c.text, *got, c.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	if got := ParseFloat("約4.5m"); got == nil || *got != 4.5 {
		t.Errorf("ParseFloat(約4.5m) = %v, want 4.5", got)
	}
	if got := ParseFloat("1,234.5"); got == nil || *got != 1234.5 {
		t.Errorf("ParseFloat(1,234.5) = %v, want 1234.5", got)
	}
	if got := ParseFloat("12,345,678"); got == nil || *got != 12345678 {
		t.Errorf("ParseFloat(12,345,678) = %v, want 12345678", got)
	}
	if got := ParseFloat("不明"); got != nil {
		t.Errorf("ParseFloat(不明) = %v, want nil", *got)
	}
}

func TestSqmToTsubo(t *testing.T) {
	if got := SqmToTsubo(99.17); got < 29.9 || got > 30.1 {
		t.Errorf("SqmToTsubo(99.17) = %v, want ~30", got)
	}
}
