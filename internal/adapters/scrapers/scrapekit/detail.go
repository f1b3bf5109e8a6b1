package scrapekit

import (
	"regexp"
	"strconv"
	"strings"

	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/jptext"
)

// Detail-table key lists shared across the listing sites, ordered most
// specific first. Sources that use only a subset simply never match the
// extra keys.
var (
	priceKeys        = []string{"販売価格", "価格", "物件価格", "希望価格", "譲渡価格", "売却価格", "金額"}
	addressKeys      = []string{"所在地", "住所", "物件所在地", "所在"}
	landAreaKeys     = []string{"土地面積", "敷地面積", "地積", "土地"}
	buildingAreaKeys = []string{"建物面積", "延床面積", "延べ床面積", "専有面積", "床面積", "建物"}
	yearBuiltKeys    = []string{"築年月", "建築年月", "建築年", "完成時期", "築年数", "建築時期", "新築時期"}
	structureKeys    = []string{"構造", "建物構造", "構造・工法"}
	floorPlanKeys    = []string{"間取り", "間取"}
	floorCountKeys   = []string{"階建", "階数", "建物階数"}
	roadWidthKeys    = []string{"前面道路幅員", "道路幅員", "前面道路", "接道状況"}
	frontageKeys     = []string{"接道間口", "間口"}
	useZoneKeys      = []string{"用途地域"}
	coverageKeys     = []string{"建ぺい率", "建蔽率"}
	floorRatioKeys   = []string{"容積率"}
	rebuildKeys      = []string{"再建築", "建築条件", "備考", "条件", "特記事項", "物件の特徴", "その他制限事項", "補足", "その他"}
)

var floorCountPattern = regexp.MustCompile(`(\d+)\s*階`)

// ApplyDetails maps a detail-table key/value set onto the listing,
// filling only fields that are still unset so source-specific parsing
// done beforehand always wins. The details map itself becomes RawData.
func ApplyDetails(raw *domain.RawListing, details map[string]string) {
	if raw.RawData == nil {
		raw.RawData = details
	} else {
		for key, value := range details {
			if _, ok := raw.RawData[key]; !ok {
				raw.RawData[key] = value
			}
		}
	}

	if raw.PriceYen == nil {
		for _, key := range priceKeys {
			if value, ok := details[key]; ok {
				if price := jptext.ParsePrice(value); price != nil {
					raw.PriceYen = price
					break
				}
			}
		}
	}

	if raw.Address == nil {
		if value, ok := FirstValue(details, addressKeys...); ok {
			raw.Address = &value
		} else if value, ok := FirstValueContaining(details, "所在地", "住所"); ok {
			// Some pages append surrounding-area blurbs to the label.
			cleaned := strings.Split(value, "周辺情報")[0]
			cleaned = CleanText(cleaned)
			if cleaned != "" {
				raw.Address = &cleaned
			}
		}
	}

	if raw.Address != nil {
		if raw.Prefecture == nil {
			if pref := jptext.ExtractPrefecture(*raw.Address); pref != "" {
				raw.Prefecture = &pref
			}
		}
		if raw.Municipality == nil {
			if muni := jptext.ExtractMunicipality(*raw.Address); muni != "" {
				raw.Municipality = &muni
			}
		}
	}

	if raw.LandAreaSqm == nil {
		for _, key := range landAreaKeys {
			if value, ok := details[key]; ok {
				if area := jptext.ParseArea(value); area != nil {
					raw.LandAreaSqm = area
					break
				}
			}
		}
	}

	if raw.BuildingAreaSqm == nil {
		for _, key := range buildingAreaKeys {
			if value, ok := details[key]; ok {
				if area := jptext.ParseArea(value); area != nil {
					raw.BuildingAreaSqm = area
					break
				}
			}
		}
	}

	if raw.YearBuilt == nil {
		for _, key := range yearBuiltKeys {
			if value, ok := details[key]; ok {
				if year := jptext.ParseYear(value); year != nil {
					raw.YearBuilt = year
					break
				}
			}
		}
	}

	if raw.Structure == nil {
		if value, ok := FirstValue(details, structureKeys...); ok {
			raw.Structure = &value
		}
	}

	if raw.FloorPlan == nil {
		if value, ok := FirstValue(details, floorPlanKeys...); ok {
			raw.FloorPlan = &value
		}
	}

	if raw.FloorCount == nil {
		if value, ok := FirstValue(details, floorCountKeys...); ok {
			if m := floorCountPattern.FindStringSubmatch(jptext.KanjiToArabic(value)); m != nil {
				if floors, err := strconv.Atoi(m[1]); err == nil {
					raw.FloorCount = &floors
				}
			}
		}
	}

	if raw.RoadWidthM == nil {
		for _, key := range roadWidthKeys {
			if value, ok := details[key]; ok {
				if width := jptext.ParseFloat(value); width != nil {
					raw.RoadWidthM = width
					break
				}
			}
		}
	}

	if raw.RoadFrontageM == nil {
		for _, key := range frontageKeys {
			if value, ok := details[key]; ok {
				if frontage := jptext.ParseFloat(value); frontage != nil {
					raw.RoadFrontageM = frontage
					break
				}
			}
		}
	}

	if raw.ZoningUse == nil {
		if value, ok := FirstValue(details, useZoneKeys...); ok {
			raw.ZoningUse = &value
		}
	}

	if raw.BuildingCoverage == nil {
		for _, key := range coverageKeys {
			if value, ok := details[key]; ok {
				if ratio := jptext.ParseFloat(value); ratio != nil {
					raw.BuildingCoverage = ratio
					break
				}
			}
		}
	}

	if raw.FloorAreaRatio == nil {
		if value, ok := FirstValue(details, floorRatioKeys...); ok {
			raw.FloorAreaRatio = jptext.ParseFloat(value)
		}
	}

	if raw.RebuildPossible == nil {
		for _, key := range rebuildKeys {
			if value, ok := details[key]; ok {
				if status := RebuildStatus(value); status != nil {
					raw.RebuildPossible = status
					break
				}
			}
		}
	}
}

// RebuildStatus classifies remark text as rebuildable or not.
// 再建築不可 is checked first so remarks quoting both forms resolve to
// the restriction.
func RebuildStatus(text string) *bool {
	if strings.Contains(text, "再建築不可") {
		no := false
		return &no
	}
	if strings.Contains(text, "再建築可") {
		yes := true
		return &yes
	}
	return nil
}
