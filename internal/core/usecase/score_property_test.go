package usecase

import (
	"context"
	"testing"

	"akiya-radar/internal/core/domain"

	"github.com/google/uuid"
)

func TestScoreRebuildShortCircuit(t *testing.T) {
	// Un-rebuildable is a hard zero regardless of every other attribute.
	prop := &domain.Property{
		RebuildPossible: boolPtr(false),
		RoadWidthM:      f64Ptr(6.0),
		RoadFrontageM:   f64Ptr(4.0),
		ZoningUse:       strPtr("第一種住居地域"),
	}
	if got := scoreRebuild(prop); got != 0 {
		t.Errorf("rebuild score = %v, want 0", got)
	}
}

func TestScoreRebuildTiers(t *testing.T) {
	cases := []struct {
		name string
		prop domain.Property
		want float64
	}{
		{
			name: "explicit true with good road and frontage",
			prop: domain.Property{
				RebuildPossible: boolPtr(true),
				RoadWidthM:      f64Ptr(4.5),
				RoadFrontageM:   f64Ptr(2.5),
			},
			want: 100, // 80 + 20 + 20 clamped
		},
		{
			name: "unknown everything",
			prop: domain.Property{},
			want: 30, // 50 - 10 - 10
		},
		{
			name: "marginal road",
			prop: domain.Property{
				RebuildPossible: boolPtr(true),
				RoadWidthM:      f64Ptr(3.5),
				RoadFrontageM:   f64Ptr(1.5),
			},
			want: 90, // 80 + 10 + 0
		},
		{
			name: "residential zoning bonus",
			prop: domain.Property{
				RebuildPossible: boolPtr(true),
				RoadWidthM:      f64Ptr(4.0),
				RoadFrontageM:   f64Ptr(2.0),
				ZoningUse:       strPtr("第一種低層住居専用地域"),
			},
			want: 100, // 80+20+20+5 clamped
		},
	}
	for _, c := range cases {
		if got := scoreRebuild(&c.prop); got != c.want {
			t.Errorf("%s: rebuild = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestScoreHazard(t *testing.T) {
	if got := scoreHazard(nil); got != 50 {
		t.Errorf("no assessment = %v, want neutral 50", got)
	}

	// All four sub-dimensions best-case
	best := &domain.HazardAssessment{
		FloodDepthMaxM:   f64Ptr(0),
		PGA475yr:         f64Ptr(1.0),
		LandslideRisk:    strPtr("low"),
		TsunamiDepthMaxM: f64Ptr(0),
	}
	if got := scoreHazard(best); got != 100 {
		t.Errorf("best case = %v, want 100", got)
	}

	// Everything missing inside an existing assessment: four neutral halves
	if got := scoreHazard(&domain.HazardAssessment{}); got != 50 {
		t.Errorf("empty assessment = %v, want 50", got)
	}

	// Worst case
	worst := &domain.HazardAssessment{
		FloodDepthMaxM:   f64Ptr(5.0),
		PGA475yr:         f64Ptr(3.0),
		LandslideRisk:    strPtr("very_high"),
		TsunamiDepthMaxM: f64Ptr(4.0),
	}
	if got := scoreHazard(worst); got != 5 {
		t.Errorf("worst case = %v, want 5", got)
	}

	// Unrecognized landslide label earns neutral half credit
	odd := &domain.HazardAssessment{LandslideRisk: strPtr("purple")}
	if got := scoreHazard(odd); got != 50 {
		t.Errorf("unrecognized label = %v, want 50", got)
	}
}

func TestScoreInfrastructure(t *testing.T) {
	if got := scoreInfrastructure(&domain.Property{}); got != 50 {
		t.Errorf("no coordinates = %v, want 50", got)
	}

	prop := &domain.Property{
		Latitude:  f64Ptr(35.0),
		Longitude: f64Ptr(139.0),
		ZoningUse: strPtr("商業地域"),
		FloorPlan: strPtr("4SLDK"),
	}
	// 50 + 20 commercial + 15 rooms + 5 ldk
	if got := scoreInfrastructure(prop); got != 90 {
		t.Errorf("commercial 4SLDK = %v, want 90", got)
	}

	prop2 := &domain.Property{
		Latitude:  f64Ptr(35.0),
		Longitude: f64Ptr(139.0),
		FloorPlan: strPtr("2DK"),
	}
	if got := scoreInfrastructure(prop2); got != 55 {
		t.Errorf("2DK = %v, want 55", got)
	}
}

func TestScoreValue(t *testing.T) {
	cases := []struct {
		price int64
		area  float64
		want  float64
	}{
		{500_000, 100, 90},    // 5000 yen/sqm
		{1_500_000, 100, 80},  // 15000
		{3_000_000, 100, 70},  // 30000
		{8_000_000, 100, 50},  // 80000
		{20_000_000, 100, 30}, // 200000
	}
	for _, c := range cases {
		prop := &domain.Property{PriceYen: i64Ptr(c.price), LandAreaSqm: f64Ptr(c.area)}
		if got := scoreValue(prop); got != c.want {
			t.Errorf("price %d area %v: value = %v, want %v", c.price, c.area, got, c.want)
		}
	}

	if got := scoreValue(&domain.Property{}); got != 50 {
		t.Errorf("no price/area = %v, want 50", got)
	}
	if got := scoreValue(&domain.Property{PriceYen: i64Ptr(100), LandAreaSqm: f64Ptr(0)}); got != 50 {
		t.Errorf("zero area = %v, want 50", got)
	}
}

func TestScoreCondition(t *testing.T) {
	if got := scoreCondition(&domain.Property{}, 2026); got != 40 {
		t.Errorf("unknown year = %v, want 40", got)
	}

	// Brand new wood: full remaining life
	newWood := &domain.Property{YearBuilt: intPtr(2026)}
	if got := scoreCondition(newWood, 2026); got != 100 {
		t.Errorf("new wood = %v, want 100", got)
	}

	// Wood past its useful life: land-value floor only
	oldWood := &domain.Property{YearBuilt: intPtr(1980)}
	if got := scoreCondition(oldWood, 2026); got != 30 {
		t.Errorf("expired wood = %v, want 30", got)
	}

	// RC structure lasts longer than wood at the same age
	age30RC := &domain.Property{YearBuilt: intPtr(1996), Structure: strPtr("鉄筋コンクリート造")}
	age30Wood := &domain.Property{YearBuilt: intPtr(1996)}
	if rc, wood := scoreCondition(age30RC, 2026), scoreCondition(age30Wood, 2026); rc <= wood {
		t.Errorf("RC (%v) should outscore wood (%v) at the same age", rc, wood)
	}

	// Future year built is clamped to age zero, not a negative score
	future := &domain.Property{YearBuilt: intPtr(2030)}
	if got := scoreCondition(future, 2026); got != 100 {
		t.Errorf("future year = %v, want 100", got)
	}
}

func TestStructureUsefulLife(t *testing.T) {
	cases := map[string]int{
		"木造":        22,
		"軽量鉄骨造":     27,
		"重量鉄骨造":     34,
		"鉄骨造":       34,
		"鉄筋コンクリート造": 47,
		"SRC造":      47,
		"なぞの構造":     22,
	}
	for structure, want := range cases {
		if got := structureUsefulLife(&structure); got != want {
			t.Errorf("structureUsefulLife(%q) = %d, want %d", structure, got, want)
		}
	}
	if got := structureUsefulLife(nil); got != 22 {
		t.Errorf("nil structure = %d, want 22", got)
	}
}

func TestScorePropertyComposite(t *testing.T) {
	storage := newFakePropertyStorage()
	hazards := newFakeHazardStorage()
	scores := newFakeScoreStorage()

	rebuildable := &domain.Property{
		ID:              uuid.New(),
		RebuildPossible: boolPtr(true),
		RoadWidthM:      f64Ptr(4.0),
		RoadFrontageM:   f64Ptr(2.0),
		PriceYen:        i64Ptr(2_000_000),
		LandAreaSqm:     f64Ptr(300),
		YearBuilt:       intPtr(2000),
		Status:          domain.PropertyStatusActive,
	}
	_ = storage.CreateProperty(context.Background(), rebuildable)

	blocked := &domain.Property{}
	*blocked = *rebuildable
	blocked.ID = uuid.New()
	blocked.RebuildPossible = boolPtr(false)
	_ = storage.CreateProperty(context.Background(), blocked)

	uc := NewScorePropertyUseCase(storage, hazards, scores)

	okScore, err := uc.Execute(context.Background(), rebuildable.ID)
	if err != nil {
		t.Fatal(err)
	}
	blockedScore, err := uc.Execute(context.Background(), blocked.ID)
	if err != nil {
		t.Fatal(err)
	}

	if blockedScore.RebuildScore != 0 {
		t.Errorf("blocked rebuild = %v, want 0", blockedScore.RebuildScore)
	}
	if blockedScore.CompositeScore >= okScore.CompositeScore {
		t.Errorf("blocked composite %v should be below rebuildable composite %v",
			blockedScore.CompositeScore, okScore.CompositeScore)
	}

	for _, s := range []*domain.PropertyScore{okScore, blockedScore} {
		for name, v := range map[string]float64{
			"rebuild":        s.RebuildScore,
			"hazard":         s.HazardScore,
			"infrastructure": s.InfrastructureScore,
			"demographic":    s.DemographicScore,
			"value":          s.ValueScore,
			"condition":      s.ConditionScore,
			"composite":      s.CompositeScore,
		} {
			if v < 0 || v > 100 {
				t.Errorf("%s score %v out of [0,100]", name, v)
			}
		}
	}
}

func TestScoreSameVersionUpdatesInPlace(t *testing.T) {
	storage := newFakePropertyStorage()
	hazards := newFakeHazardStorage()
	scores := newFakeScoreStorage()

	prop := &domain.Property{ID: uuid.New(), Status: domain.PropertyStatusActive}
	_ = storage.CreateProperty(context.Background(), prop)

	uc := NewScorePropertyUseCase(storage, hazards, scores)

	first, err := uc.Execute(context.Background(), prop.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Execute(context.Background(), prop.ID)
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Errorf("re-score at same version created a new row: %s vs %s", first.ID, second.ID)
	}
	if len(scores.scores) != 1 {
		t.Errorf("stored %d score rows, want 1", len(scores.scores))
	}
}
