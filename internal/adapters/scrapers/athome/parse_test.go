package athome

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"akiya-radar/internal/core/domain"
)

const testBaseURL = "https://www.athome.co.jp"

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc
}

func TestSearchURL(t *testing.T) {
	s, err := NewScraper(testBaseURL, 0)
	if err != nil {
		t.Fatal(err)
	}

	priceMin := int64(1_000_000)
	priceMax := int64(6_000_000)
	got := s.searchURL(domain.SearchParams{
		PrefectureCode: "20",
		PriceMin:       &priceMin,
		PriceMax:       &priceMax,
	}, 2)
	want := testBaseURL + "/kodate/chuko/nagano/list/?page=2&price_to=600&price_from=100"
	if got != want {
		t.Errorf("searchURL = %q, want %q", got, want)
	}
}

func TestParseSearchPageCards(t *testing.T) {
	doc := docFromHTML(t, `
		<div class="property-card-item">
			<h3 class="property-title">長野市の中古住宅</h3>
			<a href="/kodate/6970123456/">詳細を見る</a>
			<span class="price-label">680万円</span>
			<div class="address-text">長野県長野市鶴賀1-2-3</div>
			<table>
				<tr><th>土地面積</th><td>180.45㎡</td></tr>
				<tr><th>間取り</th><td>5DK</td></tr>
			</table>
		</div>`)

	listings := parseSearchPage(doc, testBaseURL)

	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	got := listings[0]

	if got.SourceID != "6970123456" {
		t.Errorf("SourceID = %q", got.SourceID)
	}
	if got.PriceYen == nil || *got.PriceYen != 6_800_000 {
		t.Errorf("PriceYen = %v", got.PriceYen)
	}
	if got.Address == nil || *got.Address != "長野県長野市鶴賀1-2-3" {
		t.Errorf("Address = %v", got.Address)
	}
	if got.FloorPlan == nil || *got.FloorPlan != "5DK" {
		t.Errorf("FloorPlan = %v", got.FloorPlan)
	}
}

func TestParseSearchPageLinkFallback(t *testing.T) {
	doc := docFromHTML(t, `
		<ul>
			<li>
				<a href="/kodate/6970555555/">松本市 中古一戸建て 450万円</a>
				<span>長野県松本市大手2-3</span>
			</li>
		</ul>`)

	listings := parseSearchPage(doc, testBaseURL)

	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0].SourceID != "6970555555" {
		t.Errorf("SourceID = %q", listings[0].SourceID)
	}
	if listings[0].PriceYen == nil || *listings[0].PriceYen != 4_500_000 {
		t.Errorf("PriceYen = %v", listings[0].PriceYen)
	}
}

func TestParseDetailPage(t *testing.T) {
	doc := docFromHTML(t, `
		<h1 class="detail-heading">長野市鶴賀 中古一戸建て</h1>
		<table>
			<tr><th>価格</th><td>680万円</td></tr>
			<tr><th>所在地</th><td>長野県長野市鶴賀1-2-3</td></tr>
			<tr><th>建物面積</th><td>105.3㎡</td></tr>
			<tr><th>築年月</th><td>平成2年10月</td></tr>
			<tr><th>建築条件</th><td>再建築不可</td></tr>
		</table>
		<div id="map" data-lat="36.648765" data-lng="138.194321"></div>
		<div class="gallery">
			<img src="https://img.athome.co.jp/photo/10.jpg">
			<div style="background-image: url('https://img.athome.co.jp/photo/11.jpg')"></div>
		</div>`)

	got := parseDetailPage(doc, testBaseURL, testBaseURL+"/kodate/6970123456/")

	if got.SourceID != "6970123456" {
		t.Errorf("SourceID = %q", got.SourceID)
	}
	if got.PriceYen == nil || *got.PriceYen != 6_800_000 {
		t.Errorf("PriceYen = %v", got.PriceYen)
	}
	if got.YearBuilt == nil || *got.YearBuilt != 1990 {
		t.Errorf("YearBuilt = %v", got.YearBuilt)
	}
	if got.RebuildPossible == nil || *got.RebuildPossible {
		t.Errorf("RebuildPossible = %v", got.RebuildPossible)
	}
	if got.Latitude == nil || *got.Latitude != 36.648765 {
		t.Errorf("Latitude = %v", got.Latitude)
	}
	if len(got.ImageURLs) != 2 {
		t.Fatalf("ImageURLs = %v", got.ImageURLs)
	}
	if got.ImageURLs[1] != "https://img.athome.co.jp/photo/11.jpg" {
		t.Errorf("background image missing: %v", got.ImageURLs)
	}
}

func TestSourceID(t *testing.T) {
	if got := sourceID(testBaseURL + "/kodate/6970123456/"); got != "6970123456" {
		t.Errorf("sourceID = %q", got)
	}
	if got := sourceID(testBaseURL + "/kodate/chuko/nagano/"); got != "nagano" {
		t.Errorf("fallback sourceID = %q", got)
	}
}

func TestHasNextPage(t *testing.T) {
	if !hasNextPage(docFromHTML(t, `<a rel="next" href="?page=2"></a>`)) {
		t.Error("expected next via rel=next")
	}
	if !hasNextPage(docFromHTML(t, `<a href="?page=3">次へ</a>`)) {
		t.Error("expected next via 次へ")
	}
	if hasNextPage(docFromHTML(t, `<a href="?page=1">1</a>`)) {
		t.Error("expected no next page")
	}
}
