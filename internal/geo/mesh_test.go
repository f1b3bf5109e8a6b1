package geo

import (
	"math"
	"testing"
)

// Tokyo Station: 35.681236, 139.767125
const (
	tokyoLat = 35.681236
	tokyoLng = 139.767125
)

func TestLatLngToMesh(t *testing.T) {
	if got := LatLngToMesh(tokyoLat, tokyoLng, 1); got != "5339" {
		t.Errorf("level 1 = %q, want 5339", got)
	}
	if got := LatLngToMesh(tokyoLat, tokyoLng, 2); got != "533946" {
		t.Errorf("level 2 = %q, want 533946", got)
	}
	if got := LatLngToMesh(tokyoLat, tokyoLng, 3); got != "53394611" {
		t.Errorf("level 3 = %q, want 53394611", got)
	}
	if got := LatLngToMesh(tokyoLat, tokyoLng, 4); len(got) != 9 {
		t.Errorf("level 4 = %q, want 9 digits", got)
	}
}

func TestMeshRoundTrip(t *testing.T) {
	code := LatLngToMesh(tokyoLat, tokyoLng, 3)
	b, err := MeshToBounds(code)
	if err != nil {
		t.Fatal(err)
	}
	if tokyoLat < b.South || tokyoLat >= b.North {
		t.Errorf("latitude %v outside mesh bounds [%v, %v)", tokyoLat, b.South, b.North)
	}
	if tokyoLng < b.West || tokyoLng >= b.East {
		t.Errorf("longitude %v outside mesh bounds [%v, %v)", tokyoLng, b.West, b.East)
	}

	// Level 3 cells are roughly 30" x 45"
	if h := b.North - b.South; math.Abs(h-30.0/3600) > 1e-9 {
		t.Errorf("cell height = %v, want 30\"", h)
	}
}

func TestMeshCenterInsideBounds(t *testing.T) {
	code := LatLngToMesh(43.068, 141.35, 3) // Sapporo
	lat, lng, err := MeshCenter(code)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := MeshToBounds(code)
	if lat <= b.South || lat >= b.North || lng <= b.West || lng >= b.East {
		t.Errorf("center (%v, %v) outside bounds %+v", lat, lng, b)
	}
}

func TestMeshToBoundsInvalid(t *testing.T) {
	if _, err := MeshToBounds("53"); err == nil {
		t.Error("expected error for short mesh code")
	}
	if _, err := MeshToBounds("xxxx"); err == nil {
		t.Error("expected error for non-numeric mesh code")
	}
}
