package hazardmap

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetTileFetchesLayerPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("\x89PNG"))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	tile, err := client.GetTile(context.Background(), "flood", 16, 58210, 25250)
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if gotPath != "/raster/01_flood_l2_shinsuishin_data/16/58210/25250.png" {
		t.Errorf("path = %q", gotPath)
	}
	if !bytes.HasPrefix(tile, []byte("\x89PNG")) {
		t.Errorf("tile bytes = %q", tile)
	}
}

func TestGetTileOutsideCoverageIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	tile, err := client.GetTile(context.Background(), "tsunami", 16, 1, 1)
	if err != nil {
		t.Fatalf("404 must not be an error: %v", err)
	}
	if tile != nil {
		t.Errorf("tile = %v, want nil", tile)
	}
}

func TestGetTileRejectsUnknownLayer(t *testing.T) {
	client, err := NewClient("https://example.invalid")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.GetTile(context.Background(), "volcano", 16, 1, 1); err == nil {
		t.Fatal("expected error for unknown layer")
	}
}
