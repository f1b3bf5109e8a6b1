package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestGetJSONDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("missing auth header, got %q", got)
		}
		if got := r.URL.Query().Get("epsg"); got != "4326" {
			t.Errorf("query not forwarded, got %q", got)
		}
		w.Write([]byte(`{"features":[{"properties":{"T30_I50_PS":0.42}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL: server.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var payload struct {
		Features []struct {
			Properties map[string]float64 `json:"properties"`
		} `json:"features"`
	}
	query := url.Values{"epsg": {"4326"}}
	if err := client.GetJSON(context.Background(), "/meshinfo.geojson", query, &payload); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(payload.Features) != 1 || payload.Features[0].Properties["T30_I50_PS"] != 0.42 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestGetBytesReturnsStatusWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, status, err := client.GetBytes(context.Background(), "/tile/16/1/1.png", nil)
	if err != nil {
		t.Fatalf("404 must not be an error: %v", err)
	}
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	body, status, err := client.GetBytes(context.Background(), "/", nil)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if status != http.StatusOK || string(body) != "ok" {
		t.Fatalf("got status %d body %q after retry", status, body)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestGetStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := client.GetBytes(ctx, "/", nil); err == nil {
		t.Fatal("expected error after context cancellation")
	}
}
