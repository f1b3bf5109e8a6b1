// Package hazardmap fetches raster tiles from the GSI Hazard Map Portal
// (disaportaldata.gsi.go.jp). Tiles outside a layer's coverage answer 404,
// which is normal and reported as a nil tile.
package hazardmap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"akiya-radar/internal/adapters/httpapi"
	"akiya-radar/internal/core/port"
)

const defaultBaseURL = "https://disaportaldata.gsi.go.jp"

// tileLayers maps the layer name to its raster path on the portal.
var tileLayers = map[string]string{
	"flood":       "/raster/01_flood_l2_shinsuishin_data",
	"tsunami":     "/raster/04_tsunami_newlegend_data",
	"landslide":   "/raster/05_dosekiryukeikaikuiki",
	"steep_slope": "/raster/05_kyukeishachikuzure",
	"storm_surge": "/raster/03_hightide_l2_shinsuishin_data",
}

// Client implements RasterTilePort against the GSI portal.
type Client struct {
	api *httpapi.Client
}

func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	api, err := httpapi.NewClient(httpapi.Config{
		BaseURL:        baseURL,
		Timeout:        15 * time.Second,
		RateLimitDelay: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("hazardmap: %w", err)
	}
	return &Client{api: api}, nil
}

func (c *Client) GetTile(ctx context.Context, layer string, z, x, y int) ([]byte, error) {
	prefix, ok := tileLayers[layer]
	if !ok {
		return nil, fmt.Errorf("hazardmap: unknown layer %q", layer)
	}

	path := fmt.Sprintf("%s/%d/%d/%d.png", prefix, z, x, y)
	body, status, err := c.api.GetBytes(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("hazardmap: tile fetch failed: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("hazardmap: tile %s returned status %d", path, status)
	}
	return body, nil
}

var _ port.RasterTilePort = (*Client)(nil)
