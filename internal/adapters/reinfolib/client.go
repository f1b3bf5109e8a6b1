// Package reinfolib is the client for the MLIT Real Estate Information
// Library vector-tile APIs. Authentication is a static
// Ocp-Apim-Subscription-Key header; the library asks for conservative
// request rates, so the client spaces requests five seconds apart.
package reinfolib

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"akiya-radar/internal/adapters/httpapi"
	"akiya-radar/internal/core/port"
)

const defaultBaseURL = "https://www.reinfolib.mlit.go.jp"

// Vector tile endpoints used by the hazard aggregator.
const (
	endpointDisasterZones       = "XKT016"
	endpointLandslidePrevention = "XKT021"
	endpointSteepSlopes         = "XKT022"
)

// Client implements VectorOverlayPort against the reinfolib API.
type Client struct {
	api *httpapi.Client
}

func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("reinfolib: API key is required")
	}
	api, err := httpapi.NewClient(httpapi.Config{
		BaseURL:        baseURL,
		Headers:        map[string]string{"Ocp-Apim-Subscription-Key": apiKey},
		Timeout:        30 * time.Second,
		RateLimitDelay: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("reinfolib: %w", err)
	}
	return &Client{api: api}, nil
}

func (c *Client) getTile(ctx context.Context, endpoint string, z, x, y int) ([]byte, error) {
	path := fmt.Sprintf("/ex-api/external/%s/%d/%d/%d.pbf", endpoint, z, x, y)

	body, status, err := c.api.GetBytes(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("reinfolib: %s tile fetch failed: %w", endpoint, err)
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound, http.StatusNoContent:
		// No overlay data at this tile.
		return nil, nil
	default:
		return nil, fmt.Errorf("reinfolib: %s tile returned status %d", endpoint, status)
	}
}

func (c *Client) GetDisasterZoneTile(ctx context.Context, z, x, y int) ([]byte, error) {
	return c.getTile(ctx, endpointDisasterZones, z, x, y)
}

func (c *Client) GetLandslidePreventionTile(ctx context.Context, z, x, y int) ([]byte, error) {
	return c.getTile(ctx, endpointLandslidePrevention, z, x, y)
}

func (c *Client) GetSteepSlopeTile(ctx context.Context, z, x, y int) ([]byte, error) {
	return c.getTile(ctx, endpointSteepSlopes, z, x, y)
}

var _ port.VectorOverlayPort = (*Client)(nil)
