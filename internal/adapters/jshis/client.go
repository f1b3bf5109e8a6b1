// Package jshis is the client for the J-SHIS (Japan Seismic Hazard
// Information Station) position APIs. No authentication is required.
package jshis

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"akiya-radar/internal/adapters/httpapi"
	"akiya-radar/internal/core/port"
)

const (
	defaultBaseURL = "https://www.j-shis.bosai.go.jp"

	// Data version and averaging case of the probabilistic seismic
	// hazard maps queried.
	dataVersion = "Y2024"
	hazardCase  = "AVR"
	eqType      = "TTL_MTTL"
)

// Client implements SeismicHazardPort against the J-SHIS map API.
type Client struct {
	api *httpapi.Client
}

func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	api, err := httpapi.NewClient(httpapi.Config{
		BaseURL:        baseURL,
		Timeout:        30 * time.Second,
		RateLimitDelay: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("jshis: %w", err)
	}
	return &Client{api: api}, nil
}

func positionQuery(lat, lng float64) url.Values {
	return url.Values{
		"position": {fmt.Sprintf("%f,%f", lng, lat)},
		"epsg":     {"4326"},
	}
}

func (c *Client) GetSeismicHazard(ctx context.Context, lat, lng float64) (*port.GeoFeatureCollection, error) {
	path := fmt.Sprintf("/map/api/pshm/%s/%s/%s/meshinfo.geojson", dataVersion, hazardCase, eqType)

	var fc port.GeoFeatureCollection
	if err := c.api.GetJSON(ctx, path, positionQuery(lat, lng), &fc); err != nil {
		return nil, fmt.Errorf("jshis: seismic hazard lookup failed: %w", err)
	}
	return &fc, nil
}

func (c *Client) GetLandslideRisk(ctx context.Context, lat, lng float64, radiusKm int) (*port.GeoFeatureCollection, error) {
	query := positionQuery(lat, lng)
	query.Set("radius", strconv.Itoa(radiusKm))

	var fc port.GeoFeatureCollection
	if err := c.api.GetJSON(ctx, "/map/api/landslide/meshinfo.geojson", query, &fc); err != nil {
		return nil, fmt.Errorf("jshis: landslide lookup failed: %w", err)
	}
	return &fc, nil
}

func (c *Client) GetAverageHazard(ctx context.Context, lat, lng float64) (*port.GeoFeatureCollection, error) {
	path := fmt.Sprintf("/map/api/pshm/%s/%s/%s/avghazard.geojson", dataVersion, hazardCase, eqType)

	var fc port.GeoFeatureCollection
	if err := c.api.GetJSON(ctx, path, positionQuery(lat, lng), &fc); err != nil {
		return nil, fmt.Errorf("jshis: average hazard lookup failed: %w", err)
	}
	return &fc, nil
}

var _ port.SeismicHazardPort = (*Client)(nil)
