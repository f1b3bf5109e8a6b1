package geo

import (
	"bytes"
	"fmt"
	"image/png"
)

// GSI inundation legend: tile pixel colours mapped to the upper bound of
// the estimated depth band in metres.
var floodDepthLegend = []struct {
	r, g, b uint8
	depthM  float64
}{
	{247, 245, 169, 0.5},  // < 0.5 m
	{255, 216, 192, 1.0},  // 0.5 - 1.0 m
	{255, 183, 183, 3.0},  // 1.0 - 3.0 m
	{255, 145, 145, 5.0},  // 3.0 - 5.0 m
	{242, 133, 201, 10.0}, // 5.0 - 10.0 m
	{220, 122, 220, 20.0}, // > 10 m
}

// Colour distance tolerance for legend matching. Tiles are PNG-8 with
// some anti-aliasing at band borders.
const legendMatchTolerance = 40 * 40 * 3

// FloodDepthAt decodes a GSI hazard raster tile and reads the inundation
// depth at the given pixel. The second return value is false when the
// pixel is transparent or does not match any legend colour.
func FloodDepthAt(tile []byte, px, py int) (float64, bool, error) {
	img, err := png.Decode(bytes.NewReader(tile))
	if err != nil {
		return 0, false, fmt.Errorf("decoding hazard tile: %w", err)
	}

	b := img.Bounds()
	if px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
		return 0, false, fmt.Errorf("pixel (%d,%d) outside tile bounds %v", px, py, b)
	}

	r, g, bl, a := img.At(px, py).RGBA()
	if a == 0 {
		return 0, false, nil
	}
	return matchLegend(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
}

func matchLegend(r, g, b uint8) (float64, bool, error) {
	bestDist := legendMatchTolerance + 1
	depth := 0.0
	found := false

	for _, entry := range floodDepthLegend {
		dr := int(r) - int(entry.r)
		dg := int(g) - int(entry.g)
		db := int(b) - int(entry.b)
		dist := dr*dr + dg*dg + db*db
		if dist < bestDist {
			bestDist = dist
			depth = entry.depthM
			found = true
		}
	}
	return depth, found, nil
}
