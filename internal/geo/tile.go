package geo

import "math"

// TileSize is the pixel size of slippy-map raster tiles.
const TileSize = 256

// LatLngToTile converts WGS84 coordinates to slippy-map tile coordinates
// at the given zoom level.
func LatLngToTile(lat, lng float64, zoom int) (x, y int) {
	latRad := lat * math.Pi / 180
	n := float64(int(1) << uint(zoom))
	x = int((lng + 180.0) / 360.0 * n)
	y = int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)
	return x, y
}

// LatLngToTilePixel converts coordinates to the pixel position inside
// the tile that contains them.
func LatLngToTilePixel(lat, lng float64, zoom int) (tileX, tileY, px, py int) {
	latRad := lat * math.Pi / 180
	n := float64(int(1) << uint(zoom))
	fx := (lng + 180.0) / 360.0 * n
	fy := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n

	tileX = int(fx)
	tileY = int(fy)
	px = int((fx - float64(tileX)) * TileSize)
	py = int((fy - float64(tileY)) * TileSize)
	return tileX, tileY, px, py
}
