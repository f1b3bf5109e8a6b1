package geo

import (
	"fmt"
	"strconv"
)

// MeshBounds is the bounding box of a JIS X 0410 mesh cell, in degrees.
type MeshBounds struct {
	South float64
	North float64
	West  float64
	East  float64
}

// LatLngToMesh converts WGS84 coordinates to a JIS X 0410 mesh code.
// Level 1 (~80km) gives 4 digits, level 2 (~10km) 6 digits,
// level 3 (~1km) 8 digits, level 4 (half mesh, ~500m) 9 digits.
func LatLngToMesh(lat, lng float64, level int) string {
	latRem := lat * 60 // minutes
	p := int(latRem / 40)
	latRem -= float64(p) * 40

	u := int(lng - 100)
	lngRem := lng - 100 - float64(u)

	code := fmt.Sprintf("%02d%02d", p, u)
	if level == 1 {
		return code
	}

	q := int(latRem / 5)
	latRem -= float64(q) * 5

	v := int(lngRem * 60 / 7.5)
	lngRem -= float64(v) * 7.5 / 60

	code += fmt.Sprintf("%d%d", q, v)
	if level == 2 {
		return code
	}

	r := int(latRem * 60 / 30)
	latRemSec := latRem*60 - float64(r)*30

	w := int(lngRem * 3600 / 45)
	lngRemSec := lngRem*3600 - float64(w)*45

	code += fmt.Sprintf("%d%d", r, w)
	if level == 3 {
		return code
	}

	halfLat := 0
	if latRemSec >= 15 {
		halfLat = 1
	}
	halfLng := 0
	if lngRemSec >= 22.5 {
		halfLng = 1
	}
	code += strconv.Itoa(halfLat*2 + halfLng + 1)
	return code
}

// MeshToBounds converts a mesh code back to its bounding box.
func MeshToBounds(code string) (MeshBounds, error) {
	if len(code) < 4 {
		return MeshBounds{}, fmt.Errorf("invalid mesh code: %q", code)
	}

	p, err := strconv.Atoi(code[0:2])
	if err != nil {
		return MeshBounds{}, fmt.Errorf("invalid mesh code: %q", code)
	}
	u, err := strconv.Atoi(code[2:4])
	if err != nil {
		return MeshBounds{}, fmt.Errorf("invalid mesh code: %q", code)
	}

	b := MeshBounds{
		South: float64(p) * 40 / 60,
		West:  float64(u) + 100,
	}
	b.North = b.South + 40.0/60
	b.East = b.West + 1

	if len(code) >= 6 {
		q := int(code[4] - '0')
		v := int(code[5] - '0')
		b.South += float64(q) * 5 / 60
		b.North = b.South + 5.0/60
		b.West += float64(v) * 7.5 / 60
		b.East = b.West + 7.5/60
	}

	if len(code) >= 8 {
		r := int(code[6] - '0')
		w := int(code[7] - '0')
		b.South += float64(r) * 30 / 3600
		b.North = b.South + 30.0/3600
		b.West += float64(w) * 45 / 3600
		b.East = b.West + 45.0/3600
	}

	if len(code) >= 9 {
		half := int(code[8]-'0') - 1
		height := (b.North - b.South) / 2
		width := (b.East - b.West) / 2
		b.South += float64(half/2) * height
		b.North = b.South + height
		b.West += float64(half%2) * width
		b.East = b.West + width
	}

	return b, nil
}

// MeshCenter returns the center coordinates of a mesh cell.
func MeshCenter(code string) (lat, lng float64, err error) {
	b, err := MeshToBounds(code)
	if err != nil {
		return 0, 0, err
	}
	return (b.South + b.North) / 2, (b.West + b.East) / 2, nil
}
