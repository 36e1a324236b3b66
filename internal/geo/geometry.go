// Package geo holds the GeoJSON shapes stored with plantation and land records
// and converts them to and from EWKB for PostGIS.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference used for every stored geometry (WGS 84).
const SRID = 4326

// Point is a GeoJSON point with [longitude, latitude] coordinates.
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point.
func NewPoint(lng, lat float64) Point {
	return Point{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Lng returns the longitude, or 0 for an empty point.
func (p Point) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Lat returns the latitude, or 0 for an empty point.
func (p Point) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Validate checks the point has exactly two in-range coordinates.
func (p Point) Validate() error {
	if p.Type != "" && p.Type != "Point" {
		return eris.Errorf("geo: expected Point, got %q", p.Type)
	}
	if len(p.Coordinates) != 2 {
		return eris.New("geo: point must have [longitude, latitude] coordinates")
	}
	if !ValidCoordinate(p.Coordinates[0], p.Coordinates[1]) {
		return eris.Errorf("geo: coordinates out of range: [%g, %g]", p.Coordinates[0], p.Coordinates[1])
	}
	return nil
}

// ValidCoordinate reports whether lng/lat lie within WGS 84 bounds.
// NaN fails both comparisons.
func ValidCoordinate(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Polygon is a GeoJSON polygon: an outer ring followed by optional holes.
type Polygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Validate checks that every ring is closed, has at least four positions and
// that each position is an in-range [lng, lat] pair.
func (p Polygon) Validate() error {
	if p.Type != "" && p.Type != "Polygon" {
		return eris.Errorf("geo: expected Polygon, got %q", p.Type)
	}
	if len(p.Coordinates) == 0 {
		return eris.New("geo: polygon has no rings")
	}
	for i, ring := range p.Coordinates {
		if len(ring) < 4 {
			return eris.Errorf("geo: ring %d must have at least 4 points", i)
		}
		for _, pos := range ring {
			if len(pos) != 2 || !ValidCoordinate(pos[0], pos[1]) {
				return eris.Errorf("geo: ring %d has an invalid position", i)
			}
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return eris.Errorf("geo: ring %d is not closed", i)
		}
	}
	return nil
}

// EWKB encodes the polygon with SRID 4326 for ST_GeomFromEWKB.
func (p Polygon) EWKB() ([]byte, error) {
	rings := make([][]geom.Coord, len(p.Coordinates))
	for i, ring := range p.Coordinates {
		coords := make([]geom.Coord, len(ring))
		for j, pos := range ring {
			coords[j] = geom.Coord(pos)
		}
		rings[i] = coords
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return nil, eris.Wrap(err, "geo: build polygon")
	}

	data, err := ewkb.Marshal(poly.SetSRID(SRID), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode polygon EWKB")
	}
	return data, nil
}

// PolygonFromEWKB decodes a PostGIS EWKB polygon (ST_AsEWKB output).
func PolygonFromEWKB(data []byte) (Polygon, error) {
	if len(data) == 0 {
		return Polygon{}, nil
	}

	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return Polygon{}, eris.Wrap(err, "geo: decode EWKB")
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return Polygon{}, eris.Errorf("geo: expected polygon geometry, got %T", g)
	}

	out := Polygon{Type: "Polygon", Coordinates: make([][][]float64, 0, poly.NumLinearRings())}
	for _, ring := range poly.Coords() {
		r := make([][]float64, len(ring))
		for i, c := range ring {
			r[i] = []float64{c.X(), c.Y()}
		}
		out.Coordinates = append(out.Coordinates, r)
	}
	return out, nil
}
