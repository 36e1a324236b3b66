package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Feature is one polygon record of a shapefile with its attribute row.
// Attribute names are lower-cased.
type Feature struct {
	Boundary   Polygon
	Attributes map[string]string
}

// Attr returns the trimmed value of the named attribute, or "".
func (f Feature) Attr(name string) string {
	if name == "" {
		return ""
	}
	return f.Attributes[strings.ToLower(name)]
}

// ReadPolygons reads every polygon record of the shapefile at shpPath.
// Records without a usable polygon are skipped and counted.
func ReadPolygons(shpPath string) ([]Feature, int, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var features []Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		boundary, err := PolygonFromShape(poly)
		if err != nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		features = append(features, Feature{Boundary: boundary, Attributes: attrs})
	}
	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return features, skipped, nil
}

// PolygonFromShape converts a shapefile polygon. Parts become rings in file
// order, so the first part is the outer ring.
func PolygonFromShape(p *shp.Polygon) (Polygon, error) {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return Polygon{}, eris.New("geo: empty polygon")
	}

	rings := make([][][]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(p.Points)) {
			return Polygon{}, eris.Errorf("geo: part %d has invalid bounds", i)
		}

		ring := make([][]float64, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, []float64{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}

	poly := Polygon{Type: "Polygon", Coordinates: rings}
	if err := poly.Validate(); err != nil {
		return Polygon{}, err
	}
	return poly, nil
}
