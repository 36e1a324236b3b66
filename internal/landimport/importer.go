// Package landimport bulk-loads land ownership parcels from shapefile
// features.
package landimport

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// Creator persists one land ownership record.
type Creator interface {
	CreateLand(ctx context.Context, in plantation.LandOwnershipInput, userID string) (*plantation.LandOwnership, error)
}

// Mapping names the attribute columns holding each land field. Empty names
// are not read.
type Mapping struct {
	OwnerField  string
	TypeField   string
	AreaField   string
	UseField    string
	DefaultType string
}

// DefaultMapping matches the column names used by most cadastral exports.
func DefaultMapping() Mapping {
	return Mapping{
		OwnerField:  "OWNER",
		TypeField:   "OWN_TYPE",
		AreaField:   "AREA",
		UseField:    "LAND_USE",
		DefaultType: "OTHER",
	}
}

// Result counts the outcome of an import.
type Result struct {
	Imported int
	Invalid  int
	Failed   int
}

// Input converts a feature to a land record using m. The result is not
// validated.
func (m Mapping) Input(f geo.Feature) plantation.LandOwnershipInput {
	ownership := strings.ToUpper(f.Attr(m.TypeField))
	if ownership == "" {
		ownership = m.DefaultType
	}
	var area float64
	if raw := f.Attr(m.AreaField); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			area = v
		}
	}
	return plantation.LandOwnershipInput{
		OwnershipType: ownership,
		OwnerName:     f.Attr(m.OwnerField),
		LandArea:      area,
		LandUseType:   f.Attr(m.UseField),
		Boundaries:    f.Boundary,
	}
}

// Import creates one land record per feature, running up to concurrency
// inserts at once. Features that fail validation are counted and skipped.
// A store failure is counted and logged; cancellation of ctx aborts the
// import.
func Import(ctx context.Context, c Creator, features []geo.Feature, m Mapping, userID string, concurrency int) (Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	log := zap.L().With(zap.String("component", "landimport"))

	var imported, invalid, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range features {
		in := m.Input(f)
		if err := plantation.Validate(in); err != nil {
			invalid.Add(1)
			log.Warn("landimport: invalid parcel", zap.Int("record", i), zap.Error(err))
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := c.CreateLand(gctx, in, userID); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.Warn("landimport: create parcel",
					zap.Int("record", i),
					zap.String("owner", in.OwnerName),
					zap.Error(err),
				)
				return nil
			}
			imported.Add(1)
			return nil
		})
	}
	err := g.Wait()

	res := Result{Imported: int(imported.Load()), Invalid: int(invalid.Load()), Failed: int(failed.Load())}
	log.Info("landimport: done",
		zap.Int("imported", res.Imported),
		zap.Int("invalid", res.Invalid),
		zap.Int("failed", res.Failed),
	)
	return res, err
}
