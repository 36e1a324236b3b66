package combined

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// StatusCounts buckets records by verification status.
type StatusCounts struct {
	VerifiedCount int `json:"verifiedCount"`
	PendingCount  int `json:"pendingCount"`
	RejectedCount int `json:"rejectedCount"`
}

// Add returns the bucket-wise sum.
func (s StatusCounts) Add(o StatusCounts) StatusCounts {
	return StatusCounts{
		VerifiedCount: s.VerifiedCount + o.VerifiedCount,
		PendingCount:  s.PendingCount + o.PendingCount,
		RejectedCount: s.RejectedCount + o.RejectedCount,
	}
}

// Set records n in the bucket for status. Unknown statuses are ignored.
func (s *StatusCounts) Set(status plantation.Status, n int) {
	switch status {
	case plantation.StatusVerified:
		s.VerifiedCount = n
	case plantation.StatusPending:
		s.PendingCount = n
	case plantation.StatusRejected:
		s.RejectedCount = n
	}
}

// BlockOverview summarizes matching block plantations.
type BlockOverview struct {
	TotalPlantations    int     `json:"totalPlantations"`
	TotalTrees          int     `json:"totalTrees"`
	TotalArea           float64 `json:"totalArea"`
	AverageSurvivalRate float64 `json:"averageSurvivalRate"`
	StatusCounts
}

// IndividualOverview summarizes matching individual plantations.
type IndividualOverview struct {
	TotalPlantations int     `json:"totalPlantations"`
	AverageHeight    float64 `json:"averageHeight"`
	StatusCounts
}

// RegionBucket is one row of the per-state distribution.
type RegionBucket struct {
	State          string          `json:"state"`
	Count          int             `json:"count"`
	Trees          int             `json:"trees"`
	PlantationType plantation.Kind `json:"plantationType"`
}

// MonthBucket is one row of the monthly trend.
type MonthBucket struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	Count          int             `json:"count"`
	Trees          int             `json:"trees"`
	PlantationType plantation.Kind `json:"plantationType"`
}

// SpeciesBucket is one row of the block species distribution.
type SpeciesBucket struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Summary is the cross-kind rollup. AverageHeight comes from individual
// records and TotalArea from blocks; neither is combined across kinds.
type Summary struct {
	TotalPlantations      int     `json:"totalPlantations"`
	TotalTrees            int     `json:"totalTrees"`
	BlockPlantations      int     `json:"blockPlantations"`
	IndividualPlantations int     `json:"individualPlantations"`
	TotalArea             float64 `json:"totalArea"`
	AverageHeight         float64 `json:"averageHeight"`
	StatusCounts
}

// Dashboard is the combined statistics report.
type Dashboard struct {
	Summary              Summary            `json:"summary"`
	BlockStatistics      BlockOverview      `json:"blockStatistics"`
	IndividualStatistics IndividualOverview `json:"individualStatistics"`
	LocationDistribution []RegionBucket     `json:"locationDistribution"`
	MonthlyTrend         []MonthBucket      `json:"monthlyTrend"`
}

// BlockReport is the block-only statistics report.
type BlockReport struct {
	Overview            BlockOverview   `json:"overview"`
	SpeciesDistribution []SpeciesBucket `json:"speciesDistribution"`
}

// TopSpecies bounds the block species distribution.
const TopSpecies = 10

// Aggregates runs the per-kind rollups. Region and month queries are scoped
// to the kind of pred.
type Aggregates interface {
	BlockOverview(ctx context.Context, pred Predicate) (BlockOverview, error)
	IndividualOverview(ctx context.Context, pred Predicate) (IndividualOverview, error)
	StateDistribution(ctx context.Context, pred Predicate) ([]RegionBucket, error)
	MonthlyTrend(ctx context.Context, pred Predicate) ([]MonthBucket, error)
	SpeciesDistribution(ctx context.Context, pred Predicate, limit int) ([]SpeciesBucket, error)
}

// Aggregator builds statistics reports from Aggregates.
type Aggregator struct {
	src Aggregates
}

// NewAggregator returns an aggregator reading from src.
func NewAggregator(src Aggregates) *Aggregator {
	return &Aggregator{src: src}
}

// Dashboard runs every rollup for the kinds in q concurrently. Any failure
// fails the whole report; an excluded kind contributes zeros.
func (a *Aggregator) Dashboard(ctx context.Context, q Query) (Dashboard, error) {
	var (
		block      BlockOverview
		individual IndividualOverview
	)
	preds := Predicates(q)
	regionRows := make([][]RegionBucket, len(preds))
	monthRows := make([][]MonthBucket, len(preds))

	g, gctx := errgroup.WithContext(ctx)
	for i, pred := range preds {
		switch pred.Kind {
		case plantation.KindBlock:
			g.Go(func() error {
				o, err := a.src.BlockOverview(gctx, pred)
				if err != nil {
					return eris.Wrap(err, "combined: block overview")
				}
				block = o
				return nil
			})
		case plantation.KindIndividual:
			g.Go(func() error {
				o, err := a.src.IndividualOverview(gctx, pred)
				if err != nil {
					return eris.Wrap(err, "combined: individual overview")
				}
				individual = o
				return nil
			})
		}
		g.Go(func() error {
			rows, err := a.src.StateDistribution(gctx, pred)
			if err != nil {
				return eris.Wrapf(err, "combined: %s state distribution", pred.Kind)
			}
			regionRows[i] = tagRegions(rows, pred.Kind)
			return nil
		})
		g.Go(func() error {
			rows, err := a.src.MonthlyTrend(gctx, pred)
			if err != nil {
				return eris.Wrapf(err, "combined: %s monthly trend", pred.Kind)
			}
			monthRows[i] = tagMonths(rows, pred.Kind)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Summary:              Summarize(block, individual),
		BlockStatistics:      block,
		IndividualStatistics: individual,
		LocationDistribution: make([]RegionBucket, 0),
		MonthlyTrend:         make([]MonthBucket, 0),
	}
	// predicates are ordered block first
	for i := range preds {
		d.LocationDistribution = append(d.LocationDistribution, regionRows[i]...)
		d.MonthlyTrend = append(d.MonthlyTrend, monthRows[i]...)
	}
	return d, nil
}

// Summarize combines the per-kind overviews. Each individual record counts
// as one tree.
func Summarize(block BlockOverview, individual IndividualOverview) Summary {
	return Summary{
		TotalPlantations:      block.TotalPlantations + individual.TotalPlantations,
		TotalTrees:            block.TotalTrees + individual.TotalPlantations,
		BlockPlantations:      block.TotalPlantations,
		IndividualPlantations: individual.TotalPlantations,
		TotalArea:             block.TotalArea,
		AverageHeight:         individual.AverageHeight,
		StatusCounts:          block.StatusCounts.Add(individual.StatusCounts),
	}
}

// BlockStatistics returns the block overview and its top species for q.
func (a *Aggregator) BlockStatistics(ctx context.Context, q Query) (BlockReport, error) {
	pred := Translate(q, plantation.KindBlock)

	var report BlockReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := a.src.BlockOverview(gctx, pred)
		if err != nil {
			return eris.Wrap(err, "combined: block overview")
		}
		report.Overview = o
		return nil
	})
	g.Go(func() error {
		rows, err := a.src.SpeciesDistribution(gctx, pred, TopSpecies)
		if err != nil {
			return eris.Wrap(err, "combined: species distribution")
		}
		report.SpeciesDistribution = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return BlockReport{}, err
	}
	if report.SpeciesDistribution == nil {
		report.SpeciesDistribution = []SpeciesBucket{}
	}
	return report, nil
}

func tagRegions(rows []RegionBucket, k plantation.Kind) []RegionBucket {
	for i := range rows {
		rows[i].PlantationType = k
		if k == plantation.KindIndividual {
			rows[i].Trees = rows[i].Count
		}
	}
	return rows
}

func tagMonths(rows []MonthBucket, k plantation.Kind) []MonthBucket {
	for i := range rows {
		rows[i].PlantationType = k
		if k == plantation.KindIndividual {
			rows[i].Trees = rows[i].Count
		}
	}
	return rows
}
