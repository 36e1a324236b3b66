package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

const statusBuckets = `count(*) FILTER (WHERE status = 'VERIFIED'),
	count(*) FILTER (WHERE status = 'PENDING'),
	count(*) FILTER (WHERE status = 'REJECTED')`

// treesExpr counts trees per group; an individual record is one tree.
func treesExpr(kind plantation.Kind) string {
	if kind == plantation.KindBlock {
		return "COALESCE(sum(number_of_trees), 0)"
	}
	return "count(*)"
}

// BlockOverview totals trees, area, survival and status buckets for blocks.
func (s *PostgresStore) BlockOverview(ctx context.Context, pred combined.Predicate) (combined.BlockOverview, error) {
	var o combined.BlockOverview
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(sum(number_of_trees), 0), COALESCE(sum(area_value), 0)::float8,
			COALESCE(round(avg((survey_details->>'treesSurvived')::numeric / number_of_trees * 100), 2), 0)::float8,
			`+statusBuckets+`
		FROM block_plantations`+pred.Where(),
		pred.Args...,
	).Scan(&o.TotalPlantations, &o.TotalTrees, &o.TotalArea, &o.AverageSurvivalRate,
		&o.VerifiedCount, &o.PendingCount, &o.RejectedCount)
	if err != nil {
		return combined.BlockOverview{}, eris.Wrap(err, "postgres: block overview")
	}
	return o, nil
}

// IndividualOverview counts individual records and averages their height.
func (s *PostgresStore) IndividualOverview(ctx context.Context, pred combined.Predicate) (combined.IndividualOverview, error) {
	var o combined.IndividualOverview
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(round(avg(height)::numeric, 2), 0)::float8,
			`+statusBuckets+`
		FROM individual_plantations`+pred.Where(),
		pred.Args...,
	).Scan(&o.TotalPlantations, &o.AverageHeight, &o.VerifiedCount, &o.PendingCount, &o.RejectedCount)
	if err != nil {
		return combined.IndividualOverview{}, eris.Wrap(err, "postgres: individual overview")
	}
	return o, nil
}

// StateDistribution groups matching rows by state, largest first.
func (s *PostgresStore) StateDistribution(ctx context.Context, pred combined.Predicate) ([]combined.RegionBucket, error) {
	sql := fmt.Sprintf(`SELECT state, count(*), %s FROM %s%s GROUP BY state ORDER BY count(*) DESC, state`,
		treesExpr(pred.Kind), pred.Table(), pred.Where())
	rows, err := s.pool.Query(ctx, sql, pred.Args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s state distribution", pred.Kind)
	}
	defer rows.Close()

	var out []combined.RegionBucket
	for rows.Next() {
		b := combined.RegionBucket{PlantationType: pred.Kind}
		if err := rows.Scan(&b.State, &b.Count, &b.Trees); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state bucket")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate state buckets")
}

// MonthlyTrend groups matching rows by UTC plantation year and month.
func (s *PostgresStore) MonthlyTrend(ctx context.Context, pred combined.Predicate) ([]combined.MonthBucket, error) {
	sql := fmt.Sprintf(`SELECT EXTRACT(YEAR FROM plantation_date AT TIME ZONE 'UTC')::int AS year,
			EXTRACT(MONTH FROM plantation_date AT TIME ZONE 'UTC')::int AS month, count(*), %s
		FROM %s%s GROUP BY 1, 2 ORDER BY 1, 2`,
		treesExpr(pred.Kind), pred.Table(), pred.Where())
	rows, err := s.pool.Query(ctx, sql, pred.Args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s monthly trend", pred.Kind)
	}
	defer rows.Close()

	var out []combined.MonthBucket
	for rows.Next() {
		b := combined.MonthBucket{PlantationType: pred.Kind}
		if err := rows.Scan(&b.Year, &b.Month, &b.Count, &b.Trees); err != nil {
			return nil, eris.Wrap(err, "postgres: scan month bucket")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate month buckets")
}

// SpeciesDistribution sums species quantities across matching blocks.
func (s *PostgresStore) SpeciesDistribution(ctx context.Context, pred combined.Predicate, limit int) ([]combined.SpeciesBucket, error) {
	sql := fmt.Sprintf(`SELECT sp->>'name', sum((sp->>'quantity')::int)
		FROM block_plantations CROSS JOIN LATERAL jsonb_array_elements(tree_species) sp%s
		GROUP BY 1 ORDER BY 2 DESC, 1 LIMIT $%d`,
		pred.Where(), pred.Placeholder())
	rows, err := s.pool.Query(ctx, sql, append(append([]any{}, pred.Args...), limit)...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: species distribution")
	}
	defer rows.Close()

	var out []combined.SpeciesBucket
	for rows.Next() {
		var b combined.SpeciesBucket
		if err := rows.Scan(&b.Name, &b.Quantity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan species bucket")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate species buckets")
}
