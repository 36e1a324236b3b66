package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

func columnsFor(kind plantation.Kind) string {
	if kind == plantation.KindBlock {
		return blockColumns
	}
	return individualColumns
}

func scanResult(kind plantation.Kind, row scanner) (plantation.CombinedResult, error) {
	if kind == plantation.KindBlock {
		b, err := scanBlock(row)
		if err != nil {
			return plantation.CombinedResult{}, err
		}
		return plantation.CombinedResult{Kind: kind, Block: b}, nil
	}
	p, err := scanIndividual(row)
	if err != nil {
		return plantation.CombinedResult{}, err
	}
	return plantation.CombinedResult{Kind: plantation.KindIndividual, Individual: p}, nil
}

func (s *PostgresStore) queryResults(ctx context.Context, kind plantation.Kind, sql string, args []any) ([]plantation.CombinedResult, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s plantations", kind)
	}
	defer rows.Close()

	var out []plantation.CombinedResult
	for rows.Next() {
		r, err := scanResult(kind, rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s plantation", kind)
		}
		out = append(out, r)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate %s plantations", kind)
}

// Count returns the number of rows matching pred.
func (s *PostgresStore) Count(ctx context.Context, pred combined.Predicate) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+pred.Table()+pred.Where(), pred.Args...).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count %s plantations", pred.Kind)
	}
	return n, nil
}

// Find returns one sorted page of rows matching pred.
func (s *PostgresStore) Find(ctx context.Context, pred combined.Predicate, sort combined.Sort, offset, limit int) ([]plantation.CombinedResult, error) {
	n := pred.Placeholder()
	sql := fmt.Sprintf(`SELECT %s, %s FROM %s%s%s LIMIT $%d OFFSET $%d`,
		columnsFor(pred.Kind), pred.DistanceExpr(), pred.Table(), pred.Where(), pred.OrderBy(sort), n, n+1)
	args := append(append([]any{}, pred.Args...), limit, offset)
	return s.queryResults(ctx, pred.Kind, sql, args)
}

// Keys returns the first n (id, sort key) tuples matching pred in sort order.
func (s *PostgresStore) Keys(ctx context.Context, pred combined.Predicate, sort combined.Sort, n int) ([]combined.Entry, error) {
	sql := fmt.Sprintf(`SELECT id, %s FROM %s%s%s LIMIT $%d`,
		pred.KeyExpr(sort), pred.Table(), pred.Where(), pred.OrderBy(sort), pred.Placeholder())
	args := append(append([]any{}, pred.Args...), n)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s sort keys", pred.Kind)
	}
	defer rows.Close()

	out := make([]combined.Entry, 0, n)
	for rows.Next() {
		e := combined.Entry{Kind: pred.Kind}
		if err := rows.Scan(&e.ID, sort.KeyTarget(&e)); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s sort key", pred.Kind)
		}
		out = append(out, e)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate %s sort keys", pred.Kind)
}

// FetchByIDs loads the rows with the given ids, keeping the predicate so the
// distance column resolves.
func (s *PostgresStore) FetchByIDs(ctx context.Context, pred combined.Predicate, ids []string) ([]plantation.CombinedResult, error) {
	where := pred.Where()
	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	where += fmt.Sprintf("id = ANY($%d)", pred.Placeholder())

	sql := fmt.Sprintf(`SELECT %s, %s FROM %s%s`, columnsFor(pred.Kind), pred.DistanceExpr(), pred.Table(), where)
	args := append(append([]any{}, pred.Args...), ids)
	return s.queryResults(ctx, pred.Kind, sql, args)
}
