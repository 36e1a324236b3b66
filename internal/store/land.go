package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/db"
	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

const landColumns = `id, ownership_type, owner_name, land_area, land_use_type, ST_AsEWKB(boundaries),
	created_by, created_at, updated_at`

func scanLand(row scanner) (*plantation.LandOwnership, error) {
	var l plantation.LandOwnership
	var boundaries []byte
	if err := row.Scan(&l.ID, &l.OwnershipType, &l.OwnerName, &l.LandArea, &l.LandUseType, &boundaries,
		&l.CreatedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	poly, err := geo.PolygonFromEWKB(boundaries)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: decode land %s boundaries", l.ID)
	}
	l.Boundaries = poly
	return &l, nil
}

func insertLand(ctx context.Context, q querier, l *plantation.LandOwnership) error {
	boundaries, err := l.Boundaries.EWKB()
	if err != nil {
		return plantation.Validation("invalid land boundaries", map[string]any{"error": err.Error()})
	}
	_, err = q.Exec(ctx,
		`INSERT INTO land_ownerships (id, ownership_type, owner_name, land_area, land_use_type, boundaries, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6), $7, $8, $9)`,
		l.ID, l.OwnershipType, l.OwnerName, l.LandArea, l.LandUseType, boundaries, l.CreatedBy, l.CreatedAt, l.UpdatedAt,
	)
	return dbError(err, "postgres: insert land ownership")
}

func updateLand(ctx context.Context, q querier, l *plantation.LandOwnership) error {
	boundaries, err := l.Boundaries.EWKB()
	if err != nil {
		return plantation.Validation("invalid land boundaries", map[string]any{"error": err.Error()})
	}
	tag, err := q.Exec(ctx,
		`UPDATE land_ownerships SET ownership_type = $2, owner_name = $3, land_area = $4, land_use_type = $5,
		boundaries = ST_GeomFromEWKB($6), updated_at = $7 WHERE id = $1`,
		l.ID, l.OwnershipType, l.OwnerName, l.LandArea, l.LandUseType, boundaries, l.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "postgres: update land ownership")
	}
	if tag.RowsAffected() == 0 {
		return plantation.NotFound("land ownership", l.ID)
	}
	return nil
}

func getLand(ctx context.Context, q querier, id string, forUpdate bool) (*plantation.LandOwnership, error) {
	sql := `SELECT ` + landColumns + ` FROM land_ownerships WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	l, err := scanLand(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, notFound(err, "land ownership", id, "postgres: get land ownership")
	}
	return l, nil
}

// checkCovers fails with a geospatial error when the point lies outside the
// boundary of land record landID.
func checkCovers(ctx context.Context, q querier, landID string, p geo.Point) error {
	var covered bool
	err := q.QueryRow(ctx,
		`SELECT ST_Covers(boundaries, ST_SetSRID(ST_MakePoint($2, $3), 4326)) FROM land_ownerships WHERE id = $1`,
		landID, p.Lng(), p.Lat(),
	).Scan(&covered)
	if err != nil {
		return notFound(err, "land ownership", landID, "postgres: check land boundary")
	}
	if !covered {
		return plantation.Geospatial("plantation location must lie within the land ownership boundary")
	}
	return nil
}

// CreateLand stores a standalone land ownership record.
func (s *PostgresStore) CreateLand(ctx context.Context, in plantation.LandOwnershipInput, userID string) (*plantation.LandOwnership, error) {
	l := in.LandOwnership(uuid.NewString(), userID, s.now())
	if err := insertLand(ctx, s.pool, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLand returns one land ownership record.
func (s *PostgresStore) GetLand(ctx context.Context, id string) (*plantation.LandOwnership, error) {
	return getLand(ctx, s.pool, id, false)
}

// ListLand returns a page of land records and the total match count.
func (s *PostgresStore) ListLand(ctx context.Context, f LandFilter) ([]plantation.LandOwnership, int, error) {
	var conds []string
	var args []any
	add := func(format string, vals ...any) {
		pos := make([]any, len(vals))
		for i := range vals {
			pos[i] = len(args) + i + 1
		}
		conds = append(conds, fmt.Sprintf(format, pos...))
		args = append(args, vals...)
	}
	if f.Contains != nil {
		add("ST_Covers(boundaries, ST_SetSRID(ST_MakePoint($%d, $%d), 4326))", f.Contains.Lng, f.Contains.Lat)
	}
	if f.OwnershipType != "" {
		add("ownership_type = $%d", f.OwnershipType)
	}
	if f.LandUseType != "" {
		add("land_use_type = $%d", f.LandUseType)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM land_ownerships`+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "postgres: count land ownerships")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	sql := fmt.Sprintf(`SELECT %s FROM land_ownerships%s ORDER BY created_at DESC, id COLLATE "C" DESC LIMIT $%d OFFSET $%d`,
		landColumns, where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, sql, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list land ownerships")
	}
	defer rows.Close()

	out := []plantation.LandOwnership{}
	for rows.Next() {
		l, err := scanLand(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "postgres: scan land ownership")
		}
		out = append(out, *l)
	}
	return out, total, eris.Wrap(rows.Err(), "postgres: list land ownerships iterate")
}

// UpdateLand applies patch to a land record. Plantations on the parcel must
// still lie inside a changed boundary.
func (s *PostgresStore) UpdateLand(ctx context.Context, id string, patch plantation.LandOwnershipPatch) (*plantation.LandOwnership, error) {
	var out *plantation.LandOwnership
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		l, err := getLand(ctx, tx, id, true)
		if err != nil {
			return err
		}
		patch.Apply(l)
		l.UpdatedAt = s.now()
		if err := updateLand(ctx, tx, l); err != nil {
			return err
		}
		if patch.Boundaries != nil {
			if err := checkParcelPlantations(ctx, tx, id); err != nil {
				return err
			}
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkParcelPlantations(ctx context.Context, q querier, landID string) error {
	var outside int
	err := q.QueryRow(ctx,
		`SELECT count(*) FROM (
			SELECT location FROM individual_plantations WHERE land_ownership_id = $1
			UNION ALL
			SELECT location FROM block_plantations WHERE land_ownership_id = $1
		) p JOIN land_ownerships l ON l.id = $1 WHERE NOT ST_Covers(l.boundaries, p.location)`,
		landID,
	).Scan(&outside)
	if err != nil {
		return eris.Wrap(err, "postgres: check parcel plantations")
	}
	if outside > 0 {
		return plantation.Geospatial("new boundary excludes plantations recorded on this land")
	}
	return nil
}

// DeleteLand removes a land record that no plantation references.
func (s *PostgresStore) DeleteLand(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM land_ownerships WHERE id = $1`, id)
	if err != nil {
		return dbError(err, "postgres: delete land ownership")
	}
	if tag.RowsAffected() == 0 {
		return plantation.NotFound("land ownership", id)
	}
	return nil
}
