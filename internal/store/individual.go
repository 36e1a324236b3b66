package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/db"
	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

const individualColumns = `id, tree_type, height, country, state, district, block, gram_panchayat, village,
	event_id, campaign_id, land_ownership_id, ST_X(location), ST_Y(location), plantation_date,
	contact_number, email, photos, status, verified_by, verification_date, verification_comments,
	created_by, created_at, updated_at, version`

// scanIndividual reads individualColumns followed by a distance column.
func scanIndividual(row scanner) (*plantation.IndividualPlantation, error) {
	var p plantation.IndividualPlantation
	var lng, lat float64
	var photos []byte
	if err := row.Scan(&p.ID, &p.TreeType, &p.Height,
		&p.Country, &p.State, &p.District, &p.Block, &p.GramPanchayat, &p.Village,
		&p.EventID, &p.CampaignID, &p.LandOwnershipID, &lng, &lat, &p.PlantationDate,
		&p.ContactNumber, &p.Email, &photos, &p.Status, &p.VerifiedBy, &p.VerificationDate, &p.VerificationComments,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.Version, &p.Distance); err != nil {
		return nil, err
	}
	p.Location = geo.NewPoint(lng, lat)
	if err := unmarshalPhotos(photos, &p.Photos); err != nil {
		return nil, err
	}
	return &p, nil
}

func getIndividual(ctx context.Context, q querier, id string, forUpdate bool) (*plantation.IndividualPlantation, error) {
	sql := `SELECT ` + individualColumns + `, NULL::float8 FROM individual_plantations WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	p, err := scanIndividual(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, notFound(err, "individual plantation", id, "postgres: get individual plantation")
	}
	return p, nil
}

func insertIndividual(ctx context.Context, q querier, p *plantation.IndividualPlantation) error {
	photos, err := marshalPhotos(p.Photos)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`INSERT INTO individual_plantations (id, tree_type, height, country, state, district, block, gram_panchayat, village,
			event_id, campaign_id, land_ownership_id, location, plantation_date, contact_number, email, photos, status,
			created_by, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, ST_SetSRID(ST_MakePoint($13, $14), 4326),
			$15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		p.ID, p.TreeType, p.Height, p.Country, p.State, p.District, p.Block, p.GramPanchayat, p.Village,
		p.EventID, p.CampaignID, p.LandOwnershipID, p.Location.Lng(), p.Location.Lat(), p.PlantationDate,
		p.ContactNumber, p.Email, photos, string(p.Status), p.CreatedBy, p.CreatedAt, p.UpdatedAt, p.Version,
	)
	return dbError(err, "postgres: insert individual plantation")
}

func updateIndividual(ctx context.Context, q querier, p *plantation.IndividualPlantation) error {
	photos, err := marshalPhotos(p.Photos)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`UPDATE individual_plantations SET tree_type = $2, height = $3, country = $4, state = $5, district = $6,
			block = $7, gram_panchayat = $8, village = $9, event_id = $10, campaign_id = $11,
			location = ST_SetSRID(ST_MakePoint($12, $13), 4326), plantation_date = $14, contact_number = $15,
			email = $16, photos = $17, updated_at = $18, version = $19
		WHERE id = $1`,
		p.ID, p.TreeType, p.Height, p.Country, p.State, p.District, p.Block, p.GramPanchayat, p.Village,
		p.EventID, p.CampaignID, p.Location.Lng(), p.Location.Lat(), p.PlantationDate, p.ContactNumber,
		p.Email, photos, p.UpdatedAt, p.Version,
	)
	return dbError(err, "postgres: update individual plantation")
}

// CreateIndividual stores the land record and the plantation in one
// transaction after checking the point lies on the land.
func (s *PostgresStore) CreateIndividual(ctx context.Context, in plantation.NewIndividual, userID string) (*plantation.IndividualPlantation, error) {
	now := s.now()
	land := in.LandOwnership.LandOwnership(uuid.NewString(), userID, now)
	p := in.Plantation(uuid.NewString(), land.ID, userID, now)

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertLand(ctx, tx, &land); err != nil {
			return err
		}
		if err := checkCovers(ctx, tx, land.ID, p.Location); err != nil {
			return err
		}
		return insertIndividual(ctx, tx, &p)
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, plantation.ActivityIndividualCreated, userID, map[string]any{
		"plantationId": p.ID,
		"treeType":     p.TreeType,
	})
	return &p, nil
}

// GetIndividual returns one individual plantation.
func (s *PostgresStore) GetIndividual(ctx context.Context, id string) (*plantation.IndividualPlantation, error) {
	return getIndividual(ctx, s.pool, id, false)
}

// UpdateIndividual applies patch on behalf of the record's creator.
func (s *PostgresStore) UpdateIndividual(ctx context.Context, id string, patch plantation.IndividualPatch, userID string) (*plantation.IndividualPlantation, error) {
	var out *plantation.IndividualPlantation
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := getIndividual(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if p.CreatedBy != userID {
			return plantation.Forbidden("only the creator can update this plantation")
		}

		now := s.now()
		patch.Apply(p, now)
		if land := patch.Land(); land != nil {
			if err := replaceLand(ctx, tx, p.LandOwnershipID, *land, now); err != nil {
				return err
			}
		}
		if patch.Location != nil || patch.Land() != nil {
			if err := checkCovers(ctx, tx, p.LandOwnershipID, p.Location); err != nil {
				return err
			}
		}
		if err := updateIndividual(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteIndividual removes the plantation and its land record.
func (s *PostgresStore) DeleteIndividual(ctx context.Context, id string) error {
	return deletePlantation(ctx, s.pool, "individual_plantations", "individual plantation", id)
}

// VerifyIndividual runs a verification transition.
func (s *PostgresStore) VerifyIndividual(ctx context.Context, id string, in plantation.VerifyInput, verifier string) (*plantation.IndividualPlantation, error) {
	var out *plantation.IndividualPlantation
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := getIndividual(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if _, err := p.Verify(in, verifier, s.now()); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE individual_plantations SET status = $2, verified_by = $3, verification_date = $4,
				verification_comments = $5, updated_at = $6, version = $7 WHERE id = $1`,
			p.ID, string(p.Status), p.VerifiedBy, p.VerificationDate, p.VerificationComments, p.UpdatedAt, p.Version,
		)
		if err != nil {
			return dbError(err, "postgres: verify individual plantation")
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, plantation.ActivityIndividualVerified, verifier, map[string]any{
		"plantationId": out.ID,
		"status":       out.Status,
	})
	return out, nil
}

func replaceLand(ctx context.Context, q querier, landID string, in plantation.LandOwnershipInput, now time.Time) error {
	current, err := getLand(ctx, q, landID, true)
	if err != nil {
		return err
	}
	l := in.LandOwnership(landID, current.CreatedBy, current.CreatedAt)
	l.UpdatedAt = now
	return updateLand(ctx, q, &l)
}

// deletePlantation removes a plantation row and then its land record.
func deletePlantation(ctx context.Context, pool db.Pool, table, what, id string) error {
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var landID string
		err := tx.QueryRow(ctx, `DELETE FROM `+table+` WHERE id = $1 RETURNING land_ownership_id`, id).Scan(&landID)
		if err != nil {
			return notFound(err, what, id, "postgres: delete "+what)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM land_ownerships WHERE id = $1`, landID); err != nil {
			return dbError(err, "postgres: delete land ownership")
		}
		return nil
	})
}

func marshalPhotos(photos []plantation.Photo) ([]byte, error) {
	if photos == nil {
		photos = []plantation.Photo{}
	}
	data, err := json.Marshal(photos)
	return data, eris.Wrap(err, "postgres: marshal photos")
}

func unmarshalPhotos(data []byte, dst *[]plantation.Photo) error {
	*dst = []plantation.Photo{}
	if len(data) == 0 {
		return nil
	}
	return eris.Wrap(json.Unmarshal(data, dst), "postgres: unmarshal photos")
}
