package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/db"
	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

const blockColumns = `id, organization_type, department, ngo_name, ngo_registration_number, individual_name,
	country, state, district, block, gram_panchayat, village, event_id, campaign_id, land_ownership_id,
	contact_number, email, area_value, area_unit, number_of_trees, tree_species, plantation_date,
	ST_X(location), ST_Y(location), ST_AsEWKB(boundaries), survey_details, photos, status, verified_by,
	verification_date, verification_comments, created_by, created_at, updated_at, version`

// scanBlock reads blockColumns followed by a distance column.
func scanBlock(row scanner) (*plantation.BlockPlantation, error) {
	var b plantation.BlockPlantation
	var lng, lat float64
	var species, boundaries, survey, photos []byte
	if err := row.Scan(&b.ID, &b.OrganizationType, &b.Department, &b.NGOName, &b.NGORegistrationNumber, &b.IndividualName,
		&b.Country, &b.State, &b.District, &b.Block, &b.GramPanchayat, &b.Village, &b.EventID, &b.CampaignID, &b.LandOwnershipID,
		&b.ContactNumber, &b.Email, &b.PlantationArea.Value, &b.PlantationArea.Unit, &b.NumberOfTrees, &species, &b.PlantationDate,
		&lng, &lat, &boundaries, &survey, &photos, &b.Status, &b.VerifiedBy,
		&b.VerificationDate, &b.VerificationComments, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt, &b.Version, &b.Distance); err != nil {
		return nil, err
	}

	b.Location = geo.NewPoint(lng, lat)
	poly, err := geo.PolygonFromEWKB(boundaries)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: decode block %s boundaries", b.ID)
	}
	b.Boundaries = poly

	b.TreeSpecies = []plantation.TreeSpecies{}
	if len(species) > 0 {
		if err := json.Unmarshal(species, &b.TreeSpecies); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal tree species")
		}
	}
	if len(survey) > 0 {
		b.SurveyDetails = &plantation.SurveyDetails{}
		if err := json.Unmarshal(survey, b.SurveyDetails); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal survey details")
		}
	}
	if err := unmarshalPhotos(photos, &b.Photos); err != nil {
		return nil, err
	}
	b.ComputeSurvivalRate()
	return &b, nil
}

func getBlock(ctx context.Context, q querier, id string, forUpdate bool) (*plantation.BlockPlantation, error) {
	sql := `SELECT ` + blockColumns + `, NULL::float8 FROM block_plantations WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanBlock(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, notFound(err, "block plantation", id, "postgres: get block plantation")
	}
	return b, nil
}

// blockPayload holds the encoded non-scalar columns of a block.
type blockPayload struct {
	species    []byte
	boundaries []byte
	survey     []byte
	photos     []byte
}

func encodeBlock(b *plantation.BlockPlantation) (blockPayload, error) {
	var out blockPayload
	var err error
	if out.species, err = json.Marshal(b.TreeSpecies); err != nil {
		return out, eris.Wrap(err, "postgres: marshal tree species")
	}
	if out.boundaries, err = b.Boundaries.EWKB(); err != nil {
		return out, plantation.Validation("invalid block boundaries", map[string]any{"error": err.Error()})
	}
	if b.SurveyDetails != nil {
		if out.survey, err = json.Marshal(b.SurveyDetails); err != nil {
			return out, eris.Wrap(err, "postgres: marshal survey details")
		}
	}
	if out.photos, err = marshalPhotos(b.Photos); err != nil {
		return out, err
	}
	return out, nil
}

// checkOverlap rejects a boundary that intersects another block's boundary.
func checkOverlap(ctx context.Context, q querier, id string, boundaries []byte) error {
	var other string
	err := q.QueryRow(ctx,
		`SELECT id FROM block_plantations WHERE id <> $1 AND ST_Intersects(boundaries, ST_GeomFromEWKB($2)) LIMIT 1`,
		id, boundaries,
	).Scan(&other)
	switch {
	case err == nil:
		return &plantation.Error{
			Code:    plantation.CodeConflict,
			Message: "plantation boundary overlaps an existing block plantation",
			Details: map[string]any{"overlapsWith": other},
		}
	case eris.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return eris.Wrap(err, "postgres: check block overlap")
	}
}

func insertBlock(ctx context.Context, q querier, b *plantation.BlockPlantation, enc blockPayload) error {
	_, err := q.Exec(ctx,
		`INSERT INTO block_plantations (id, organization_type, department, ngo_name, ngo_registration_number, individual_name,
			country, state, district, block, gram_panchayat, village, event_id, campaign_id, land_ownership_id,
			contact_number, email, area_value, area_unit, number_of_trees, tree_species, plantation_date,
			location, boundaries, survey_details, photos, status, created_by, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
			ST_SetSRID(ST_MakePoint($23, $24), 4326), ST_GeomFromEWKB($25), $26, $27, $28, $29, $30, $31, $32)`,
		b.ID, b.OrganizationType, b.Department, b.NGOName, b.NGORegistrationNumber, b.IndividualName,
		b.Country, b.State, b.District, b.Block, b.GramPanchayat, b.Village, b.EventID, b.CampaignID, b.LandOwnershipID,
		b.ContactNumber, b.Email, b.PlantationArea.Value, b.PlantationArea.Unit, b.NumberOfTrees, enc.species, b.PlantationDate,
		b.Location.Lng(), b.Location.Lat(), enc.boundaries, enc.survey, enc.photos, string(b.Status), b.CreatedBy,
		b.CreatedAt, b.UpdatedAt, b.Version,
	)
	return dbError(err, "postgres: insert block plantation")
}

func updateBlock(ctx context.Context, q querier, b *plantation.BlockPlantation, enc blockPayload) error {
	_, err := q.Exec(ctx,
		`UPDATE block_plantations SET organization_type = $2, department = $3, ngo_name = $4, ngo_registration_number = $5,
			individual_name = $6, country = $7, state = $8, district = $9, block = $10, gram_panchayat = $11, village = $12,
			event_id = $13, campaign_id = $14, contact_number = $15, email = $16, area_value = $17, area_unit = $18,
			number_of_trees = $19, tree_species = $20, plantation_date = $21, location = ST_SetSRID(ST_MakePoint($22, $23), 4326),
			boundaries = ST_GeomFromEWKB($24), photos = $25, updated_at = $26, version = $27
		WHERE id = $1`,
		b.ID, b.OrganizationType, b.Department, b.NGOName, b.NGORegistrationNumber,
		b.IndividualName, b.Country, b.State, b.District, b.Block, b.GramPanchayat, b.Village,
		b.EventID, b.CampaignID, b.ContactNumber, b.Email, b.PlantationArea.Value, b.PlantationArea.Unit,
		b.NumberOfTrees, enc.species, b.PlantationDate, b.Location.Lng(), b.Location.Lat(),
		enc.boundaries, enc.photos, b.UpdatedAt, b.Version,
	)
	return dbError(err, "postgres: update block plantation")
}

// CreateBlock stores the land record and the block in one transaction after
// the boundary and overlap checks.
func (s *PostgresStore) CreateBlock(ctx context.Context, in plantation.NewBlock, userID string) (*plantation.BlockPlantation, error) {
	now := s.now()
	land := in.LandOwnership.LandOwnership(uuid.NewString(), userID, now)
	b := in.Plantation(uuid.NewString(), land.ID, userID, now)

	enc, err := encodeBlock(&b)
	if err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertLand(ctx, tx, &land); err != nil {
			return err
		}
		if err := checkCovers(ctx, tx, land.ID, b.Location); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, b.ID, enc.boundaries); err != nil {
			return err
		}
		return insertBlock(ctx, tx, &b, enc)
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, plantation.ActivityBlockCreated, userID, map[string]any{
		"plantationId":     b.ID,
		"organizationType": b.OrganizationType,
		"numberOfTrees":    b.NumberOfTrees,
	})
	return &b, nil
}

// GetBlock returns one block plantation.
func (s *PostgresStore) GetBlock(ctx context.Context, id string) (*plantation.BlockPlantation, error) {
	return getBlock(ctx, s.pool, id, false)
}

// UpdateBlock applies patch on behalf of the record's creator.
func (s *PostgresStore) UpdateBlock(ctx context.Context, id string, patch plantation.BlockPatch, userID string) (*plantation.BlockPlantation, error) {
	var out *plantation.BlockPlantation
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		b, err := getBlock(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if b.CreatedBy != userID {
			return plantation.Forbidden("only the creator can update this plantation")
		}

		now := s.now()
		if err := patch.Apply(b, now); err != nil {
			return err
		}
		enc, err := encodeBlock(b)
		if err != nil {
			return err
		}

		if land := patch.Land(); land != nil {
			if err := replaceLand(ctx, tx, b.LandOwnershipID, *land, now); err != nil {
				return err
			}
		}
		if patch.Location != nil || patch.Land() != nil {
			if err := checkCovers(ctx, tx, b.LandOwnershipID, b.Location); err != nil {
				return err
			}
		}
		if patch.Boundaries != nil {
			if err := checkOverlap(ctx, tx, b.ID, enc.boundaries); err != nil {
				return err
			}
		}
		if err := updateBlock(ctx, tx, b, enc); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, plantation.ActivityBlockUpdated, userID, map[string]any{"plantationId": out.ID})
	return out, nil
}

// DeleteBlock removes the block and its land record.
func (s *PostgresStore) DeleteBlock(ctx context.Context, id string) error {
	return deletePlantation(ctx, s.pool, "block_plantations", "block plantation", id)
}

// VerifyBlock runs a verification transition, optionally recording a survey.
func (s *PostgresStore) VerifyBlock(ctx context.Context, id string, in plantation.VerifyInput, verifier string) (*plantation.BlockPlantation, error) {
	var out *plantation.BlockPlantation
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		b, err := getBlock(ctx, tx, id, true)
		if err != nil {
			return err
		}
		verifiedAt, err := b.Verify(in, verifier, s.now())
		if err != nil {
			return err
		}

		var survey []byte
		if in.SurveyDetails != nil {
			sd := *in.SurveyDetails
			sd.LastSurveyDate = verifiedAt
			b.SurveyDetails = &sd
		}
		if b.SurveyDetails != nil {
			if survey, err = json.Marshal(b.SurveyDetails); err != nil {
				return eris.Wrap(err, "postgres: marshal survey details")
			}
		}
		b.ComputeSurvivalRate()

		_, err = tx.Exec(ctx,
			`UPDATE block_plantations SET status = $2, verified_by = $3, verification_date = $4,
				verification_comments = $5, survey_details = $6, updated_at = $7, version = $8 WHERE id = $1`,
			b.ID, string(b.Status), b.VerifiedBy, b.VerificationDate, b.VerificationComments, survey, b.UpdatedAt, b.Version,
		)
		if err != nil {
			return dbError(err, "postgres: verify block plantation")
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, plantation.ActivityBlockVerified, verifier, map[string]any{
		"plantationId": out.ID,
		"status":       out.Status,
	})
	return out, nil
}
