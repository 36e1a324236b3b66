package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := NewWithPool(mock, nil)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func square() geo.Polygon {
	return geo.Polygon{Type: "Polygon", Coordinates: [][][]float64{{
		{77, 28}, {77.01, 28}, {77.01, 28.01}, {77, 28.01}, {77, 28},
	}}}
}

var individualCols = []string{
	"id", "tree_type", "height", "country", "state", "district", "block", "gram_panchayat", "village",
	"event_id", "campaign_id", "land_ownership_id", "lng", "lat", "plantation_date",
	"contact_number", "email", "photos", "status", "verified_by", "verification_date", "verification_comments",
	"created_by", "created_at", "updated_at", "version", "distance",
}

func individualRows(id, createdBy string, status plantation.Status, version int) *pgxmock.Rows {
	return pgxmock.NewRows(individualCols).AddRow(
		id, "Neem", 1.5, "India", "State 1", "District 1", "", "", "",
		"", "", "land-1", 77.005, 28.005, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		"9876543210", "planter@example.org", []byte(`[]`), status, "", (*time.Time)(nil), "",
		createdBy, fixedNow, fixedNow, version, (*float64)(nil),
	)
}

var blockCols = []string{
	"id", "organization_type", "department", "ngo_name", "ngo_registration_number", "individual_name",
	"country", "state", "district", "block", "gram_panchayat", "village", "event_id", "campaign_id", "land_ownership_id",
	"contact_number", "email", "area_value", "area_unit", "number_of_trees", "tree_species", "plantation_date",
	"lng", "lat", "boundaries", "survey_details", "photos", "status", "verified_by",
	"verification_date", "verification_comments", "created_by", "created_at", "updated_at", "version", "distance",
}

func blockRows(t *testing.T, id string, survey []byte) *pgxmock.Rows {
	t.Helper()
	ewkb, err := square().EWKB()
	require.NoError(t, err)
	return pgxmock.NewRows(blockCols).AddRow(
		id, "NGO", "", "Green Earth", "NGO-42", "",
		"India", "State 1", "District 1", "", "", "", "", "", "land-2",
		"9876543210", "ngo@example.org", 1.2, "HECTARES", 50, []byte(`[{"name":"Neem","quantity":50}]`),
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		77.005, 28.005, ewkb, survey, []byte(`[]`), plantation.StatusVerified, "",
		(*time.Time)(nil), "", "u1", fixedNow, fixedNow, 2, (*float64)(nil),
	)
}

func newIndividualInput() plantation.NewIndividual {
	var in plantation.NewIndividual
	in.State = "State 1"
	in.District = "District 1"
	in.Location = geo.NewPoint(77.005, 28.005)
	in.PlantationDate = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	in.ContactNumber = "9876543210"
	in.Email = "planter@example.org"
	in.LandOwnership = plantation.LandOwnershipInput{
		OwnershipType: "PRIVATE", OwnerName: "R. Sharma", LandArea: 2.5, Boundaries: square(),
	}
	in.TreeType = "Neem"
	in.Height = 1.5
	return in
}

func TestPostgresStore_GetIndividual(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`(?s)SELECT id, tree_type, height, .* NULL::float8 FROM individual_plantations WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(individualRows("p1", "u1", plantation.StatusPending, 1))

	p, err := s.GetIndividual(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, plantation.StatusPending, p.Status)
	assert.Equal(t, geo.NewPoint(77.005, 28.005), p.Location)
	assert.Empty(t, p.Photos)
	assert.Nil(t, p.Distance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetIndividual_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM individual_plantations WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetIndividual(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, plantation.IsCode(err, plantation.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBlock_DecodesGeometryAndSurvey(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM block_plantations WHERE id = \$1`).
		WithArgs("b1").
		WillReturnRows(blockRows(t, "b1", []byte(`{"treesSurvived":45,"averageHeight":1.1,"healthStatus":"GOOD"}`)))

	b, err := s.GetBlock(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, square().Coordinates, b.Boundaries.Coordinates)
	assert.Equal(t, []plantation.TreeSpecies{{Name: "Neem", Quantity: 50}}, b.TreeSpecies)
	require.NotNil(t, b.SurvivalRate)
	assert.InDelta(t, 90.0, *b.SurvivalRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateIndividual(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO land_ownerships`).
		WithArgs(pgxmock.AnyArg(), "PRIVATE", "R. Sharma", 2.5, "", pgxmock.AnyArg(), "u1", fixedNow, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT ST_Covers\(boundaries, ST_SetSRID\(ST_MakePoint\(\$2, \$3\), 4326\)\) FROM land_ownerships`).
		WithArgs(pgxmock.AnyArg(), 77.005, 28.005).
		WillReturnRows(pgxmock.NewRows([]string{"st_covers"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO individual_plantations`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs(pgxmock.AnyArg(), plantation.ActivityIndividualCreated, "u1", pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, err := s.CreateIndividual(context.Background(), newIndividualInput(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.NotEmpty(t, p.LandOwnershipID)
	assert.Equal(t, plantation.StatusPending, p.Status)
	assert.Equal(t, 1, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateIndividual_OutsideLand(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO land_ownerships`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT ST_Covers`).
		WillReturnRows(pgxmock.NewRows([]string{"st_covers"}).AddRow(false))
	mock.ExpectRollback()

	_, err := s.CreateIndividual(context.Background(), newIndividualInput(), "u1")
	require.Error(t, err)
	assert.True(t, plantation.IsCode(err, plantation.CodeGeospatial))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateIndividual_ActivityFailureIgnored(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO land_ownerships`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT ST_Covers`).
		WillReturnRows(pgxmock.NewRows([]string{"st_covers"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO individual_plantations`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO activities`).WillReturnError(eris.New("disk full"))

	p, err := s.CreateIndividual(context.Background(), newIndividualInput(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateBlock_Overlap(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	var in plantation.NewBlock
	in.State = "State 1"
	in.District = "District 1"
	in.Location = geo.NewPoint(77.005, 28.005)
	in.LandOwnership = plantation.LandOwnershipInput{OwnershipType: "COMMUNITY", OwnerName: "Village", Boundaries: square()}
	in.OrganizationType = plantation.OrgNGO
	in.NumberOfTrees = 50
	in.TreeSpecies = []plantation.TreeSpecies{{Name: "Neem", Quantity: 50}}
	in.PlantationArea = plantation.Area{Value: 1, Unit: "ACRES"}
	in.Boundaries = square()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO land_ownerships`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT ST_Covers`).
		WillReturnRows(pgxmock.NewRows([]string{"st_covers"}).AddRow(true))
	mock.ExpectQuery(`SELECT id FROM block_plantations WHERE id <> \$1 AND ST_Intersects\(boundaries, ST_GeomFromEWKB\(\$2\)\)`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("b-existing"))
	mock.ExpectRollback()

	_, err := s.CreateBlock(context.Background(), in, "u1")
	require.Error(t, err)
	de, ok := plantation.AsError(err)
	require.True(t, ok)
	assert.Equal(t, plantation.CodeConflict, de.Code)
	assert.Equal(t, "b-existing", de.Details["overlapsWith"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateIndividual_NotCreator(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM individual_plantations WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(individualRows("p1", "owner", plantation.StatusPending, 1))
	mock.ExpectRollback()

	height := 2.0
	_, err := s.UpdateIndividual(context.Background(), "p1", plantation.IndividualPatch{Height: &height}, "intruder")
	require.Error(t, err)
	assert.True(t, plantation.IsCode(err, plantation.CodeForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateIndividual(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM individual_plantations WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(individualRows("p1", "owner", plantation.StatusPending, 1))
	mock.ExpectExec(`UPDATE individual_plantations SET tree_type = \$2, height = \$3`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	height := 2.0
	p, err := s.UpdateIndividual(context.Background(), "p1", plantation.IndividualPatch{Height: &height}, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Height)
	assert.Equal(t, 2, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_VerifyIndividual(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM individual_plantations WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(individualRows("p1", "u1", plantation.StatusPending, 4))
	mock.ExpectExec(`UPDATE individual_plantations SET status = \$2, verified_by = \$3`).
		WithArgs("p1", "VERIFIED", "admin-1", pgxmock.AnyArg(), "ok", fixedNow, 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs(pgxmock.AnyArg(), plantation.ActivityIndividualVerified, "admin-1", pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	expected := 4
	p, err := s.VerifyIndividual(context.Background(), "p1",
		plantation.VerifyInput{Status: plantation.StatusVerified, Comments: "ok", Version: &expected}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, plantation.StatusVerified, p.Status)
	assert.Equal(t, "admin-1", p.VerifiedBy)
	assert.Equal(t, fixedNow, *p.VerificationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_VerifyIndividual_StaleVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM individual_plantations WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(individualRows("p1", "u1", plantation.StatusVerified, 7))
	mock.ExpectRollback()

	stale := 6
	_, err := s.VerifyIndividual(context.Background(), "p1",
		plantation.VerifyInput{Status: plantation.StatusRejected, Version: &stale}, "admin-1")
	require.Error(t, err)
	assert.True(t, plantation.IsCode(err, plantation.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_VerifyBlock_RecordsSurvey(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM block_plantations WHERE id = \$1 FOR UPDATE`).
		WithArgs("b1").
		WillReturnRows(blockRows(t, "b1", []byte(nil)))
	mock.ExpectExec(`UPDATE block_plantations SET status = \$2`).
		WithArgs("b1", "VERIFIED", "v1", pgxmock.AnyArg(), "", pgxmock.AnyArg(), fixedNow, 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO activities`).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	b, err := s.VerifyBlock(context.Background(), "b1", plantation.VerifyInput{
		Status:        plantation.StatusVerified,
		SurveyDetails: &plantation.SurveyDetails{TreesSurvived: 40, HealthStatus: "GOOD"},
	}, "v1")
	require.NoError(t, err)
	require.NotNil(t, b.SurveyDetails)
	assert.Equal(t, fixedNow, b.SurveyDetails.LastSurveyDate)
	require.NotNil(t, b.SurvivalRate)
	assert.InDelta(t, 80.0, *b.SurvivalRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteBlock(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM block_plantations WHERE id = \$1 RETURNING land_ownership_id`).
		WithArgs("b1").
		WillReturnRows(pgxmock.NewRows([]string{"land_ownership_id"}).AddRow("land-2"))
	mock.ExpectExec(`DELETE FROM land_ownerships WHERE id = \$1`).
		WithArgs("land-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteBlock(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteIndividual_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM individual_plantations`).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := s.DeleteIndividual(context.Background(), "gone")
	assert.True(t, plantation.IsCode(err, plantation.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteLand_InUse(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM land_ownerships WHERE id = \$1`).
		WithArgs("land-1").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := s.DeleteLand(context.Background(), "land-1")
	assert.True(t, plantation.IsCode(err, plantation.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	pred := combined.Translate(combined.Query{Region: plantation.Region{State: "State 1"}}, plantation.KindBlock)

	mock.ExpectQuery(`SELECT count\(\*\) FROM block_plantations WHERE state ILIKE \$1`).
		WithArgs("%State 1%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.Count(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Keys(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	pred := combined.Translate(combined.Query{Status: plantation.StatusPending}, plantation.KindIndividual)
	sort := combined.Sort{Field: combined.SortPlantationDate, Desc: true}

	d1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, plantation_date FROM individual_plantations WHERE status = \$1 ORDER BY plantation_date DESC, id COLLATE "C" DESC LIMIT \$2`).
		WithArgs("PENDING", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "plantation_date"}).AddRow("a", d1).AddRow("b", d2))

	keys, err := s.Keys(context.Background(), pred, sort, 5)
	require.NoError(t, err)
	assert.Equal(t, []combined.Entry{
		{ID: "a", Kind: plantation.KindIndividual, Key: combined.SortKey{Time: d1}},
		{ID: "b", Kind: plantation.KindIndividual, Key: combined.SortKey{Time: d2}},
	}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindUsesDistanceWhenNear(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	q := combined.Query{Near: &combined.Near{Lng: 77, Lat: 28, MaxDistance: 1000}}
	pred := combined.Translate(q, plantation.KindIndividual)

	mock.ExpectQuery(`ST_Distance\(location::geography, ST_SetSRID\(ST_MakePoint\(\$1, \$2\), 4326\)::geography\) FROM individual_plantations WHERE ST_DWithin\(.*\$3\) ORDER BY ST_Distance\(.*\) ASC, id COLLATE "C" ASC LIMIT \$4 OFFSET \$5`).
		WithArgs(77.0, 28.0, 1000.0, 10, 20).
		WillReturnRows(individualRows("p1", "u1", plantation.StatusPending, 1))

	rows, err := s.Find(context.Background(), pred, combined.Sort{Field: combined.SortDistance}, 20, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, plantation.KindIndividual, rows[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchByIDs(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	pred := combined.Translate(combined.Query{}, plantation.KindIndividual)

	mock.ExpectQuery(`FROM individual_plantations WHERE id = ANY\(\$1\)`).
		WithArgs([]string{"p1"}).
		WillReturnRows(individualRows("p1", "u1", plantation.StatusPending, 1))

	rows, err := s.FetchByIDs(context.Background(), pred, []string{"p1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].Base().ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BlockOverview(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	pred := combined.Translate(combined.Query{}, plantation.KindBlock)

	mock.ExpectQuery(`(?s)SELECT count\(\*\), COALESCE\(sum\(number_of_trees\), 0\).*FROM block_plantations$`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "trees", "area", "survival", "v", "p", "r"}).
			AddRow(2, 80, 3.5, 87.5, 1, 1, 0))

	o, err := s.BlockOverview(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, combined.BlockOverview{
		TotalPlantations: 2, TotalTrees: 80, TotalArea: 3.5, AverageSurvivalRate: 87.5,
		StatusCounts: combined.StatusCounts{VerifiedCount: 1, PendingCount: 1},
	}, o)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MonthlyTrend(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	pred := combined.Translate(combined.Query{}, plantation.KindIndividual)

	mock.ExpectQuery(`(?s)EXTRACT\(YEAR FROM plantation_date AT TIME ZONE 'UTC'\).* count\(\*\), count\(\*\)\s+FROM individual_plantations GROUP BY 1, 2 ORDER BY 1, 2`).
		WillReturnRows(pgxmock.NewRows([]string{"year", "month", "count", "trees"}).AddRow(2024, 1, 4, 4))

	rows, err := s.MonthlyTrend(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, []combined.MonthBucket{
		{Year: 2024, Month: 1, Count: 4, Trees: 4, PlantationType: plantation.KindIndividual},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SpeciesDistribution(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	pred := combined.Translate(combined.Query{}, plantation.KindBlock)

	mock.ExpectQuery(`jsonb_array_elements\(tree_species\) sp\s+GROUP BY 1 ORDER BY 2 DESC, 1 LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"name", "quantity"}).AddRow("Neem", 120).AddRow("Peepal", 30))

	rows, err := s.SpeciesDistribution(context.Background(), pred, 10)
	require.NoError(t, err)
	assert.Equal(t, []combined.SpeciesBucket{{Name: "Neem", Quantity: 120}, {Name: "Peepal", Quantity: 30}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLand(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ewkb, err := square().EWKB()
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM land_ownerships WHERE ST_Covers\(boundaries, ST_SetSRID\(ST_MakePoint\(\$1, \$2\), 4326\)\) AND ownership_type = \$3`).
		WithArgs(77.005, 28.005, "PRIVATE").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM land_ownerships WHERE .* LIMIT \$4 OFFSET \$5`).
		WithArgs(77.005, 28.005, "PRIVATE", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "ownership_type", "owner_name", "land_area", "land_use_type", "boundaries", "created_by", "created_at", "updated_at",
		}).AddRow("land-1", "PRIVATE", "R. Sharma", 2.5, "", ewkb, "u1", fixedNow, fixedNow))

	lands, total, err := s.ListLand(context.Background(), LandFilter{
		Contains:      &combined.Near{Lng: 77.005, Lat: 28.005},
		OwnershipType: "PRIVATE",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, lands, 1)
	assert.Equal(t, square().Coordinates, lands[0].Boundaries.Coordinates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBError_Mapping(t *testing.T) {
	assert.True(t, plantation.IsCode(dbError(&pgconn.PgError{Code: "23505"}, "x"), plantation.CodeConflict))
	assert.True(t, plantation.IsCode(dbError(&pgconn.PgError{Code: "23514", ConstraintName: "c"}, "x"), plantation.CodeValidation))
	err := dbError(eris.New("boom"), "postgres: thing")
	assert.Contains(t, err.Error(), "postgres: thing")
	assert.Nil(t, dbError(nil, "x"))
}
