package combined

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

func TestTranslate_Empty(t *testing.T) {
	p := Translate(Query{}, plantation.KindIndividual)
	assert.Equal(t, "individual_plantations", p.Table())
	assert.Empty(t, p.Where())
	assert.Empty(t, p.Args)
	assert.Equal(t, "NULL::float8", p.DistanceExpr())
}

func TestTranslate_SharedFilters(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := Query{
		UserID:    "u1",
		Region:    plantation.Region{State: "State 1", Village: "50%_off"},
		StartDate: &start,
		Status:    plantation.StatusVerified,
	}

	for _, k := range plantation.Kinds {
		p := Translate(q, k)
		assert.Equal(t,
			` WHERE created_by = $1 AND state ILIKE $2 ESCAPE '\' AND village ILIKE $3 ESCAPE '\' AND plantation_date >= $4 AND status = $5`,
			p.Where(), k)
		assert.Equal(t, []any{"u1", "%State 1%", `%50\%\_off%`, start, "VERIFIED"}, p.Args, k)
	}
}

func TestTranslate_KindSpecificFilters(t *testing.T) {
	q := Query{OrganizationType: "NGO", TreeSpecies: "neem", TreeType: "peepal"}

	ind := Translate(q, plantation.KindIndividual)
	assert.Equal(t, ` WHERE tree_type ILIKE $1 ESCAPE '\'`, ind.Where())
	assert.Equal(t, []any{"%peepal%"}, ind.Args)

	blk := Translate(q, plantation.KindBlock)
	assert.Equal(t, "block_plantations", blk.Table())
	assert.Contains(t, blk.Where(), "organization_type = $1")
	assert.Contains(t, blk.Where(), "jsonb_array_elements(tree_species)")
	assert.Contains(t, blk.Where(), "s->>'name' ILIKE $2")
	assert.Equal(t, []any{"NGO", "%neem%"}, blk.Args)
}

func TestTranslate_BlockOnlyFilterLeavesIndividualsUnfiltered(t *testing.T) {
	q := Query{OrganizationType: "NGO"}

	ind := Translate(q, plantation.KindIndividual)
	assert.Empty(t, ind.Where())
	assert.Empty(t, ind.Args)

	blk := Translate(q, plantation.KindBlock)
	assert.Equal(t, " WHERE organization_type = $1", blk.Where())
}

func TestTranslate_Near(t *testing.T) {
	q := Query{Status: plantation.StatusPending, Near: &Near{Lng: 77, Lat: 28, MaxDistance: 1000}}
	p := Translate(q, plantation.KindBlock)

	assert.True(t, p.HasNear())
	assert.Contains(t, p.Where(),
		"ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)")
	assert.Equal(t, []any{"PENDING", 77.0, 28.0, 1000.0}, p.Args)
	assert.Equal(t,
		"ST_Distance(location::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography)",
		p.DistanceExpr())
	assert.Equal(t, 5, p.Placeholder())
}

func TestPredicate_OrderBy(t *testing.T) {
	p := Predicate{Kind: plantation.KindIndividual}
	assert.Equal(t, ` ORDER BY created_at DESC, id COLLATE "C" DESC`, p.OrderBy(Sort{Field: SortCreatedAt, Desc: true}))
	assert.Equal(t, ` ORDER BY status COLLATE "C" ASC, id COLLATE "C" ASC`, p.OrderBy(Sort{Field: SortStatus}))
	// distance without a near point falls back to creation time
	assert.Equal(t, ` ORDER BY created_at ASC, id COLLATE "C" ASC`, p.OrderBy(Sort{Field: SortDistance}))
}

func TestPredicates_RespectsKind(t *testing.T) {
	preds := Predicates(Query{Kind: plantation.KindBlock})
	if assert.Len(t, preds, 1) {
		assert.Equal(t, plantation.KindBlock, preds[0].Kind)
	}
	assert.Len(t, Predicates(Query{}), 2)
}
