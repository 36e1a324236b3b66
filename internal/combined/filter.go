package combined

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// Predicate is a parameterized WHERE clause for one plantation table.
type Predicate struct {
	Kind  plantation.Kind
	Conds []string
	Args  []any

	// placeholders of the near point, zero when no proximity filter applies
	lngArg, latArg int
}

// Table returns the table backing the predicate's kind.
func (p Predicate) Table() string {
	if p.Kind == plantation.KindBlock {
		return "block_plantations"
	}
	return "individual_plantations"
}

// Where renders the conditions as a WHERE clause, or "" when unfiltered.
func (p Predicate) Where() string {
	if len(p.Conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.Conds, " AND ")
}

// HasNear reports whether a proximity filter applies.
func (p Predicate) HasNear() bool {
	return p.lngArg > 0
}

// DistanceExpr is the distance in meters to the near point, or NULL.
func (p Predicate) DistanceExpr() string {
	if !p.HasNear() {
		return "NULL::float8"
	}
	return fmt.Sprintf(
		"ST_Distance(location::geography, ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography)",
		p.lngArg, p.latArg)
}

// KeyExpr is the SQL expression for the sort key.
func (p Predicate) KeyExpr(s Sort) string {
	switch s.Field {
	case SortUpdatedAt:
		return "updated_at"
	case SortPlantationDate:
		return "plantation_date"
	case SortStatus:
		return `status COLLATE "C"`
	case SortDistance:
		if p.HasNear() {
			return p.DistanceExpr()
		}
	}
	return "created_at"
}

// OrderBy renders the ORDER BY clause for s with the id tie-breaker.
func (p Predicate) OrderBy(s Sort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(` ORDER BY %s %s, id COLLATE "C" %s`, p.KeyExpr(s), dir, dir)
}

// Placeholder returns the next free $n position.
func (p Predicate) Placeholder() int {
	return len(p.Args) + 1
}

// FilterBuilder accumulates the conditions of one kind. Each kind maps the
// shared parameters onto its own columns and ignores filters it cannot apply.
type FilterBuilder interface {
	IdentityFilter(q Query)
	RegionFilter(r plantation.Region)
	DateFilter(start, end *time.Time)
	StatusFilter(s plantation.Status)
	TypeFilter(q Query)
	GeoFilter(n *Near)
	Predicate() Predicate
}

// NewFilterBuilder returns the builder for kind.
func NewFilterBuilder(kind plantation.Kind) FilterBuilder {
	if kind == plantation.KindBlock {
		return &blockFilter{baseFilter{pred: Predicate{Kind: kind}}}
	}
	return &individualFilter{baseFilter{pred: Predicate{Kind: plantation.KindIndividual}}}
}

// Translate builds the predicate of kind from q.
func Translate(q Query, kind plantation.Kind) Predicate {
	b := NewFilterBuilder(kind)
	b.IdentityFilter(q)
	b.RegionFilter(q.Region)
	b.DateFilter(q.StartDate, q.EndDate)
	b.StatusFilter(q.Status)
	b.TypeFilter(q)
	b.GeoFilter(q.Near)
	return b.Predicate()
}

// Predicates builds one predicate per kind included in q.
func Predicates(q Query) []Predicate {
	kinds := q.Kinds()
	out := make([]Predicate, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, Translate(q, k))
	}
	return out
}

type baseFilter struct {
	pred Predicate
}

// where appends a condition; each %d in format receives the placeholder
// number of the matching arg.
func (b *baseFilter) where(format string, args ...any) {
	pos := make([]any, len(args))
	for i := range args {
		pos[i] = len(b.pred.Args) + i + 1
	}
	b.pred.Conds = append(b.pred.Conds, fmt.Sprintf(format, pos...))
	b.pred.Args = append(b.pred.Args, args...)
}

func (b *baseFilter) contains(column, value string) {
	if value != "" {
		b.where(column+` ILIKE $%d ESCAPE '\'`, likePattern(value))
	}
}

func (b *baseFilter) equals(column, value string) {
	if value != "" {
		b.where(column+" = $%d", value)
	}
}

func (b *baseFilter) IdentityFilter(q Query) {
	b.equals("created_by", q.UserID)
	b.equals("event_id", q.EventID)
	b.equals("campaign_id", q.CampaignID)
}

func (b *baseFilter) RegionFilter(r plantation.Region) {
	b.contains("country", r.Country)
	b.contains("state", r.State)
	b.contains("district", r.District)
	b.contains("block", r.Block)
	b.contains("gram_panchayat", r.GramPanchayat)
	b.contains("village", r.Village)
}

func (b *baseFilter) DateFilter(start, end *time.Time) {
	if start != nil {
		b.where("plantation_date >= $%d", *start)
	}
	if end != nil {
		b.where("plantation_date <= $%d", *end)
	}
}

func (b *baseFilter) StatusFilter(s plantation.Status) {
	b.equals("status", string(s))
}

func (b *baseFilter) GeoFilter(n *Near) {
	if n == nil {
		return
	}
	b.where("ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography, $%d)",
		n.Lng, n.Lat, n.MaxDistance)
	b.pred.lngArg = len(b.pred.Args) - 2
	b.pred.latArg = len(b.pred.Args) - 1
}

func (b *baseFilter) Predicate() Predicate {
	return b.pred
}

type individualFilter struct {
	baseFilter
}

func (f *individualFilter) TypeFilter(q Query) {
	f.contains("tree_type", q.TreeType)
}

type blockFilter struct {
	baseFilter
}

func (f *blockFilter) TypeFilter(q Query) {
	f.equals("organization_type", q.OrganizationType)
	if q.TreeSpecies != "" {
		f.where(`EXISTS (SELECT 1 FROM jsonb_array_elements(tree_species) s WHERE s->>'name' ILIKE $%d ESCAPE '\')`,
			likePattern(q.TreeSpecies))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
