// Package combined presents individual and block plantations as one feed:
// it translates query parameters into per-kind SQL predicates, merges and
// paginates results from both tables and rolls up dashboard statistics.
package combined

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// Query defaults.
const (
	DefaultPage        = 1
	DefaultLimit       = 10
	DefaultMaxLimit    = 100
	DefaultMaxDistance = 10000.0
)

// SortField is an allowlisted sort key.
type SortField string

// Sort keys accepted by sortBy.
const (
	SortCreatedAt      SortField = "createdAt"
	SortUpdatedAt      SortField = "updatedAt"
	SortPlantationDate SortField = "plantationDate"
	SortStatus         SortField = "status"
	SortDistance       SortField = "distance"
)

var sortFields = map[string]SortField{
	"createdat":      SortCreatedAt,
	"updatedat":      SortUpdatedAt,
	"plantationdate": SortPlantationDate,
	"status":         SortStatus,
	"distance":       SortDistance,
}

// Sort is a resolved ordering.
type Sort struct {
	Field SortField
	Desc  bool
}

// Near is a proximity constraint in meters around a point.
type Near struct {
	Lng         float64
	Lat         float64
	MaxDistance float64
}

// Query is the parsed, validated form of the combined-list parameters.
type Query struct {
	Page  int
	Limit int

	UserID           string
	OrganizationType string
	EventID          string
	CampaignID       string
	Region           plantation.Region

	StartDate *time.Time
	EndDate   *time.Time

	Status      plantation.Status
	TreeSpecies string
	TreeType    string

	Sort Sort
	// Kind restricts the query to one kind; empty means both.
	Kind plantation.Kind
	Near *Near
}

// Offset is the number of merged rows before the requested page. Pages past
// what an int can address saturate instead of wrapping negative.
func (q Query) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > (math.MaxInt-q.Limit)/q.Limit {
		return math.MaxInt - q.Limit
	}
	return (q.Page - 1) * q.Limit
}

// Includes reports whether kind k takes part in the query.
func (q Query) Includes(k plantation.Kind) bool {
	return q.Kind == "" || q.Kind == k
}

// Kinds returns the kinds that take part in the query, block first.
func (q Query) Kinds() []plantation.Kind {
	out := make([]plantation.Kind, 0, 2)
	for _, k := range []plantation.Kind{plantation.KindBlock, plantation.KindIndividual} {
		if q.Includes(k) {
			out = append(out, k)
		}
	}
	return out
}

// ParseQuery reads the combined-list parameters. Malformed numbers fall back
// to defaults; malformed dates and unknown plantation types are validation
// errors. maxLimit <= 0 means DefaultMaxLimit.
func ParseQuery(v url.Values, maxLimit int) (Query, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	q := Query{
		Limit:            min(positiveInt(v.Get("limit"), DefaultLimit), maxLimit),
		UserID:           strings.TrimSpace(v.Get("userId")),
		OrganizationType: strings.TrimSpace(v.Get("organizationType")),
		EventID:          strings.TrimSpace(v.Get("eventId")),
		CampaignID:       strings.TrimSpace(v.Get("campaignId")),
		Region: plantation.Region{
			Country:       strings.TrimSpace(v.Get("country")),
			State:         strings.TrimSpace(v.Get("state")),
			District:      strings.TrimSpace(v.Get("district")),
			Block:         strings.TrimSpace(v.Get("block")),
			GramPanchayat: strings.TrimSpace(v.Get("gramPanchayat")),
			Village:       strings.TrimSpace(v.Get("village")),
		},
		Status:      plantation.Status(strings.TrimSpace(v.Get("status"))),
		TreeSpecies: strings.TrimSpace(v.Get("treeSpecies")),
		TreeType:    strings.TrimSpace(v.Get("treeType")),
	}

	// page*limit must stay addressable
	q.Page = min(positiveInt(v.Get("page"), DefaultPage), math.MaxInt/q.Limit)

	var err error
	if q.StartDate, err = parseDate("startDate", v.Get("startDate")); err != nil {
		return Query{}, err
	}
	if q.EndDate, err = parseDate("endDate", v.Get("endDate")); err != nil {
		return Query{}, err
	}

	if raw := strings.TrimSpace(v.Get("plantationType")); raw != "" {
		k, ok := plantation.ParseKind(raw)
		if !ok {
			return Query{}, plantation.Validation("plantationType must be block or individual",
				map[string]any{"plantationType": raw})
		}
		q.Kind = k
	}

	q.Near = ParseNear(v.Get("near"), v.Get("maxDistance"))
	q.Sort = parseSort(v.Get("sortBy"), v.Get("sortOrder"), q.Near != nil)
	return q, nil
}

func positiveInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return max(n, 1)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, plantation.Validation(name+" must be an RFC3339 timestamp or YYYY-MM-DD date",
		map[string]any{name: raw})
}

// ParseNear reads a "lng,lat" point and a radius in meters. It returns nil
// when the point is malformed or out of range so the proximity filter is
// skipped.
func ParseNear(rawNear, rawMax string) *Near {
	parts := strings.Split(strings.TrimSpace(rawNear), ",")
	if len(parts) != 2 {
		return nil
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || !geo.ValidCoordinate(lng, lat) {
		return nil
	}

	dist, err := strconv.ParseFloat(strings.TrimSpace(rawMax), 64)
	if err != nil || dist <= 0 || math.IsInf(dist, 0) || math.IsNaN(dist) {
		dist = DefaultMaxDistance
	}
	return &Near{Lng: lng, Lat: lat, MaxDistance: dist}
}

func parseSort(rawBy, rawOrder string, hasNear bool) Sort {
	field, ok := sortFields[strings.ToLower(strings.TrimSpace(rawBy))]
	if !ok || (field == SortDistance && !hasNear) {
		field = SortCreatedAt
	}
	desc := !strings.EqualFold(strings.TrimSpace(rawOrder), "asc")
	return Sort{Field: field, Desc: desc}
}
