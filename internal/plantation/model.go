// Package plantation defines the individual and block plantation records,
// their land ownership, the verification lifecycle and request validation.
package plantation

import (
	"encoding/json"
	"math"
	"time"

	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
)

// Region holds the administrative location fields shared by both kinds.
type Region struct {
	Country       string `json:"country,omitempty"`
	State         string `json:"state" validate:"required"`
	District      string `json:"district" validate:"required"`
	Block         string `json:"block,omitempty"`
	GramPanchayat string `json:"gramPanchayat,omitempty"`
	Village       string `json:"village,omitempty"`
}

// Photo is an uploaded image descriptor stored as opaque metadata.
type Photo struct {
	URL        string    `json:"url" validate:"required"`
	Caption    string    `json:"caption,omitempty"`
	UploadDate time.Time `json:"uploadDate"`
}

// Record carries the fields common to both plantation kinds.
type Record struct {
	ID string `json:"id"`
	Region
	EventID              string     `json:"eventId,omitempty"`
	CampaignID           string     `json:"campaignId,omitempty"`
	LandOwnershipID      string     `json:"landOwnership,omitempty"`
	Location             geo.Point  `json:"location"`
	PlantationDate       time.Time  `json:"plantationDate"`
	ContactNumber        string     `json:"contactNumber"`
	Email                string     `json:"email"`
	Photos               []Photo    `json:"photos"`
	Status               Status     `json:"status"`
	VerifiedBy           string     `json:"verifiedBy,omitempty"`
	VerificationDate     *time.Time `json:"verificationDate,omitempty"`
	VerificationComments string     `json:"verificationComments,omitempty"`
	CreatedBy            string     `json:"createdBy"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	Version              int        `json:"version"`

	// Distance in meters from the query point, set only for proximity queries.
	Distance *float64 `json:"distance,omitempty"`
}

// IndividualPlantation is a single planted tree.
type IndividualPlantation struct {
	Record
	TreeType string  `json:"treeType"`
	Height   float64 `json:"height"`
}

// Organization types for block plantations.
const (
	OrgGovernment = "GOVERNMENT"
	OrgNGO        = "NGO"
	OrgIndividual = "INDIVIDUAL"
)

// Area is a measured plantation area.
type Area struct {
	Value float64 `json:"value" validate:"gte=0"`
	Unit  string  `json:"unit" validate:"required,oneof=ACRES HECTARES SQUARE_METERS"`
}

// TreeSpecies is one line of a block's species breakdown.
type TreeSpecies struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// SurveyDetails records the latest field survey of a block.
type SurveyDetails struct {
	LastSurveyDate time.Time `json:"lastSurveyDate"`
	TreesSurvived  int       `json:"treesSurvived" validate:"gte=0"`
	AverageHeight  float64   `json:"averageHeight" validate:"gte=0"`
	HealthStatus   string    `json:"healthStatus" validate:"omitempty,oneof=EXCELLENT GOOD FAIR POOR"`
}

// BlockPlantation is an organizational plantation covering an area.
type BlockPlantation struct {
	Record
	OrganizationType      string         `json:"organizationType"`
	Department            string         `json:"department,omitempty"`
	NGOName               string         `json:"ngoName,omitempty"`
	NGORegistrationNumber string         `json:"ngoRegistrationNumber,omitempty"`
	IndividualName        string         `json:"individualName,omitempty"`
	PlantationArea        Area           `json:"plantationArea"`
	NumberOfTrees         int            `json:"numberOfTrees"`
	TreeSpecies           []TreeSpecies  `json:"treeSpecies"`
	Boundaries            geo.Polygon    `json:"boundaries"`
	SurveyDetails         *SurveyDetails `json:"surveyDetails,omitempty"`
	SurvivalRate          *float64       `json:"survivalRate,omitempty"`
}

// ComputeSurvivalRate derives the survival percentage from the latest survey.
func (b *BlockPlantation) ComputeSurvivalRate() {
	b.SurvivalRate = nil
	if b.SurveyDetails == nil || b.NumberOfTrees <= 0 {
		return
	}
	rate := math.Round(float64(b.SurveyDetails.TreesSurvived)/float64(b.NumberOfTrees)*10000) / 100
	b.SurvivalRate = &rate
}

// Ownership types for land records.
var OwnershipTypes = []string{
	"PRIVATE", "GOVERNMENT", "COMMUNITY", "TEMPLE", "EDUCATIONAL_INSTITUTION",
	"CORPORATE", "FOREST_DEPARTMENT", "PANCHAYAT", "OTHER",
}

// LandOwnership is the land parcel a plantation sits on.
type LandOwnership struct {
	ID            string      `json:"id"`
	OwnershipType string      `json:"ownershipType"`
	OwnerName     string      `json:"ownerName"`
	LandArea      float64     `json:"landArea"`
	LandUseType   string      `json:"landUseType,omitempty"`
	Boundaries    geo.Polygon `json:"boundaries"`
	CreatedBy     string      `json:"createdBy,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Activity types written to the tracking log.
const (
	ActivityBlockCreated       = "BLOCK_PLANTATION_CREATED"
	ActivityBlockUpdated       = "BLOCK_PLANTATION_UPDATED"
	ActivityBlockVerified      = "BLOCK_PLANTATION_VERIFIED"
	ActivityIndividualCreated  = "INDIVIDUAL_PLANTATION_CREATED"
	ActivityIndividualVerified = "INDIVIDUAL_PLANTATION_VERIFIED"
)

// Activity is one tracking-log entry.
type Activity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"userId"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CombinedResult is a plantation of either kind tagged with its origin.
// Exactly one of Individual and Block is set.
type CombinedResult struct {
	Kind       Kind
	Individual *IndividualPlantation
	Block      *BlockPlantation
}

// Base returns the shared record fields.
func (c CombinedResult) Base() *Record {
	if c.Block != nil {
		return &c.Block.Record
	}
	if c.Individual != nil {
		return &c.Individual.Record
	}
	return nil
}

// MarshalJSON flattens the underlying record and adds plantationType.
func (c CombinedResult) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindBlock:
		return json.Marshal(struct {
			*BlockPlantation
			PlantationType Kind `json:"plantationType"`
		}{c.Block, c.Kind})
	default:
		return json.Marshal(struct {
			*IndividualPlantation
			PlantationType Kind `json:"plantationType"`
		}{c.Individual, c.Kind})
	}
}
