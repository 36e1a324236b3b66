package plantation

import (
	"time"

	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
)

// LandOwnershipInput is the land record submitted with a new plantation or
// on its own.
type LandOwnershipInput struct {
	OwnershipType string      `json:"ownershipType" validate:"required,oneof=PRIVATE GOVERNMENT COMMUNITY TEMPLE EDUCATIONAL_INSTITUTION CORPORATE FOREST_DEPARTMENT PANCHAYAT OTHER"`
	OwnerName     string      `json:"ownerName" validate:"required"`
	LandArea      float64     `json:"landArea" validate:"gte=0"`
	LandUseType   string      `json:"landUseType"`
	Boundaries    geo.Polygon `json:"boundaries"`
}

// LandOwnership converts the input into a record owned by createdBy.
func (in LandOwnershipInput) LandOwnership(id, createdBy string, now time.Time) LandOwnership {
	return LandOwnership{
		ID:            id,
		OwnershipType: in.OwnershipType,
		OwnerName:     in.OwnerName,
		LandArea:      in.LandArea,
		LandUseType:   in.LandUseType,
		Boundaries:    in.Boundaries,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// LandOwnershipPatch updates the non-nil fields of a land record.
type LandOwnershipPatch struct {
	OwnershipType *string      `json:"ownershipType" validate:"omitempty,oneof=PRIVATE GOVERNMENT COMMUNITY TEMPLE EDUCATIONAL_INSTITUTION CORPORATE FOREST_DEPARTMENT PANCHAYAT OTHER"`
	OwnerName     *string      `json:"ownerName" validate:"omitempty,min=1"`
	LandArea      *float64     `json:"landArea" validate:"omitempty,gte=0"`
	LandUseType   *string      `json:"landUseType"`
	Boundaries    *geo.Polygon `json:"boundaries" validate:"omitempty"`
}

// Apply copies the set fields onto l.
func (p LandOwnershipPatch) Apply(l *LandOwnership) {
	setString(&l.OwnershipType, p.OwnershipType)
	setString(&l.OwnerName, p.OwnerName)
	setString(&l.LandUseType, p.LandUseType)
	if p.LandArea != nil {
		l.LandArea = *p.LandArea
	}
	if p.Boundaries != nil {
		l.Boundaries = *p.Boundaries
	}
}

// common is the submission shape shared by both kinds.
type common struct {
	Region
	EventID        string             `json:"eventId"`
	CampaignID     string             `json:"campaignId"`
	Location       geo.Point          `json:"location"`
	PlantationDate time.Time          `json:"plantationDate" validate:"required"`
	ContactNumber  string             `json:"contactNumber" validate:"required,contact"`
	Email          string             `json:"email" validate:"required,email"`
	Photos         []Photo            `json:"photos" validate:"omitempty,dive"`
	LandOwnership  LandOwnershipInput `json:"landOwnership"`
}

func (c common) record(id, landID, createdBy string, now time.Time) Record {
	return Record{
		ID:              id,
		Region:          c.Region,
		EventID:         c.EventID,
		CampaignID:      c.CampaignID,
		LandOwnershipID: landID,
		Location:        geo.NewPoint(c.Location.Lng(), c.Location.Lat()),
		PlantationDate:  c.PlantationDate.UTC(),
		ContactNumber:   c.ContactNumber,
		Email:           c.Email,
		Photos:          c.Photos,
		Status:          StatusPending,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
}

// NewIndividual is the request body for creating an individual plantation.
type NewIndividual struct {
	common
	TreeType string  `json:"treeType" validate:"required"`
	Height   float64 `json:"height" validate:"gt=0"`
}

// Plantation builds the record to insert.
func (in NewIndividual) Plantation(id, landID, createdBy string, now time.Time) IndividualPlantation {
	return IndividualPlantation{
		Record:   in.record(id, landID, createdBy, now),
		TreeType: in.TreeType,
		Height:   in.Height,
	}
}

// NewBlock is the request body for creating a block plantation.
type NewBlock struct {
	common
	OrganizationType      string        `json:"organizationType" validate:"required,oneof=GOVERNMENT NGO INDIVIDUAL"`
	Department            string        `json:"department" validate:"required_if=OrganizationType GOVERNMENT"`
	NGOName               string        `json:"ngoName" validate:"required_if=OrganizationType NGO"`
	NGORegistrationNumber string        `json:"ngoRegistrationNumber" validate:"required_if=OrganizationType NGO"`
	IndividualName        string        `json:"individualName" validate:"required_if=OrganizationType INDIVIDUAL"`
	PlantationArea        Area          `json:"plantationArea"`
	NumberOfTrees         int           `json:"numberOfTrees" validate:"gte=1"`
	TreeSpecies           []TreeSpecies `json:"treeSpecies" validate:"required,min=1,dive"`
	Boundaries            geo.Polygon   `json:"boundaries"`
}

// Plantation builds the record to insert.
func (in NewBlock) Plantation(id, landID, createdBy string, now time.Time) BlockPlantation {
	return BlockPlantation{
		Record:                in.record(id, landID, createdBy, now),
		OrganizationType:      in.OrganizationType,
		Department:            in.Department,
		NGOName:               in.NGOName,
		NGORegistrationNumber: in.NGORegistrationNumber,
		IndividualName:        in.IndividualName,
		PlantationArea:        in.PlantationArea,
		NumberOfTrees:         in.NumberOfTrees,
		TreeSpecies:           in.TreeSpecies,
		Boundaries:            in.Boundaries,
	}
}

// RegionPatch updates region fields that are non-nil.
type RegionPatch struct {
	Country       *string `json:"country"`
	State         *string `json:"state" validate:"omitempty,min=1"`
	District      *string `json:"district" validate:"omitempty,min=1"`
	Block         *string `json:"block"`
	GramPanchayat *string `json:"gramPanchayat"`
	Village       *string `json:"village"`
}

func (p RegionPatch) apply(r *Region) {
	setString(&r.Country, p.Country)
	setString(&r.State, p.State)
	setString(&r.District, p.District)
	setString(&r.Block, p.Block)
	setString(&r.GramPanchayat, p.GramPanchayat)
	setString(&r.Village, p.Village)
}

type commonPatch struct {
	RegionPatch
	EventID        *string             `json:"eventId"`
	CampaignID     *string             `json:"campaignId"`
	Location       *geo.Point          `json:"location" validate:"omitempty"`
	PlantationDate *time.Time          `json:"plantationDate"`
	ContactNumber  *string             `json:"contactNumber" validate:"omitempty,contact"`
	Email          *string             `json:"email" validate:"omitempty,email"`
	Photos         []Photo             `json:"photos" validate:"omitempty,dive"`
	LandOwnership  *LandOwnershipInput `json:"landOwnership" validate:"omitempty"`
}

func (p commonPatch) apply(r *Record, now time.Time) {
	p.RegionPatch.apply(&r.Region)
	setString(&r.EventID, p.EventID)
	setString(&r.CampaignID, p.CampaignID)
	setString(&r.ContactNumber, p.ContactNumber)
	setString(&r.Email, p.Email)
	if p.Location != nil {
		r.Location = geo.NewPoint(p.Location.Lng(), p.Location.Lat())
	}
	if p.PlantationDate != nil {
		r.PlantationDate = p.PlantationDate.UTC()
	}
	if p.Photos != nil {
		r.Photos = p.Photos
	}
	r.UpdatedAt = now
	r.Version++
}

// IndividualPatch is the request body for updating an individual plantation.
type IndividualPatch struct {
	commonPatch
	TreeType *string  `json:"treeType" validate:"omitempty,min=1"`
	Height   *float64 `json:"height" validate:"omitempty,gt=0"`
}

// Land returns the replacement land record, if any.
func (p IndividualPatch) Land() *LandOwnershipInput { return p.LandOwnership }

// Apply updates rec in place.
func (p IndividualPatch) Apply(rec *IndividualPlantation, now time.Time) {
	p.commonPatch.apply(&rec.Record, now)
	setString(&rec.TreeType, p.TreeType)
	if p.Height != nil {
		rec.Height = *p.Height
	}
}

// BlockPatch is the request body for updating a block plantation.
type BlockPatch struct {
	commonPatch
	OrganizationType      *string       `json:"organizationType" validate:"omitempty,oneof=GOVERNMENT NGO INDIVIDUAL"`
	Department            *string       `json:"department"`
	NGOName               *string       `json:"ngoName"`
	NGORegistrationNumber *string       `json:"ngoRegistrationNumber"`
	IndividualName        *string       `json:"individualName"`
	PlantationArea        *Area         `json:"plantationArea" validate:"omitempty"`
	NumberOfTrees         *int          `json:"numberOfTrees" validate:"omitempty,gte=1"`
	TreeSpecies           []TreeSpecies `json:"treeSpecies" validate:"omitempty,min=1,dive"`
	Boundaries            *geo.Polygon  `json:"boundaries" validate:"omitempty"`
}

// Land returns the replacement land record, if any.
func (p BlockPatch) Land() *LandOwnershipInput { return p.LandOwnership }

// Apply updates b in place and re-checks the cross-field rules that a
// partial update can break.
func (p BlockPatch) Apply(b *BlockPlantation, now time.Time) error {
	p.commonPatch.apply(&b.Record, now)
	setString(&b.OrganizationType, p.OrganizationType)
	setString(&b.Department, p.Department)
	setString(&b.NGOName, p.NGOName)
	setString(&b.NGORegistrationNumber, p.NGORegistrationNumber)
	setString(&b.IndividualName, p.IndividualName)
	if p.PlantationArea != nil {
		b.PlantationArea = *p.PlantationArea
	}
	if p.Boundaries != nil {
		b.Boundaries = *p.Boundaries
	}

	switch {
	case p.TreeSpecies != nil && p.NumberOfTrees == nil:
		b.TreeSpecies = p.TreeSpecies
		b.NumberOfTrees = SpeciesTotal(p.TreeSpecies)
	case p.TreeSpecies != nil:
		b.TreeSpecies = p.TreeSpecies
		b.NumberOfTrees = *p.NumberOfTrees
	case p.NumberOfTrees != nil:
		b.NumberOfTrees = *p.NumberOfTrees
	}
	if SpeciesTotal(b.TreeSpecies) != b.NumberOfTrees {
		return Validation("treeSpecies quantities must sum to numberOfTrees",
			map[string]any{"numberOfTrees": b.NumberOfTrees, "speciesTotal": SpeciesTotal(b.TreeSpecies)})
	}

	if missing := b.missingOrgField(); missing != "" {
		return Validation(missing+" is required for this organization type", map[string]any{"field": missing})
	}
	b.ComputeSurvivalRate()
	return nil
}

func (b *BlockPlantation) missingOrgField() string {
	switch b.OrganizationType {
	case OrgGovernment:
		if b.Department == "" {
			return "department"
		}
	case OrgNGO:
		if b.NGOName == "" {
			return "ngoName"
		}
		if b.NGORegistrationNumber == "" {
			return "ngoRegistrationNumber"
		}
	case OrgIndividual:
		if b.IndividualName == "" {
			return "individualName"
		}
	}
	return ""
}

// VerifyInput is the request body of a verify action. Version, when set,
// must equal the stored version. SurveyDetails applies to blocks only.
type VerifyInput struct {
	Status        Status         `json:"status" validate:"required,oneof=PENDING VERIFIED REJECTED"`
	Comments      string         `json:"comments"`
	Version       *int           `json:"version"`
	SurveyDetails *SurveyDetails `json:"surveyDetails" validate:"omitempty"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
