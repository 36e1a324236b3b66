package plantation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	contactNumberRe = regexp.MustCompile(`^[0-9]{10}$`)
)

// Validator returns the shared validator with the plantation rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
			return contactNumberRe.MatchString(fl.Field().String())
		})

		v.RegisterStructValidation(pointLevel, geo.Point{})
		v.RegisterStructValidation(polygonLevel, geo.Polygon{})
		v.RegisterStructValidation(speciesLevel, NewBlock{})

		validate = v
	})
	return validate
}

func pointLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(geo.Point)
	if err := p.Validate(); err != nil {
		sl.ReportError(p.Coordinates, "coordinates", "Coordinates", "geopoint", "")
	}
}

func polygonLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(geo.Polygon)
	if err := p.Validate(); err != nil {
		sl.ReportError(p.Coordinates, "coordinates", "Coordinates", "closedpolygon", "")
	}
}

func speciesLevel(sl validator.StructLevel) {
	b := sl.Current().Interface().(NewBlock)
	if len(b.TreeSpecies) == 0 {
		return
	}
	if SpeciesTotal(b.TreeSpecies) != b.NumberOfTrees {
		sl.ReportError(b.TreeSpecies, "treeSpecies", "TreeSpecies", "speciestotal", fmt.Sprint(b.NumberOfTrees))
	}
}

// SpeciesTotal sums species quantities.
func SpeciesTotal(species []TreeSpecies) int {
	total := 0
	for _, s := range species {
		total += s.Quantity
	}
	return total
}

var messageTemplates = map[string]string{
	"required":      "%s is required",
	"required_if":   "%s is required for this organization type",
	"email":         "%s must be a valid email address",
	"contact":       "%s must be a 10-digit number",
	"geopoint":      "%s must be [longitude, latitude] within range",
	"closedpolygon": "%s must be a closed ring of at least 4 points",
}

var paramTemplates = map[string]string{
	"oneof":        "%s must be one of: %s",
	"gte":          "%s must be greater than or equal to %s",
	"gt":           "%s must be greater than %s",
	"min":          "%s must be at least %s",
	"speciestotal": "%s quantities must sum to numberOfTrees (%s)",
}

// fieldPath renders the JSON path of a failing field. Segments whose JSON
// name equals the Go name are the root struct and embedded structs.
func fieldPath(fe validator.FieldError) string {
	ns := strings.Split(fe.Namespace(), ".")
	sns := strings.Split(fe.StructNamespace(), ".")
	if len(ns) != len(sns) {
		return fe.Field()
	}
	path := make([]string, 0, len(ns))
	for i := range ns {
		if ns[i] != sns[i] {
			path = append(path, ns[i])
		}
	}
	if len(path) == 0 {
		return fe.Field()
	}
	return strings.Join(path, ".")
}

func fieldMessage(fe validator.FieldError) string {
	name := fieldPath(fe)
	if t, ok := messageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(t, name)
	}
	if t, ok := paramTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(t, name, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}

// Validate checks s against its validate tags and returns a validation
// *Error listing every failing field.
func Validate(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return Validation(err.Error(), nil)
	}

	fields := make([]map[string]any, 0, len(ves))
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msg := fieldMessage(fe)
		msgs = append(msgs, msg)
		fields = append(fields, map[string]any{"field": fieldPath(fe), "tag": fe.Tag(), "message": msg})
	}
	return Validation(strings.Join(msgs, "; "), map[string]any{"fields": fields})
}
