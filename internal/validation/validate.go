// Package validation turns untrusted key/value input into models.PropertyFeatures.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Alias1177/HousePricer/models"
)

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindInteger
	kindString
)

type fieldSpec struct {
	name     string
	field    string // Go field name in models.PropertyFeatures
	kind     fieldKind
	required bool
}

// schema lists fields in the order they are checked, so the first failure is stable
var schema = []fieldSpec{
	{name: "sqft", field: "Sqft", kind: kindNumber, required: true},
	{name: "bedrooms", field: "Bedrooms", kind: kindInteger, required: true},
	{name: "bathrooms", field: "Bathrooms", kind: kindNumber, required: true},
	{name: "location", field: "Location", kind: kindString, required: true},
	{name: "yearBuilt", field: "YearBuilt", kind: kindInteger},
	{name: "lotSize", field: "LotSize", kind: kindNumber},
	{name: "garage", field: "Garage", kind: kindInteger},
	{name: "propertyType", field: "PropertyType", kind: kindString},
}

var locationPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Validator checks raw feature maps against the property schema
type Validator struct {
	// Strict rejects keys that are not part of the schema
	Strict bool

	rules *validator.Validate
}

// New creates a Validator; strict controls handling of unknown fields
func New(strict bool) *Validator {
	rules := validator.New(validator.WithRequiredStructEnabled())
	rules.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = rules.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		return locationPattern.MatchString(fl.Field().String())
	})
	_ = rules.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(models.LatestYearBuilt(time.Now()))
	})

	return &Validator{Strict: strict, rules: rules}
}

var defaultValidator = New(false)

// Validate checks raw with the default, non-strict validator
func Validate(raw map[string]any) (models.PropertyFeatures, error) {
	return defaultValidator.Validate(raw)
}

// Validate returns typed features or a *models.ValidationError for the first bad field.
// Each field is type checked and range checked before the next one is looked at.
func (v *Validator) Validate(raw map[string]any) (models.PropertyFeatures, error) {
	var features models.PropertyFeatures

	for _, fs := range schema {
		value, present := raw[fs.name]
		if !present || value == nil {
			if fs.required {
				return models.PropertyFeatures{}, &models.ValidationError{Field: fs.name, Reason: "is required"}
			}
			continue
		}
		if err := assign(&features, fs, value); err != nil {
			return models.PropertyFeatures{}, err
		}
		if err := v.checkRange(features, fs); err != nil {
			return models.PropertyFeatures{}, err
		}
	}

	if v.Strict {
		if field := firstUnknown(raw); field != "" {
			return models.PropertyFeatures{}, &models.ValidationError{Field: field, Reason: "is not a recognized field"}
		}
	}

	return features, nil
}

func (v *Validator) checkRange(features models.PropertyFeatures, fs fieldSpec) error {
	err := v.rules.StructPartial(features, fs.field)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return translate(fieldErrs[0])
	}
	return fmt.Errorf("validating %s: %w", fs.name, err)
}

func assign(f *models.PropertyFeatures, fs fieldSpec, value any) error {
	switch fs.kind {
	case kindNumber:
		n, ok := toFloat(value)
		if !ok {
			return &models.ValidationError{Field: fs.name, Reason: "must be a number"}
		}
		switch fs.name {
		case "sqft":
			f.Sqft = n
		case "bathrooms":
			f.Bathrooms = n
		case "lotSize":
			f.LotSize = &n
		}
	case kindInteger:
		n, ok := toFloat(value)
		if !ok || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return &models.ValidationError{Field: fs.name, Reason: "must be an integer"}
		}
		i := int(n)
		switch fs.name {
		case "bedrooms":
			f.Bedrooms = i
		case "yearBuilt":
			f.YearBuilt = &i
		case "garage":
			f.Garage = &i
		}
	case kindString:
		s, ok := value.(string)
		if !ok {
			return &models.ValidationError{Field: fs.name, Reason: "must be a string"}
		}
		switch fs.name {
		case "location":
			f.Location = s
		case "propertyType":
			f.PropertyType = s
		}
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	var n float64
	switch x := value.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func firstUnknown(raw map[string]any) string {
	known := make(map[string]struct{}, len(schema))
	for _, fs := range schema {
		known[fs.name] = struct{}{}
	}

	var unknown []string
	for key := range raw {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return ""
	}
	sort.Strings(unknown)
	return unknown[0]
}

func translate(fe validator.FieldError) *models.ValidationError {
	var reason string
	switch fe.Tag() {
	case "gte":
		reason = "must be at least " + fe.Param()
	case "lte":
		reason = "must be at most " + fe.Param()
	case "min":
		reason = fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "location":
		reason = "must contain only letters, digits or dashes"
	case "notfuture":
		reason = "cannot be in the future"
	default:
		reason = "failed " + fe.Tag() + " check"
	}
	return &models.ValidationError{Field: fe.Field(), Reason: reason}
}
