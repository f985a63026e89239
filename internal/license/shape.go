package license

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// isoUTCPattern gates every timestamp the core accepts: zero-padded,
// fixed-width, UTC with Z suffix, optional milliseconds. Only strings of
// this shape are safe to compare at all.
var isoUTCPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,3})?Z$`)

var shapeValidator = newShapeValidator()

func newShapeValidator() *validator.Validate {
	v := validator.New()
	// "required" treats "   " as present; licenses need a real customer name.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// checkShape enforces every payload field constraint before any signature
// work is attempted. The raw map carries presence information the typed
// struct cannot (a missing field and a null field both decode to the zero
// value). Returns a short machine-readable description of the first
// violation, or "" when the shape is acceptable.
func checkShape(p *LicensePayload, raw map[string]any) string {
	if err := shapeValidator.Struct(p); err != nil {
		if verrs, okCast := err.(validator.ValidationErrors); okCast && len(verrs) > 0 {
			return "field " + verrs[0].Field() + " failed " + verrs[0].Tag()
		}
		return "payload shape invalid"
	}

	features, present := raw["enabled_features"]
	if !present {
		return "enabled_features missing"
	}
	list, okCast := features.([]any)
	if !okCast {
		return "enabled_features is not an array"
	}
	for _, el := range list {
		if _, isStr := el.(string); !isStr {
			return "enabled_features element is not a string"
		}
	}

	if v, has := raw["issued_at"]; has {
		s, isStr := v.(string)
		if !isStr || !isoUTCPattern.MatchString(s) {
			return "issued_at is not an ISO-8601 UTC timestamp"
		}
	}
	if v, has := raw["license_id"]; has {
		if _, isStr := v.(string); !isStr {
			return "license_id is not a string"
		}
	}
	if v, has := raw["expiry_date"]; has {
		if _, isStr := v.(string); !isStr {
			return "expiry_date is not a string"
		}
	}
	return ""
}

// normalizeComponent trims, strips all internal whitespace, and upper-cases
// a raw hardware identifier. A failed lookup normalizes to "".
func normalizeComponent(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	return strings.ToUpper(s)
}
