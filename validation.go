package gatekeeper

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateRole checks that the value names a known role
func ValidateRole(value any) error {
	s, _ := value.(string)
	if _, ok := ParseRole(s); !ok {
		return errors.New("must be one of: user, co-owner, admin")
	}
	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
