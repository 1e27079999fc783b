package bank

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/wisentbank/wisent/errs"
)

var validate = newValidator()

var (
	nameRe    = regexp.MustCompile(`^[a-zA-ZąćęłńóśźżĄĆĘŁŃÓŚŹŻ\s'-]+$`)
	phoneRe   = regexp.MustCompile(`^[45678]\d{8}$`)
	pinRe     = regexp.MustCompile(`^\d{6}$`)
	specialRe = regexp.MustCompile(`[#?!@$%^&*-]`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return strings.TrimSpace(name) != "" && nameRe.MatchString(name)
	})
	v.RegisterValidation("phone_pl", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinRe.MatchString(fl.Field().String())
	})
	// Go's regexp has no lookahead, so password strength is checked
	// programmatically: >=8 chars with upper, lower, digit and special.
	v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		pwd := fl.Field().String()
		if len(pwd) < 8 {
			return false
		}
		var upper, lower, digit bool
		for _, r := range pwd {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return upper && lower && digit && specialRe.MatchString(pwd)
	})

	return v
}

// firstViolation maps a validator result to an ErrValidation naming the
// first failing field, or nil when the input is valid.
func firstViolation(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	fe := verrs[0]
	return fmt.Errorf("%w: field %s: %s", errs.ErrValidation, fe.Field(), violationMsg(fe))
}

func violationMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "person_name":
		return "must be non-empty and contain only letters, spaces, hyphens or apostrophes"
	case "phone_pl":
		return "must be 9 digits starting with 4-8"
	case "password_strength":
		return "must be at least 8 characters with an uppercase letter, lowercase letter, digit and special character"
	case "pin":
		return "must be exactly 6 digits"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "invalid value"
	}
}

// validatePIN checks the 6-digit PIN format used by accounts.
func validatePIN(pin string) error {
	if !pinRe.MatchString(pin) {
		return fmt.Errorf("%w: PIN must be exactly 6 digits", errs.ErrValidation)
	}
	return nil
}
