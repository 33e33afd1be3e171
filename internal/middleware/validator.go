package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// Validate checks `validate` struct tags and flattens the first failure into
// a client-facing message.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "notblank":
			return fmt.Errorf("%s is required", strings.ToLower(fe.Field()))
		case "max":
			return fmt.Errorf("%s exceeds %s characters", strings.ToLower(fe.Field()), fe.Param())
		default:
			return fmt.Errorf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag())
		}
	}
	return err
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// MaxPage bounds page numbers so page*limit offsets stay small.
const MaxPage = 100000

// ValidatePage clamps a 1-based page number to [1, MaxPage]
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}
