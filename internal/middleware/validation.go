package middleware

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "spiroexport/internal/errors"
)

// Validator validates request structs with field names taken from their
// query or json tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their wire name
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{validate: v}
}

// ValidateStruct validates v and returns an APIError listing every failed field
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", field, lowerSnake(param))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// lowerSnake maps a Go field name such as AgeMin or BMIMin to age_min or bmi_min.
func lowerSnake(s string) string {
	isUpper := func(c byte) bool { return c >= 'A' && c <= 'Z' }

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUpper(c) {
			if i > 0 && (!isUpper(s[i-1]) || (i+1 < len(s) && !isUpper(s[i+1]))) {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// QueryParams reads typed query parameters, falling back to defaults when a
// parameter is absent.
type QueryParams struct {
	r *http.Request
}

// Query wraps the query string of r.
func Query(r *http.Request) QueryParams {
	return QueryParams{r: r}
}

// Float parses param as a finite float.
func (q QueryParams) Float(param string, defaultValue float64) (float64, error) {
	value := q.r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a number", param))
	}
	return f, nil
}

// Enum returns param if it is one of allowed.
func (q QueryParams) Enum(param string, allowed []string, defaultValue string) (string, error) {
	value := q.r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, nil
	}

	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", ")))
}
