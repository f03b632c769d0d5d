package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"products-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies for product writes
const maxBodyBytes = 1 << 20

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DecodeAttributes decodes a JSON object request body. Numbers are kept as
// json.Number until the schema decides their type.
func DecodeAttributes(w http.ResponseWriter, r *http.Request) (domain.Attributes, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var attrs domain.Attributes
	if err := dec.Decode(&attrs); err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if dec.More() {
		return nil, errors.New("request body must contain a single JSON object")
	}

	return attrs, nil
}

// ValidateAttributes checks attrs against schema and returns them with
// values converted to their declared types. In partial mode required fields
// may be omitted but not set to null.
func ValidateAttributes(schema domain.ProductSchema, attrs domain.Attributes, partial bool) (domain.Attributes, []ValidationError) {
	var errs []ValidationError
	out := make(domain.Attributes, len(attrs))

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if domain.IsReservedField(key) {
			errs = append(errs, ValidationError{Field: key, Message: "This field is read-only"})
			continue
		}

		field, ok := schema.Field(key)
		if !ok {
			errs = append(errs, ValidationError{Field: key, Message: "Unknown field"})
			continue
		}

		raw := attrs[key]
		if raw == nil {
			if field.Required {
				errs = append(errs, ValidationError{Field: key, Message: "This field is required"})
				continue
			}
			out[key] = nil
			continue
		}

		value, err := coerce(field.Type, raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: key, Message: err.Error()})
			continue
		}

		if field.Rules != "" {
			if err := validate.Var(value, field.Rules); err != nil {
				errs = append(errs, formatFieldErrors(key, err)...)
				continue
			}
		}

		out[key] = value
	}

	if !partial {
		for _, field := range schema.Fields {
			if _, present := attrs[field.Name]; field.Required && !present {
				errs = append(errs, ValidationError{Field: field.Name, Message: "This field is required"})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// coerce converts a decoded JSON value to the Go type of t
func coerce(t domain.FieldType, raw interface{}) (interface{}, error) {
	switch t {
	case domain.FieldTypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case domain.FieldTypeBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case domain.FieldTypeNumber:
		if n, ok := raw.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, errors.New("Value is out of range")
			}
			return f, nil
		}
	case domain.FieldTypeInteger:
		if n, ok := raw.(json.Number); ok {
			i, err := n.Int64()
			if err != nil {
				return nil, errors.New("Value must be an integer")
			}
			return i, nil
		}
	}
	return nil, fmt.Errorf("Value must be of type %s", t)
}

func formatFieldErrors(field string, err error) []ValidationError {
	var errs []ValidationError
	for _, e := range FormatValidationErrors(err) {
		e.Field = field
		errs = append(errs, e)
	}
	if len(errs) == 0 {
		errs = append(errs, ValidationError{Field: field, Message: "Invalid value"})
	}
	return errs
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return errors
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "url":
		return "Invalid URL format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	case "oneof":
		return "Value must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}

// CheckSchemaRules reports rule tags the validator cannot parse, so a bad
// schema file fails at startup rather than on the first request
func CheckSchemaRules(schema domain.ProductSchema) error {
	for _, field := range schema.Fields {
		if field.Rules == "" {
			continue
		}
		if err := checkRules(field); err != nil {
			return err
		}
	}
	return nil
}

func checkRules(field domain.FieldSpec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("field %q has invalid rules %q: %v", field.Name, field.Rules, r)
		}
	}()

	var zero interface{}
	switch field.Type {
	case domain.FieldTypeString:
		zero = ""
	case domain.FieldTypeNumber:
		zero = float64(0)
	case domain.FieldTypeInteger:
		zero = int64(0)
	case domain.FieldTypeBoolean:
		zero = false
	}

	// only a panic matters here; a failing zero value is expected
	_ = validate.Var(zero, field.Rules)
	return nil
}
