package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"registration-service/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// fieldValidator checks a present, non-empty value and returns the value to
// store.
type fieldValidator func(field models.Field, value interface{}) (interface{}, error)

var fieldValidators = map[models.FieldType]fieldValidator{
	models.FieldTypeText:     validateString,
	models.FieldTypeTextarea: validateString,
	models.FieldTypeEmail:    validateEmail,
	models.FieldTypeNumber:   validateNumber,
	models.FieldTypeDate:     validateDate,
	models.FieldTypeSelect:   validateSelect,
	models.FieldTypeCheckbox: validateCheckbox,
}

var errUnsupportedType = errors.New("unsupported field type")

// ValidateFieldData checks data against the form's field schema and returns
// the sanitized values. Keys that are not fields of the form are dropped.
// Optional fields that are absent or empty are skipped.
func ValidateFieldData(fields []models.Field, data map[string]interface{}) (map[string]interface{}, *ServiceError) {
	clean := make(map[string]interface{}, len(fields))

	for _, field := range fields {
		value, present := data[field.Name]
		if !present || isEmpty(value) {
			if field.Required {
				return nil, fieldError(field.Name, fmt.Sprintf("The %s field is required.", label(field)))
			}
			continue
		}

		check, ok := fieldValidators[field.Type]
		if !ok {
			return nil, fieldError(field.Name, fmt.Sprintf("The %s field has an %s %q.", label(field), errUnsupportedType, field.Type))
		}
		normalized, err := check(field, value)
		if err != nil {
			return nil, fieldError(field.Name, fmt.Sprintf("The %s field %s.", label(field), err))
		}
		clean[field.Name] = normalized
	}
	return clean, nil
}

func label(field models.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	}
	return false
}

func validateString(_ models.Field, value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.New("must be a string")
	}
	return strings.TrimSpace(s), nil
}

func validateEmail(field models.Field, value interface{}) (interface{}, error) {
	s, err := validateString(field, value)
	if err != nil {
		return nil, err
	}
	if validate.Var(s, "email") != nil {
		return nil, errors.New("must be a valid email address")
	}
	return s, nil
}

// validateNumber accepts finite numbers. Strings must be plain decimals;
// NaN, Inf, hex and underscore forms are rejected.
func validateNumber(_ models.Field, value interface{}) (interface{}, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := parseDecimal(v.String())
		if err != nil {
			return nil, err
		}
		f = parsed
	case string:
		parsed, err := parseDecimal(v)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, errNotANumber
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errNotANumber
	}
	return f, nil
}

var errNotANumber = errors.New("must be a number")

func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if validate.Var(s, "required,numeric") != nil {
		return 0, errNotANumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotANumber
	}
	return f, nil
}

func validateDate(_ models.Field, value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.New("must be a valid date")
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return s, nil
		}
	}
	return nil, errors.New("must be a valid date")
}

func validateSelect(field models.Field, value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.New("must be one of the listed options")
	}
	for _, option := range field.Options {
		if s == option {
			return s, nil
		}
	}
	return nil, errors.New("must be one of the listed options")
}

func validateCheckbox(_ models.Field, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true, nil
		case "false", "off", "0", "no":
			return false, nil
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return nil, errors.New("must be true or false")
}
