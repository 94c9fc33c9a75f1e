package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each offending field to its first message.
func (e *ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, err := range e.Errors {
		if _, ok := out[err.Field]; !ok {
			out[err.Field] = err.Message
		}
	}
	return out
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(data map[string]interface{}, schema map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("evaluating schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var validationErrors []ValidationError
	for _, desc := range result.Errors() {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldOf(desc),
			Message: messageOf(desc),
		})
	}
	sort.SliceStable(validationErrors, func(i, j int) bool {
		return validationErrors[i].Field < validationErrors[j].Field
	})
	return &ValidationErrors{Errors: validationErrors}
}

// Missing properties are reported against the object, so the name comes from the details.
func fieldOf(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	return desc.Field()
}

func messageOf(desc gojsonschema.ResultError) string {
	switch desc.Type() {
	case "required", "string_gte", "array_min_items":
		return "is required"
	case "pattern":
		return "has an invalid format"
	default:
		return desc.Description()
	}
}

func GetValidationErrors(err error) *ValidationErrors {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
