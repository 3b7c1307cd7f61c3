package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

const (
	MaxJobSpecTextLength = 50000
	MaxExtraPromptLength = 2000
)

// UserAdditionalContext is the caller's tailoring request. It is validated
// strictly; an invalid shape is rejected rather than coerced.
type UserAdditionalContext struct {
	JobSpecSource  JobSpecSource `json:"jobSpecSource" validate:"required,oneof=upload pasted"`
	JobSpecText    string        `json:"jobSpecText,omitempty" validate:"required_if=JobSpecSource pasted,max=50000"`
	JobSpecFileURL string        `json:"jobSpecFileUrl,omitempty" validate:"required_if=JobSpecSource upload"`
	Tone           Tone          `json:"tone" validate:"required,oneof=Formal Neutral Creative"`
	ExtraPrompt    string        `json:"extraPrompt,omitempty" validate:"max=2000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// Validate checks the context against its declared constraints.
func (c *UserAdditionalContext) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidContext,
			describeValidation(err), err)
	}
	if c.JobSpecFileURL != "" {
		if err := validate.Var(c.JobSpecFileURL, "url"); err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidContext,
				"jobSpecFileUrl must be a valid URL", err)
		}
	}
	return nil
}

// DecodeAdditionalContext decodes and validates a JSON context document.
// Unknown fields are rejected.
func DecodeAdditionalContext(data []byte) (*UserAdditionalContext, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var c UserAdditionalContext
	if err := dec.Decode(&c); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidContext,
			"additional context is not a valid document", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			parts = append(parts, fmt.Sprintf("%s is required", jsonName(fe.Field())))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", jsonName(fe.Field()), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds %s characters", jsonName(fe.Field()), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", jsonName(fe.Field()), fe.Tag()))
		}
	}
	return "invalid additional context: " + strings.Join(parts, "; ")
}

func jsonName(field string) string {
	switch field {
	case "JobSpecFileURL":
		return "jobSpecFileUrl"
	case "":
		return field
	default:
		return strings.ToLower(field[:1]) + field[1:]
	}
}
