package common

import (
	"fmt"
	"slices"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/formatters"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ResolveOutputFormat applies the configured default to an empty --format
// flag and validates the result.
func ResolveOutputFormat(flag string, app config.AppConfig) (string, error) {
	format := flag
	if format == "" {
		format = app.DefaultFormat
	}
	if format == "" {
		format = "json"
	}
	if err := ValidateOutputFormat(format, app.SupportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// GetSupportedFormats returns the configured formats, or every registered
// formatter when none are configured.
func GetSupportedFormats(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return formatters.GlobalRegistry.GetSupportedFormats()
}
