package formatters

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// Data type keys
const (
	TypeAny            = "any"
	TypeParseResult    = "ParseResult"
	TypeJobSpecResult  = "JobSpecResult"
	TypeTailorResult   = "TailorResult"
	TypePipelineResult = "PipelineResult"
	TypeRecord         = "Record"
)

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	for _, style := range []style{textStyle, markdownStyle} {
		registry.RegisterFormatter(style.name, TypeParseResult, &ParseFormatter{style: style})
		registry.RegisterFormatter(style.name, TypeJobSpecResult, &JobSpecFormatter{style: style})
		registry.RegisterFormatter(style.name, TypeTailorResult, &TailorFormatter{style: style})
		registry.RegisterFormatter(style.name, TypePipelineResult, &PipelineFormatter{style: style})
		registry.RegisterFormatter(style.name, TypeRecord, &RecordFormatter{style: style})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ParseResult:
		return TypeParseResult
	case types.JobSpecResult:
		return TypeJobSpecResult
	case types.TailorResult:
		return TypeTailorResult
	case pipeline.PipelineResult:
		return TypePipelineResult
	case store.Record:
		return TypeRecord
	default:
		return TypeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// GlobalRegistry is the registry used by the CLI output handler.
var GlobalRegistry = NewFormatterRegistry()
