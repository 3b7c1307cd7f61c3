package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   string
	}{
		{name: "json", format: "json", supported: supported},
		{name: "markdown", format: "markdown", supported: supported},
		{name: "xml rejected", format: "xml", supported: supported,
			wantErr: "unsupported output format 'xml'. Supported formats: [json text markdown]"},
		{name: "case sensitive", format: "JSON", supported: supported,
			wantErr: "unsupported output format 'JSON'. Supported formats: [json text markdown]"},
		{name: "empty format", format: "", supported: supported,
			wantErr: "unsupported output format ''. Supported formats: [json text markdown]"},
		{name: "no restriction", format: "xml", supported: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
		})
	}
}

func TestResolveOutputFormat(t *testing.T) {
	app := config.AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text", "markdown"}}

	got, err := ResolveOutputFormat("", app)
	require.NoError(t, err)
	assert.Equal(t, "text", got)

	got, err = ResolveOutputFormat("markdown", app)
	require.NoError(t, err)
	assert.Equal(t, "markdown", got)

	got, err = ResolveOutputFormat("", config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, "json", got)

	_, err = ResolveOutputFormat("yaml", app)
	assert.Error(t, err)
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json"}, GetSupportedFormats([]string{"json"}))
	assert.Equal(t, []string{"json", "markdown", "text"}, GetSupportedFormats(nil))
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}
