package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AI:       AIConfig{APIKey: "key", Timeout: time.Minute, PrimaryModel: "primary", LightModel: "light"},
		Pipeline: PipelineConfig{AIParsingEnabled: true, JobTailoringEnabled: true},
		Store:    StoreConfig{Driver: "memory"},
		Server:   ServerConfig{Port: "8080"},
		App:      AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}, MaxFileSize: 1024},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing key with AI on", mutate: func(c *Config) { c.AI.APIKey = "" }, wantErr: "API key"},
		{
			name: "missing key with AI off",
			mutate: func(c *Config) {
				c.AI.APIKey = ""
				c.Pipeline = PipelineConfig{}
			},
		},
		{name: "bad timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "timeout"},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "databaseUrl"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "store driver"},
		{
			name: "redis without addr",
			mutate: func(c *Config) {
				c.Store.Redis.Enabled = true
				c.Store.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{name: "bad format", mutate: func(c *Config) { c.App.DefaultFormat = "yaml" }, wantErr: "default format"},
		{name: "no max size", mutate: func(c *Config) { c.App.MaxFileSize = 0 }, wantErr: "maxFileSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOperationConfigFallbacks(t *testing.T) {
	tailorTemp := float32(0.4)
	c := validConfig()
	c.AI.Provider = "gemini"
	c.AI.Temperature = 0.2
	c.AI.MaxRetries = 0
	c.AI.UseSystemPrompts = true
	c.AI.CustomPrompts.SystemPrompts.TailorResume = "global system"
	c.AI.Tailor = OperationAIConfig{
		Temperature:   &tailorTemp,
		CustomPrompts: PromptConfig{UserPrompts: PromptSet{TailorResume: "tailor user"}},
	}
	c.AI.JobSpec = OperationAIConfig{Model: "custom-light"}

	parse := c.GetParseConfig()
	assert.Equal(t, "gemini", parse.Provider)
	assert.Equal(t, "primary", parse.Model)
	assert.Equal(t, "key", parse.APIKey)
	assert.Equal(t, time.Minute, *parse.Timeout)
	assert.Equal(t, 0, *parse.MaxRetries)
	assert.Equal(t, float32(0.2), *parse.Temperature)
	assert.True(t, *parse.UseSystemPrompts)

	assert.Equal(t, "custom-light", c.GetJobSpecConfig().Model)
	c.AI.JobSpec.Model = ""
	assert.Equal(t, "light", c.GetJobSpecConfig().Model)

	tailor := c.GetTailorConfig()
	assert.Equal(t, "primary", tailor.Model)
	assert.Equal(t, float32(0.4), *tailor.Temperature)
	assert.Equal(t, "global system", tailor.CustomPrompts.SystemPrompts.TailorResume)
	assert.Equal(t, "tailor user", tailor.CustomPrompts.UserPrompts.TailorResume)

	// The operation view must not alias the global values.
	*parse.Timeout = time.Second
	assert.Equal(t, time.Minute, c.AI.Timeout)

	_, ok := c.GetOperationConfig("evaluate")
	assert.False(t, ok)
}

func TestLoadConfigFile(t *testing.T) {
	t.Cleanup(resetLoadedPrompts)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
ai:
  apiKey: file-key
  primaryModel: gemini-pro-test
  tailor:
    temperature: 0.9
    circuitBreaker:
      failureThreshold: 0.5
pipeline:
  pdfTextFallback: true
store:
  driver: Postgres
  databaseUrl: postgres://localhost/cv
server:
  apiKeys: ["a", "b"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	c, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", c.AI.APIKey)
	assert.Equal(t, "gemini-pro-test", c.GetParseConfig().Model)
	assert.Equal(t, "gemini-2.5-flash-lite", c.GetJobSpecConfig().Model)
	assert.InDelta(t, 0.9, float64(*c.GetTailorConfig().Temperature), 0.001)
	assert.InDelta(t, 0.5, c.AI.Tailor.CircuitBreaker.FailureThreshold, 0.001)
	assert.True(t, c.AI.Tailor.CircuitBreaker.Enabled)
	assert.True(t, c.Pipeline.AIParsingEnabled)
	assert.True(t, c.Pipeline.PDFTextFallback)
	assert.Equal(t, "postgres", c.Store.Driver)
	assert.Equal(t, []string{"a", "b"}, c.Server.APIKeys)
	assert.Equal(t, int64(10*1024*1024), c.App.MaxFileSize)
	assert.NotEmpty(t, c.Observability.ServiceInstance)
}

func TestLoadConfigFileEnvOverride(t *testing.T) {
	t.Cleanup(resetLoadedPrompts)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  apiKey: file-key\n"), 0600))

	t.Setenv("CVPARSER_AI_APIKEY", "env-key")
	t.Setenv("CVPARSER_PIPELINE_JOBTAILORINGENABLED", "false")

	c, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.AI.APIKey)
	assert.False(t, c.Pipeline.JobTailoringEnabled)
}

func TestApplyServerAPIKeyFallbacks(t *testing.T) {
	c := &Config{Server: ServerConfig{APIKeys: []string{"k1, k2,,k3"}}}
	c.applyServerAPIKeyFallbacks()
	assert.Equal(t, []string{"k1", "k2", "k3"}, c.Server.APIKeys)
}
