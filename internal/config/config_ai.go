package config

// Operation names. They key the per-operation AI config, circuit breakers,
// prompt overrides and metrics labels.
const (
	OperationParse   = "parse"
	OperationJobSpec = "jobspec"
	OperationTailor  = "tailor"
)

// applyOperationDefaults fills unset operation fields from the global config.
// model is the global model this operation falls back to.
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig, model string) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.UseSystemPrompts == nil {
		use := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &use
	}
	opCfg.CustomPrompts.SystemPrompts = mergePromptSet(opCfg.CustomPrompts.SystemPrompts, c.AI.CustomPrompts.SystemPrompts)
	opCfg.CustomPrompts.UserPrompts = mergePromptSet(opCfg.CustomPrompts.UserPrompts, c.AI.CustomPrompts.UserPrompts)
}

// mergePromptSet fills empty entries of op from global.
func mergePromptSet(op, global PromptSet) PromptSet {
	pick := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	pick(&op.ParseResume, global.ParseResume)
	pick(&op.ParseResumeFile, global.ParseResumeFile)
	pick(&op.ParseResumePDF, global.ParseResumePDF)
	pick(&op.ParseResumePDFFile, global.ParseResumePDFFile)
	pick(&op.ExtractJobSpec, global.ExtractJobSpec)
	pick(&op.ExtractJobSpecFile, global.ExtractJobSpecFile)
	pick(&op.TailorResume, global.TailorResume)
	pick(&op.TailorResumeFile, global.TailorResumeFile)
	return op
}

// GetParseConfig returns the AI configuration for resume parsing (text and
// PDF). It runs on the primary model.
func (c *Config) GetParseConfig() OperationAIConfig {
	config := c.AI.Parse
	c.applyOperationDefaults(&config, c.AI.PrimaryModel)
	return config
}

// GetJobSpecConfig returns the AI configuration for job spec extraction. It
// runs on the lightweight model.
func (c *Config) GetJobSpecConfig() OperationAIConfig {
	config := c.AI.JobSpec
	c.applyOperationDefaults(&config, c.AI.LightModel)
	return config
}

// GetTailorConfig returns the AI configuration for tailoring
func (c *Config) GetTailorConfig() OperationAIConfig {
	config := c.AI.Tailor
	c.applyOperationDefaults(&config, c.AI.PrimaryModel)
	return config
}

// GetOperationConfig returns the configuration for a named operation.
func (c *Config) GetOperationConfig(operation string) (OperationAIConfig, bool) {
	switch operation {
	case OperationParse:
		return c.GetParseConfig(), true
	case OperationJobSpec:
		return c.GetJobSpecConfig(), true
	case OperationTailor:
		return c.GetTailorConfig(), true
	default:
		return OperationAIConfig{}, false
	}
}
