package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile binds one configured prompt path to the slot it loads into.
type promptFile struct {
	path      string
	promptTyp string // "system" or "user"
	name      string
	target    *string
}

func promptFilesOf(set PromptSet, promptType string, target *LoadedPromptSet) []promptFile {
	return []promptFile{
		{set.ParseResumeFile, promptType, "parseResume", &target.ParseResume},
		{set.ParseResumePDFFile, promptType, "parseResumePdf", &target.ParseResumePDF},
		{set.ExtractJobSpecFile, promptType, "extractJobSpec", &target.ExtractJobSpec},
		{set.TailorResumeFile, promptType, "tailorResume", &target.TailorResume},
	}
}

// promptFiles lists every prompt slot with its target inside all.
func (c *Config) promptFiles(all *AllLoadedPrompts) []promptFile {
	var files []promptFile
	add := func(cfg PromptConfig, target *OperationLoadedPrompts) {
		files = append(files, promptFilesOf(cfg.SystemPrompts, "system", &target.SystemPrompts)...)
		files = append(files, promptFilesOf(cfg.UserPrompts, "user", &target.UserPrompts)...)
	}
	add(c.AI.CustomPrompts, &all.Global)
	add(c.AI.Parse.CustomPrompts, &all.Parse)
	add(c.AI.JobSpec.CustomPrompts, &all.JobSpec)
	add(c.AI.Tailor.CustomPrompts, &all.Tailor)
	return files
}

// PromptFilePaths returns the distinct prompt files named in the config.
func (c *Config) PromptFilePaths() []string {
	var scratch AllLoadedPrompts
	seen := map[string]bool{}
	var paths []string
	for _, f := range c.promptFiles(&scratch) {
		if f.path == "" || seen[f.path] {
			continue
		}
		seen[f.path] = true
		paths = append(paths, f.path)
	}
	return paths
}

// LoadPromptsFromFiles reads every configured prompt file and publishes the
// result. On error the previously loaded prompts stay in place.
func (c *Config) LoadPromptsFromFiles() error {
	var next AllLoadedPrompts
	count := 0

	for _, f := range c.promptFiles(&next) {
		if f.path == "" {
			continue
		}
		content, err := loadPromptFromFile(f.path, f.promptTyp, f.name)
		if err != nil {
			return err
		}
		*f.target = content
		count++
	}

	setLoadedPrompts(next)

	if count == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", count)
	}
	return nil
}

// loadPromptFromFile reads a prompt file and rejects empty content
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmed))
	return trimmed, nil
}

// validatePromptFiles checks that every configured prompt file exists before
// any of them is loaded, so all problems are reported at once.
func (c *Config) validatePromptFiles() error {
	var validationErrors []string
	var scratch AllLoadedPrompts

	for _, f := range c.promptFiles(&scratch) {
		if f.path == "" {
			continue
		}
		absPath, err := filepath.Abs(f.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", f.promptTyp, f.name, f.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", f.promptTyp, f.name, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
