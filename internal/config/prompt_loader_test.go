package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write prompt file: %v", err)
	}
	return path
}

func TestLoadPromptsFromFiles(t *testing.T) {
	t.Cleanup(resetLoadedPrompts)
	dir := t.TempDir()

	globalSystem := writePrompt(t, dir, "system.md", "Global system prompt")
	tailorUser := writePrompt(t, dir, "user.tailor.md", "Tailor user prompt")

	config := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{SystemPrompts: PromptSet{TailorResumeFile: globalSystem, ParseResumeFile: globalSystem}},
			Tailor: OperationAIConfig{
				CustomPrompts: PromptConfig{UserPrompts: PromptSet{TailorResumeFile: tailorUser}},
			},
		},
	}

	if err := config.LoadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	tailor := GetPromptsForOperation(OperationTailor)
	if tailor.UserPrompts.TailorResume != "Tailor user prompt" {
		t.Errorf("Expected tailor user prompt from file, got %q", tailor.UserPrompts.TailorResume)
	}
	if tailor.SystemPrompts.TailorResume != "Global system prompt" {
		t.Errorf("Expected global system prompt fallback, got %q", tailor.SystemPrompts.TailorResume)
	}

	parse := GetPromptsForOperation(OperationParse)
	if parse.SystemPrompts.ParseResume != "Global system prompt" {
		t.Errorf("Expected global parse prompt, got %q", parse.SystemPrompts.ParseResume)
	}
	if parse.UserPrompts.TailorResume != "" {
		t.Errorf("Tailor user prompt leaked into parse operation: %q", parse.UserPrompts.TailorResume)
	}
}

func TestLoadPromptsFromFilesKeepsPreviousOnError(t *testing.T) {
	t.Cleanup(resetLoadedPrompts)
	dir := t.TempDir()
	path := writePrompt(t, dir, "jobspec.md", "First version")

	config := &Config{AI: AIConfig{JobSpec: OperationAIConfig{
		CustomPrompts: PromptConfig{UserPrompts: PromptSet{ExtractJobSpecFile: path}},
	}}}
	if err := config.LoadPromptsFromFiles(); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	writePrompt(t, dir, "jobspec.md", "   \n")
	if err := config.LoadPromptsFromFiles(); err == nil {
		t.Fatal("Expected error for empty prompt file")
	}

	got := GetPromptsForOperation(OperationJobSpec).UserPrompts.ExtractJobSpec
	if got != "First version" {
		t.Errorf("Expected previous prompt to survive a failed reload, got %q", got)
	}
}

func TestValidatePromptFiles(t *testing.T) {
	dir := t.TempDir()
	valid := writePrompt(t, dir, "valid.md", "Valid content")

	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{name: "no files", config: &Config{}},
		{
			name: "existing file",
			config: &Config{AI: AIConfig{CustomPrompts: PromptConfig{
				SystemPrompts: PromptSet{ParseResumeFile: valid},
			}}},
		},
		{
			name: "missing operation file",
			config: &Config{AI: AIConfig{Parse: OperationAIConfig{CustomPrompts: PromptConfig{
				UserPrompts: PromptSet{ParseResumePDFFile: filepath.Join(dir, "missing.md")},
			}}}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validatePromptFiles()
			if tt.expectError && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestPromptFilePathsDeduplicates(t *testing.T) {
	config := &Config{AI: AIConfig{
		CustomPrompts: PromptConfig{SystemPrompts: PromptSet{ParseResumeFile: "a.md", TailorResumeFile: "a.md"}},
		Tailor:        OperationAIConfig{CustomPrompts: PromptConfig{UserPrompts: PromptSet{TailorResumeFile: "b.md"}}},
	}}
	paths := config.PromptFilePaths()
	if strings.Join(paths, ",") != "a.md,b.md" {
		t.Errorf("Unexpected prompt paths: %v", paths)
	}
}

func TestPromptWatcherReloadsOnChange(t *testing.T) {
	t.Cleanup(resetLoadedPrompts)
	dir := t.TempDir()
	path := writePrompt(t, dir, "tailor.md", "Before")

	config := &Config{AI: AIConfig{Tailor: OperationAIConfig{
		CustomPrompts: PromptConfig{SystemPrompts: PromptSet{TailorResumeFile: path}},
	}}}
	if err := config.LoadPromptsFromFiles(); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	reloaded := make(chan error, 4)
	watcher := NewPromptWatcher(config, 20*time.Millisecond, func(err error) { reloaded <- err }, nil)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer func() { _ = watcher.Stop() }()

	// Make sure the new mod time differs on coarse-grained filesystems.
	future := time.Now().Add(2 * time.Second)
	writePrompt(t, dir, "tailor.md", "After")
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for prompt reload")
	}

	if got := GetPromptsForOperation(OperationTailor).SystemPrompts.TailorResume; got != "After" {
		t.Errorf("Expected reloaded prompt, got %q", got)
	}
}

func TestPromptWatcherWithoutFiles(t *testing.T) {
	watcher := NewPromptWatcher(&Config{}, 0, nil, nil)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start without files should be a no-op: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(watcher.Files()) != 0 {
		t.Errorf("Expected no watched files, got %v", watcher.Files())
	}
}
