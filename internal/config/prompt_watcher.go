package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

// PromptWatcher reloads prompt files when they change on disk. Events are
// debounced so an editor's write-rename sequence triggers one reload.
type PromptWatcher struct {
	mu sync.Mutex

	cfg   *Config
	files map[string]time.Time // absolute path -> last seen mod time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	onReload   func(error)
	logger     *errors.Logger

	running bool
}

// NewPromptWatcher creates a watcher over the prompt files named in cfg.
// onReload, when set, receives the outcome of every reload.
func NewPromptWatcher(cfg *Config, debounceDelay time.Duration, onReload func(error), logger *errors.Logger) *PromptWatcher {
	if debounceDelay == 0 {
		debounceDelay = 500 * time.Millisecond
	}
	files := map[string]time.Time{}
	for _, p := range cfg.PromptFilePaths() {
		if abs, err := filepath.Abs(p); err == nil {
			files[abs] = time.Time{}
		}
	}
	return &PromptWatcher{
		cfg:           cfg,
		files:         files,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onReload:      onReload,
		logger:        logger,
	}
}

// Files returns the watched prompt files.
func (pw *PromptWatcher) Files() []string {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	out := make([]string, 0, len(pw.files))
	for f := range pw.files {
		out = append(out, f)
	}
	return out
}

// Start begins watching. It is a no-op when no prompt files are configured.
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(pw.files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	// Watch directories so atomic replace-by-rename is seen.
	dirs := map[string]bool{}
	for file := range pw.files {
		if stat, err := os.Stat(file); err == nil {
			pw.files[file] = stat.ModTime()
		}
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil && pw.logger != nil {
			pw.logger.Warn("Failed to watch prompt directory", "directory", dir, "error", err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher started", "files", len(pw.files), "debounce_delay", pw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}
	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false
	return pw.fsWatcher.Close()
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.isWatched(event) {
				pw.scheduleReload()
			}
		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			if pw.logger != nil {
				pw.logger.LogError(err, "Prompt watcher error")
			}
		case <-pw.reloadChan:
			if pw.changed() {
				pw.reload()
			}
		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) isWatched(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	pw.mu.Lock()
	_, ok := pw.files[abs]
	pw.mu.Unlock()
	return ok
}

// changed refreshes the stored mod times and reports whether any moved.
func (pw *PromptWatcher) changed() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	moved := false
	for file, last := range pw.files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}
		if !stat.ModTime().Equal(last) {
			pw.files[file] = stat.ModTime()
			moved = true
		}
	}
	return moved
}

func (pw *PromptWatcher) reload() {
	err := pw.cfg.LoadPromptsFromFiles()
	if pw.logger != nil {
		if err != nil {
			pw.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
		} else {
			pw.logger.Info("Prompt files reloaded")
		}
	}
	if pw.onReload != nil {
		pw.onReload(err)
	}
}

func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
