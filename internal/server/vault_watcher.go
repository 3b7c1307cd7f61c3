package server

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

// keySource is the part of the Vault client the key watcher reads.
type keySource interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// KeyWatcher polls the Vault secret holding the server API keys and swaps
// the accepted keys in when the secret version changes.
type KeyWatcher struct {
	mu sync.Mutex

	client       keySource
	secretPath   string
	pollInterval time.Duration
	keys         *APIKeySet
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
}

// NewKeyWatcher creates a watcher updating keys from secretPath.
func NewKeyWatcher(client keySource, secretPath string, pollInterval time.Duration, keys *APIKeySet, logger *errors.Logger) *KeyWatcher {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &KeyWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		keys:         keys,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// newKeyWatcher returns nil when Vault key polling is not configured.
func (s *Server) newKeyWatcher() (*KeyWatcher, error) {
	if s.AppConfig == nil {
		return nil, nil
	}
	vc := s.AppConfig.Vault
	if !vc.Enabled || vc.Secrets.APIKeys == "" || vc.KeyPollInterval <= 0 {
		return nil, nil
	}
	client, err := config.NewVaultClient(vc, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client for key polling: %w", err)
	}
	return NewKeyWatcher(client, vc.Secrets.APIKeys, vc.KeyPollInterval, s.APIKeys, s.Logger), nil
}

// Start records the current secret version and begins polling.
func (kw *KeyWatcher) Start() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if kw.running {
		return fmt.Errorf("key watcher is already running")
	}
	if secret, err := kw.client.GetSecretV2(kw.secretPath); err == nil {
		kw.lastVersion = secret.Version
	}
	kw.running = true
	go kw.pollLoop()
	kw.logger.Info("API key watcher started", "secret_path", kw.secretPath, "poll_interval", kw.pollInterval)
	return nil
}

// Stop stops polling
func (kw *KeyWatcher) Stop() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if !kw.running {
		return nil
	}
	close(kw.stopChan)
	kw.running = false
	return nil
}

func (kw *KeyWatcher) pollLoop() {
	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := kw.poll(); err != nil {
				kw.logger.LogError(err, "Failed to refresh API keys from Vault")
			}
		case <-kw.stopChan:
			return
		}
	}
}

// poll reloads the keys when the secret version moved forward. It reports
// whether the keys were replaced. An empty key list is ignored so a bad
// write cannot disable authentication.
func (kw *KeyWatcher) poll() (bool, error) {
	secret, err := kw.client.GetSecretV2(kw.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}

	kw.mu.Lock()
	changed := secret.Version > kw.lastVersion
	kw.mu.Unlock()
	if !changed {
		return false, nil
	}

	keys, err := kw.client.GetStringSliceSecret(kw.secretPath, "keys")
	if err != nil {
		return false, fmt.Errorf("failed to read API keys: %w", err)
	}
	keys = slices.DeleteFunc(keys, func(k string) bool { return strings.TrimSpace(k) == "" })
	if len(keys) == 0 {
		kw.logger.Warn("Vault API key secret is empty, keeping current keys", "version", secret.Version)
		return false, nil
	}

	kw.keys.Replace(keys)
	kw.mu.Lock()
	kw.lastVersion = secret.Version
	kw.mu.Unlock()
	kw.logger.Info("API keys reloaded from Vault", "count", len(keys), "version", secret.Version)
	return true, nil
}

// Status returns the watcher state for diagnostics
func (kw *KeyWatcher) Status() map[string]any {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	return map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
	}
}
