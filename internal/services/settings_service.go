package services

import (
	"aichat-relay/internal/models"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// SettingsRepository persists the session configuration.
type SettingsRepository interface {
	LoadSettings(ctx context.Context, defaults models.Settings) (models.Settings, error)
	SaveSettings(ctx context.Context, s models.Settings) error
}

// SettingsService owns the single process-wide Settings instance.
type SettingsService struct {
	mu       sync.RWMutex
	repo     SettingsRepository
	defaults models.Settings
	current  models.Settings
}

// NewSettingsService creates a SettingsService holding the defaults until Load is called.
func NewSettingsService(repo SettingsRepository) *SettingsService {
	defaults := models.DefaultSettings()
	return &SettingsService{repo: repo, defaults: defaults, current: defaults}
}

// Load reads persisted settings, falling back to defaults.
func (s *SettingsService) Load(ctx context.Context) error {
	loaded, err := s.repo.LoadSettings(ctx, s.defaults)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	log.Printf("[SettingsService] Loaded settings: Endpoint=%s, Model=%s, UseProxy=%t, APIKey=%s",
		loaded.Endpoint, loaded.Model, loaded.UseProxy, MaskSecret(loaded.APIKey))
	return nil
}

// Get returns a copy of the current settings.
func (s *SettingsService) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// HasCredential reports whether an API key is configured.
func (s *SettingsService) HasCredential() bool {
	return s.Get().APIKey != ""
}

// Update trims every field, replaces blanks with defaults, and persists the result.
// The in-memory value is updated even if persisting fails.
func (s *SettingsService) Update(ctx context.Context, next models.Settings) (models.Settings, error) {
	next.APIKey = strings.TrimSpace(next.APIKey)
	next.Endpoint = orDefault(strings.TrimSpace(next.Endpoint), s.defaults.Endpoint)
	next.Model = orDefault(strings.TrimSpace(next.Model), s.defaults.Model)
	next.RolePrompt = orDefault(strings.TrimSpace(next.RolePrompt), s.defaults.RolePrompt)

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	if err := s.repo.SaveSettings(ctx, next); err != nil {
		log.Printf("ERROR [SettingsService] Update: failed to persist settings: %v", err)
		return next, fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsService] Saved settings: Endpoint=%s, Model=%s, UseProxy=%t", next.Endpoint, next.Model, next.UseProxy)
	return next, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// MaskSecret keeps only the last four characters of a credential for display.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	runes := []rune(secret)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
