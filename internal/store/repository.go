package store

import (
	"aichat-relay/internal/crypto"
	"aichat-relay/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
)

// ErrCorruptDocument is returned when the stored conversation mapping cannot be parsed.
var ErrCorruptDocument = errors.New("stored conversations document is corrupt")

// Repository maps application state onto a KV backend.
type Repository struct {
	kv     KV
	sealer *crypto.Sealer // nil means credentials are stored as plain text
}

// NewRepository creates a Repository. sealer may be nil.
func NewRepository(kv KV, sealer *crypto.Sealer) *Repository {
	return &Repository{kv: kv, sealer: sealer}
}

// getOr returns the stored value for key, or fallback when it is absent or empty.
func (r *Repository) getOr(ctx context.Context, key, fallback string) (string, error) {
	v, err := r.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) || (err == nil && v == "") {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// LoadSettings reads the session configuration, falling back to defaults for
// anything never saved (or saved empty).
func (r *Repository) LoadSettings(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	var (
		s   models.Settings
		err error
	)

	if s.APIKey, err = r.getOr(ctx, KeyAPIKey, defaults.APIKey); err != nil {
		return s, err
	}
	if s.Endpoint, err = r.getOr(ctx, KeyEndpoint, defaults.Endpoint); err != nil {
		return s, err
	}
	if s.Model, err = r.getOr(ctx, KeyModel, defaults.Model); err != nil {
		return s, err
	}
	if s.RolePrompt, err = r.getOr(ctx, KeyRolePrompt, defaults.RolePrompt); err != nil {
		return s, err
	}

	useProxy, err := r.kv.Get(ctx, KeyUseProxy)
	switch {
	case errors.Is(err, ErrNotFound):
		s.UseProxy = defaults.UseProxy
	case err != nil:
		return s, fmt.Errorf("failed to read %s: %w", KeyUseProxy, err)
	default:
		// Anything but an explicit "false" keeps the relay on.
		s.UseProxy = useProxy != "false"
	}

	if crypto.IsSealed(s.APIKey) {
		s.APIKey = r.openCredential(s.APIKey)
	}

	return s, nil
}

// openCredential decrypts a sealed API key. An unreadable key is treated as
// absent so the user is asked for it again.
func (r *Repository) openCredential(sealed string) string {
	if r.sealer == nil {
		log.Println("WARN [Repository] LoadSettings: stored API key is encrypted but no passphrase is configured")
		return ""
	}
	plain, err := r.sealer.Open(sealed)
	if err != nil {
		log.Printf("WARN [Repository] LoadSettings: failed to decrypt stored API key: %v", err)
		return ""
	}
	return plain
}

// SaveSettings writes all five configuration keys.
func (r *Repository) SaveSettings(ctx context.Context, s models.Settings) error {
	apiKey := s.APIKey
	if r.sealer != nil && apiKey != "" {
		sealed, err := r.sealer.Seal(apiKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt API key: %w", err)
		}
		apiKey = sealed
	}

	values := []struct{ key, value string }{
		{KeyAPIKey, apiKey},
		{KeyEndpoint, s.Endpoint},
		{KeyModel, s.Model},
		{KeyRolePrompt, s.RolePrompt},
		{KeyUseProxy, strconv.FormatBool(s.UseProxy)},
	}
	for _, kv := range values {
		if err := r.kv.Set(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to write %s: %w", kv.key, err)
		}
	}
	return nil
}

// LoadConversations reads the full conversation mapping. A missing document
// yields an empty mapping.
func (r *Repository) LoadConversations(ctx context.Context) (models.Conversations, error) {
	raw, err := r.kv.Get(ctx, KeyConversations)
	if errors.Is(err, ErrNotFound) || (err == nil && raw == "") {
		return models.Conversations{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KeyConversations, err)
	}

	var doc map[string]*models.Conversation
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	convs := make(models.Conversations, len(doc))
	for key, conv := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || conv == nil {
			log.Printf("WARN [Repository] LoadConversations: skipping invalid entry %q", key)
			continue
		}
		conv.ID = id
		if conv.Messages == nil {
			conv.Messages = []models.ChatMessage{}
		}
		convs[id] = conv
	}
	return convs, nil
}

// SaveConversations serializes the whole mapping as one document.
func (r *Repository) SaveConversations(ctx context.Context, convs models.Conversations) error {
	doc := make(map[string]*models.Conversation, len(convs))
	for id, conv := range convs {
		doc[strconv.FormatInt(id, 10)] = conv
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}

	if err := r.kv.Set(ctx, KeyConversations, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeyConversations, err)
	}
	return nil
}
