package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("record not found")

// Keys under which client state is persisted. Values are plain strings; the
// conversation mapping is a JSON document.
const (
	KeyAPIKey        = "apiKey"
	KeyEndpoint      = "endpoint"
	KeyModel         = "model"
	KeyRolePrompt    = "rolePrompt"
	KeyUseProxy      = "useProxy"
	KeyConversations = "conversations"
)

// KV defines the key-value persistence surface used by the client.
// This allows swapping sqlite, postgres, or memory backends.
type KV interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
