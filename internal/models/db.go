package models

import (
	"sort"
	"time"
)

// Conversation is one named, ordered thread of messages.
// ID is a millisecond timestamp; the map key in storage is its decimal form.
type Conversation struct {
	ID       int64         `json:"-"`
	Title    string        `json:"title"`
	Messages []ChatMessage `json:"messages"`
}

// CreatedAt derives the creation time from the timestamp identifier.
func (c *Conversation) CreatedAt() time.Time {
	return time.UnixMilli(c.ID)
}

// Conversations maps conversation ID to Conversation.
type Conversations map[int64]*Conversation

// SortedIDs returns the identifiers most-recently-created first.
func (cs Conversations) SortedIDs() []int64 {
	ids := make([]int64, 0, len(cs))
	for id := range cs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}

// Settings is the single process-wide session configuration.
type Settings struct {
	APIKey     string
	Endpoint   string
	Model      string
	RolePrompt string
	UseProxy   bool
}

// Client-side defaults, used when a setting was never saved.
const (
	DefaultEndpoint   = "https://api.xiaomimimo.com/v1/chat/completions"
	DefaultRolePrompt = "You are a calm, curious companion. Choose your words with care, " +
		"speak gently, and answer directly when asked something plainly."
)

// DefaultSettings returns the configuration used on first run.
func DefaultSettings() Settings {
	return Settings{
		APIKey:     "",
		Endpoint:   DefaultEndpoint,
		Model:      DefaultModel,
		RolePrompt: DefaultRolePrompt,
		UseProxy:   true,
	}
}
