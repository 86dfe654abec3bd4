package models

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a single message in a conversation.
// The same structure is stored in a Conversation and sent upstream.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Diagnostic marks a locally generated failure entry. It is rendered in
	// the transcript but never persisted or sent upstream.
	Diagnostic bool `json:"-"`
}

// Valid reports whether the role is one the upstream API accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
