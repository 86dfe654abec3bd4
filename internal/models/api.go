package models

import "encoding/json"

// Defaults applied by the relay (and sent by the client) when a request omits them.
const (
	DefaultModel               = "mimo-v2-flash"
	DefaultMaxCompletionTokens = 1024
	DefaultTemperature         = 0.3
)

// --- Relay Request Structs ---

// RelayRequest defines the expected body for POST /api/chat.
// Endpoint and APIKey are required; everything else falls back to defaults.
// Messages stay raw so the relay forwards them without reshaping.
type RelayRequest struct {
	Endpoint            string          `json:"endpoint"`
	APIKey              string          `json:"apiKey"`
	Model               string          `json:"model,omitempty"`
	Messages            json.RawMessage `json:"messages,omitempty"`
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
}

// UpstreamRequest is the body the relay sends to the upstream endpoint.
type UpstreamRequest struct {
	Model               string          `json:"model"`
	Messages            json.RawMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
	Temperature         float64         `json:"temperature"`
}

// CompletionRequest is the body the client sends upstream in direct mode.
type CompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
	Temperature         float64       `json:"temperature"`
}

// --- Response Structs ---

// HealthResponse is returned by the relay's root health check.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"` // ISO8601, UTC, millisecond precision
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CompletionResponse captures the part of an upstream reply the client reads.
// Unknown fields are ignored.
type CompletionResponse struct {
	ID      string             `json:"id,omitempty"`
	Model   string             `json:"model,omitempty"`
	Choices []CompletionChoice `json:"choices"`
	Usage   json.RawMessage    `json:"usage,omitempty"`
}

// CompletionChoice is a single entry of CompletionResponse.Choices.
type CompletionChoice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// FirstContent returns the content of the first choice's message, or "" when
// the response has no usable first choice.
func (r *CompletionResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return ""
	}
	return r.Choices[0].Message.Content
}
