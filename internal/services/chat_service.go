package services

import (
	"aichat-relay/internal/completions"
	"aichat-relay/internal/models"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Custom errors for the send lifecycle
var (
	ErrEmptyInput        = errors.New("message is empty")
	ErrMissingCredential = errors.New("no API key configured")
	ErrSendInFlight      = errors.New("a message is already being sent")
)

// NoReplyPlaceholder replaces a successful reply that carries no content.
const NoReplyPlaceholder = "Sorry, no valid reply received"

// RelayHint is appended to diagnostics that look like cross-origin failures.
const RelayHint = "\n\n💡 Suggestion: enable \"use relay server\" in settings."

// crossOriginSignatures are matched case-insensitively against failure text.
var crossOriginSignatures = []string{"cors", "failed to fetch", "cross-origin"}

// SendResult describes the outcome of one send.
type SendResult struct {
	ConversationID int64
	// Reply is the assistant message, or a diagnostic when Err is set.
	Reply models.ChatMessage
	// Err is the upstream or transport failure behind a diagnostic reply.
	Err error
}

// ChatService turns one user turn into exactly one outbound call.
type ChatService struct {
	settings *SettingsService
	convs    *ConversationService
	direct   completions.Sender
	relayed  completions.Sender
	inFlight atomic.Bool
}

// NewChatService creates a new ChatService.
func NewChatService(settings *SettingsService, convs *ConversationService, direct, relayed completions.Sender) *ChatService {
	return &ChatService{
		settings: settings,
		convs:    convs,
		direct:   direct,
		relayed:  relayed,
	}
}

// Busy reports whether a send is outstanding.
func (s *ChatService) Busy() bool {
	return s.inFlight.Load()
}

// BuildMessages returns the outbound message array: the role prompt as a
// system message followed by the unmodified history.
func BuildMessages(rolePrompt string, history []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history)+1)
	out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: rolePrompt})
	for _, m := range history {
		if m.Diagnostic {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Send appends input to the active conversation, calls the model once, and
// appends the reply. Upstream and transport failures do not return an error:
// they produce a diagnostic reply in the result instead.
func (s *ChatService) Send(ctx context.Context, input string) (*SendResult, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}

	settings := s.settings.Get()
	if settings.APIKey == "" {
		return nil, ErrMissingCredential
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}
	defer s.inFlight.Store(false)

	// The reply goes to the conversation active now, even if the user switches meanwhile.
	convID := s.convs.ActiveID()

	if err := s.convs.Append(ctx, convID, models.ChatMessage{Role: models.RoleUser, Content: text}); err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		log.Printf("WARN [ChatService] Send: user message kept in memory only: %v", err)
	}

	conv, err := s.convs.Get(convID)
	if err != nil {
		return nil, err
	}

	call := completions.Call{
		Endpoint: settings.Endpoint,
		APIKey:   settings.APIKey,
		Model:    settings.Model,
		Messages: BuildMessages(settings.RolePrompt, conv.Messages),
	}

	sender, mode := s.direct, "direct"
	if settings.UseProxy {
		sender, mode = s.relayed, "relay"
	}
	log.Printf("[ChatService] Send: conversation %d, %d messages, mode=%s", convID, len(call.Messages), mode)

	resp, err := sender.Send(ctx, call)
	if err != nil {
		log.Printf("ERROR [ChatService] Send: conversation %d: %v", convID, err)
		return &SendResult{
			ConversationID: convID,
			Reply:          Diagnostic(err),
			Err:            err,
		}, nil
	}

	content := resp.FirstContent()
	if content == "" {
		content = NoReplyPlaceholder
	}
	reply := models.ChatMessage{Role: models.RoleAssistant, Content: content}

	if err := s.convs.Append(ctx, convID, reply); err != nil {
		log.Printf("WARN [ChatService] Send: assistant reply kept in memory only: %v", err)
	}

	return &SendResult{ConversationID: convID, Reply: reply}, nil
}

// Diagnostic converts a failed call into an assistant-role transcript entry.
func Diagnostic(err error) models.ChatMessage {
	text := fmt.Sprintf("⚠️ Error: %v", err)
	if LooksCrossOrigin(err.Error()) {
		text += RelayHint
	}
	return models.ChatMessage{Role: models.RoleAssistant, Content: text, Diagnostic: true}
}

// LooksCrossOrigin reports whether failure text matches a known cross-origin signature.
func LooksCrossOrigin(text string) bool {
	lower := strings.ToLower(text)
	for _, sig := range crossOriginSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
