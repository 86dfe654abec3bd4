package services

import (
	"aichat-relay/internal/models"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Custom errors for conversation management
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConfirmationRequired = errors.New("deleting a conversation requires confirmation")
)

// TitleTimeLayout formats the creation time in default conversation titles.
const TitleTimeLayout = "2006-01-02 15:04:05"

// ConfirmFunc asks the user to approve a destructive action.
type ConfirmFunc func() bool

// ConversationRepository persists the whole conversation mapping.
type ConversationRepository interface {
	LoadConversations(ctx context.Context) (models.Conversations, error)
	SaveConversations(ctx context.Context, convs models.Conversations) error
}

// ConversationService maintains the conversation mapping and the active
// conversation. Every mutation is written through to the repository.
type ConversationService struct {
	mu        sync.Mutex
	repo      ConversationRepository
	convs     models.Conversations
	currentID int64
	lastID    int64
	now       func() time.Time
}

// NewConversationService creates a new ConversationService with an empty mapping.
func NewConversationService(repo ConversationRepository) *ConversationService {
	return &ConversationService{
		repo:  repo,
		convs: models.Conversations{},
		now:   time.Now,
	}
}

// WithClock replaces the time source used for identifiers and titles.
func (s *ConversationService) WithClock(now func() time.Time) *ConversationService {
	s.now = now
	return s
}

// Load reads the stored mapping and activates the most recent conversation,
// creating one if none exist.
func (s *ConversationService) Load(ctx context.Context) error {
	convs, err := s.repo.LoadConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.convs = convs
	s.lastID = 0
	for id := range convs {
		if id > s.lastID {
			s.lastID = id
		}
	}

	log.Printf("[ConversationService] Loaded %d conversations", len(convs))

	if ids := convs.SortedIDs(); len(ids) > 0 {
		s.currentID = ids[0]
		return nil
	}
	_, err = s.createLocked(ctx)
	return err
}

// nextIDLocked returns the current millisecond timestamp, bumped past the
// last issued identifier so identifiers stay unique and increasing.
func (s *ConversationService) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *ConversationService) createLocked(ctx context.Context) (*models.Conversation, error) {
	id := s.nextIDLocked()
	conv := &models.Conversation{
		ID:       id,
		Title:    "Chat " + time.UnixMilli(id).Format(TitleTimeLayout),
		Messages: []models.ChatMessage{},
	}
	s.convs[id] = conv
	s.currentID = id

	log.Printf("[ConversationService] Created conversation %d", id)
	return conv, s.saveLocked(ctx)
}

func (s *ConversationService) saveLocked(ctx context.Context) error {
	if err := s.repo.SaveConversations(ctx, s.convs); err != nil {
		log.Printf("ERROR [ConversationService] failed to persist conversations: %v", err)
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	return nil
}

// Create starts a new empty conversation and makes it active.
func (s *ConversationService) Create(ctx context.Context) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.createLocked(ctx)
	return copyConversation(conv), err
}

// Select makes id the active conversation. Selecting the active one is a no-op.
func (s *ConversationService) Select(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return fmt.Errorf("%w: %d", ErrConversationNotFound, id)
	}
	s.currentID = id
	return nil
}

// Delete removes id after confirm approves. If id was active, the most recent
// remaining conversation becomes active, or a fresh one is created.
// It reports whether the conversation was deleted.
func (s *ConversationService) Delete(ctx context.Context, id int64, confirm ConfirmFunc) (bool, error) {
	if confirm == nil {
		return false, ErrConfirmationRequired
	}

	s.mu.Lock()
	if _, ok := s.convs[id]; !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %d", ErrConversationNotFound, id)
	}
	s.mu.Unlock()

	// Ask without holding the lock; confirmation may block on user input.
	if !confirm() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return false, fmt.Errorf("%w: %d", ErrConversationNotFound, id)
	}
	delete(s.convs, id)
	log.Printf("[ConversationService] Deleted conversation %d", id)

	if s.currentID == id {
		if ids := s.convs.SortedIDs(); len(ids) > 0 {
			s.currentID = ids[0]
		} else {
			// createLocked persists the mapping, deletion included.
			_, err := s.createLocked(ctx)
			return true, err
		}
	}

	return true, s.saveLocked(ctx)
}

// List returns all conversations, most recently created first.
func (s *ConversationService) List() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.convs.SortedIDs()
	out := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyConversation(s.convs[id]))
	}
	return out
}

// ActiveID returns the identifier of the active conversation.
func (s *ConversationService) ActiveID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Active returns a copy of the active conversation.
func (s *ConversationService) Active() (models.Conversation, error) {
	return s.Get(s.ActiveID())
}

// Get returns a copy of the conversation with the given id.
func (s *ConversationService) Get(id int64) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return models.Conversation{}, fmt.Errorf("%w: %d", ErrConversationNotFound, id)
	}
	return copyConversation(conv), nil
}

// Append adds msg to conversation id and persists the mapping. The message
// stays in memory even if persisting fails.
func (s *ConversationService) Append(ctx context.Context, id int64, msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrConversationNotFound, id)
	}
	msg.Diagnostic = false
	conv.Messages = append(conv.Messages, msg)
	return s.saveLocked(ctx)
}

func copyConversation(c *models.Conversation) models.Conversation {
	out := *c
	out.Messages = append([]models.ChatMessage(nil), c.Messages...)
	if out.Messages == nil {
		out.Messages = []models.ChatMessage{}
	}
	return out
}
