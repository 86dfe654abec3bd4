package cli

import (
	"aichat-relay/internal/completions"
	"aichat-relay/internal/models"
	"aichat-relay/internal/services"
	"aichat-relay/internal/store"
	"aichat-relay/internal/store/memory"
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays canned answers to Prompt and PasswordPrompt.
type scriptedReader struct {
	lines     []string
	passwords []string
	history   []string
}

func (s *scriptedReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) PasswordPrompt(string) (string, error) {
	if len(s.passwords) == 0 {
		return "", io.EOF
	}
	pw := s.passwords[0]
	s.passwords = s.passwords[1:]
	return pw, nil
}

func (s *scriptedReader) AppendHistory(item string) { s.history = append(s.history, item) }

type stubSender struct {
	calls []completions.Call
	resp  *models.CompletionResponse
	err   error
}

func (s *stubSender) Send(_ context.Context, call completions.Call) (*models.CompletionResponse, error) {
	s.calls = append(s.calls, call)
	return s.resp, s.err
}

type replFixture struct {
	repl     *REPL
	in       *scriptedReader
	out      *bytes.Buffer
	convs    *services.ConversationService
	settings *services.SettingsService
	sender   *stubSender
	repo     *store.Repository
}

func newREPLFixture(t *testing.T, apiKey string) *replFixture {
	t.Helper()
	ctx := context.Background()
	repo := store.NewRepository(memory.New(), nil)

	settings := services.NewSettingsService(repo)
	require.NoError(t, settings.Load(ctx))
	if apiKey != "" {
		s := settings.Get()
		s.APIKey = apiKey
		_, err := settings.Update(ctx, s)
		require.NoError(t, err)
	}
	convs := services.NewConversationService(repo)
	require.NoError(t, convs.Load(ctx))

	sender := &stubSender{resp: &models.CompletionResponse{Choices: []models.CompletionChoice{
		{Message: &models.ChatMessage{Role: models.RoleAssistant, Content: "pong"}},
	}}}
	chat := services.NewChatService(settings, convs, sender, sender)

	f := &replFixture{
		in:       &scriptedReader{},
		out:      &bytes.Buffer{},
		convs:    convs,
		settings: settings,
		sender:   sender,
		repo:     repo,
	}
	f.repl = NewREPL(f.in, f.out, chat, convs, settings)
	return f
}

func TestREPL_RunSendsAndQuits(t *testing.T) {
	f := newREPLFixture(t, "k")
	f.in.lines = []string{"ping", "   ", "/quit", "never read"}

	require.NoError(t, f.repl.Run(context.Background()))

	assert.Contains(t, f.out.String(), "pong")
	assert.Equal(t, []string{"ping", "/quit"}, f.in.history)
	assert.Equal(t, []string{"never read"}, f.in.lines)

	active, err := f.convs.Active()
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "ping"},
		{Role: models.RoleAssistant, Content: "pong"},
	}, active.Messages)
}

func TestREPL_RunStopsOnEOF(t *testing.T) {
	f := newREPLFixture(t, "k")
	assert.NoError(t, f.repl.Run(context.Background()))
}

func TestREPL_MissingCredentialPromptsAndDoesNotSend(t *testing.T) {
	f := newREPLFixture(t, "")
	f.in.passwords = []string{"  sk-new  "}

	_, err := f.repl.Execute(context.Background(), "hello")
	require.NoError(t, err)

	assert.Empty(t, f.sender.calls)
	assert.Equal(t, "sk-new", f.settings.Get().APIKey)
	assert.Contains(t, f.out.String(), "Send your message again")

	active, err := f.convs.Active()
	require.NoError(t, err)
	assert.Empty(t, active.Messages)
}

func TestREPL_DiagnosticIsShownNotStored(t *testing.T) {
	f := newREPLFixture(t, "k")
	f.sender.resp = nil
	f.sender.err = &completions.TransportError{URL: "http://x", Err: errors.New("connection refused")}

	_, err := f.repl.Execute(context.Background(), "hello")
	require.NoError(t, err)

	assert.Contains(t, f.out.String(), "⚠️ Error: Failed to fetch")
	assert.Contains(t, f.out.String(), "Suggestion")

	stored, err := f.repo.LoadConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMessage{{Role: models.RoleUser, Content: "hello"}}, stored[f.convs.ActiveID()].Messages)
}

func TestREPL_ConversationCommands(t *testing.T) {
	f := newREPLFixture(t, "k")
	ctx := context.Background()
	first := f.convs.ActiveID()

	_, err := f.repl.Execute(ctx, "/new")
	require.NoError(t, err)
	second := f.convs.ActiveID()
	assert.NotEqual(t, first, second)

	f.out.Reset()
	_, err = f.repl.Execute(ctx, "/list")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "(0 messages)")

	_, err = f.repl.Execute(ctx, "/switch 999")
	assert.ErrorIs(t, err, services.ErrConversationNotFound)

	f.in.lines = []string{"n"}
	_, err = f.repl.Execute(ctx, "/delete "+strconv.FormatInt(first, 10))
	require.NoError(t, err)
	assert.Len(t, f.convs.List(), 2)

	f.in.lines = []string{"y"}
	_, err = f.repl.Execute(ctx, "/delete "+strconv.FormatInt(second, 10))
	require.NoError(t, err)
	assert.Len(t, f.convs.List(), 1)
	assert.Equal(t, first, f.convs.ActiveID())
}

func TestREPL_SetCommands(t *testing.T) {
	f := newREPLFixture(t, "sk-secret-1234")
	ctx := context.Background()

	for _, line := range []string{"/set model other-model", "/set proxy off", "/set prompt Be brief."} {
		_, err := f.repl.Execute(ctx, line)
		require.NoError(t, err, line)
	}

	s := f.settings.Get()
	assert.Equal(t, "other-model", s.Model)
	assert.False(t, s.UseProxy)
	assert.Equal(t, "Be brief.", s.RolePrompt)

	f.out.Reset()
	_, err := f.repl.Execute(ctx, "/settings")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "****1234")
	assert.NotContains(t, f.out.String(), "sk-secret")
	assert.Contains(t, f.out.String(), "direct")

	_, err = f.repl.Execute(ctx, "/set proxy sometimes")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestREPL_Quit(t *testing.T) {
	f := newREPLFixture(t, "k")
	quit, err := f.repl.Execute(context.Background(), "/exit")
	require.NoError(t, err)
	assert.True(t, quit)
}
