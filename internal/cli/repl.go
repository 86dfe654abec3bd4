package cli

import (
	"aichat-relay/internal/models"
	"aichat-relay/internal/services"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
)

// LineReader is the input side of the REPL. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL is the interactive chat loop.
type REPL struct {
	in       LineReader
	out      io.Writer
	chat     *services.ChatService
	convs    *services.ConversationService
	settings *services.SettingsService
}

// NewREPL creates a new REPL reading from in and writing to out.
func NewREPL(in LineReader, out io.Writer, chat *services.ChatService, convs *services.ConversationService, settings *services.SettingsService) *REPL {
	return &REPL{
		in:       in,
		out:      out,
		chat:     chat,
		convs:    convs,
		settings: settings,
	}
}

// Run reads lines until /quit, EOF, or Ctrl+C at the prompt.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()

	for {
		input, err := r.in.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		quit, err := r.Execute(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs one input line. It reports whether the REPL should exit.
func (r *REPL) Execute(ctx context.Context, line string) (bool, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return false, err
	}

	switch cmd.Kind {
	case CmdSend:
		return false, r.send(ctx, cmd.Text)
	case CmdNew:
		conv, err := r.convs.Create(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s\n", infoStyle.Render(fmt.Sprintf("Started %q (%d)", conv.Title, conv.ID)))
	case CmdList:
		r.printList()
	case CmdSwitch:
		if err := r.convs.Select(cmd.ID); err != nil {
			return false, err
		}
		r.printTranscript()
	case CmdDelete:
		return false, r.delete(ctx, cmd.ID)
	case CmdSettings:
		r.printSettings()
	case CmdSet:
		return false, r.set(ctx, cmd.Field, cmd.Text)
	case CmdHelp:
		fmt.Fprintln(r.out, helpText)
	case CmdQuit:
		return true, nil
	}
	return false, nil
}

func (r *REPL) send(ctx context.Context, text string) error {
	// Ctrl+C while waiting cancels the call instead of killing the process.
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := r.chat.Send(sendCtx, text)
	if errors.Is(err, services.ErrMissingCredential) {
		fmt.Fprintln(r.out, infoStyle.Render("No API key configured."))
		if err := r.promptAPIKey(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, infoStyle.Render("API key saved. Send your message again."))
		return nil
	}
	if err != nil {
		return err
	}

	if res.Err != nil {
		log.Printf("WARN [REPL] send: diagnostic shown for conversation %d: %v", res.ConversationID, res.Err)
	}
	r.printMessage(res.Reply)
	return nil
}

func (r *REPL) promptAPIKey(ctx context.Context) error {
	key, err := r.in.PasswordPrompt("API key: ")
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return services.ErrMissingCredential
	}
	s := r.settings.Get()
	s.APIKey = key
	_, err = r.settings.Update(ctx, s)
	return err
}

func (r *REPL) delete(ctx context.Context, id int64) error {
	conv, err := r.convs.Get(id)
	if err != nil {
		return err
	}
	confirm := func() bool {
		answer, err := r.in.Prompt(fmt.Sprintf("Delete %q? [y/N] ", conv.Title))
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	deleted, err := r.convs.Delete(ctx, id, confirm)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(r.out, infoStyle.Render("Cancelled."))
		return nil
	}
	fmt.Fprintf(r.out, "%s\n", infoStyle.Render(fmt.Sprintf("Deleted %q. Active: %d", conv.Title, r.convs.ActiveID())))
	return nil
}

func (r *REPL) set(ctx context.Context, field, value string) error {
	s := r.settings.Get()
	switch field {
	case SettingAPIKey:
		if value == "" {
			return r.promptAPIKey(ctx)
		}
		s.APIKey = value
	case SettingEndpoint:
		s.Endpoint = value
	case SettingModel:
		s.Model = value
	case SettingPrompt:
		s.RolePrompt = value
	case SettingProxy:
		on, err := ParseBool(value)
		if err != nil {
			return err
		}
		s.UseProxy = on
	}
	if _, err := r.settings.Update(ctx, s); err != nil {
		return err
	}
	r.printSettings()
	return nil
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, assistantStyle.Render("AI Chat"))
	fmt.Fprintln(r.out, infoStyle.Render("Type a message, or /help for commands."))
	if !r.settings.HasCredential() {
		fmt.Fprintln(r.out, infoStyle.Render("No API key yet: use /set apikey or just start typing."))
	}
	r.printTranscript()
}

func (r *REPL) printList() {
	active := r.convs.ActiveID()
	for _, c := range r.convs.List() {
		marker := " "
		if c.ID == active {
			marker = activeMarkerStyle.Render("*")
		}
		fmt.Fprintf(r.out, "%s %d  %s  (%d messages)\n", marker, c.ID, c.Title, len(c.Messages))
	}
}

func (r *REPL) printTranscript() {
	conv, err := r.convs.Active()
	if err != nil {
		fmt.Fprintf(r.out, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}
	fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("-- %s (%d) --", conv.Title, conv.ID)))
	for _, m := range conv.Messages {
		r.printMessage(m)
	}
}

func (r *REPL) printMessage(m models.ChatMessage) {
	switch {
	case m.Diagnostic:
		fmt.Fprintln(r.out, diagnosticStyle.Render(m.Content))
	case m.Role == models.RoleUser:
		fmt.Fprintf(r.out, "%s %s\n", userStyle.Render("you:"), m.Content)
	default:
		fmt.Fprintf(r.out, "%s %s\n", assistantStyle.Render("ai:"), m.Content)
	}
}

func (r *REPL) printSettings() {
	s := r.settings.Get()
	mode := "direct"
	if s.UseProxy {
		mode = "relay"
	}
	fmt.Fprintf(r.out, "  api key:  %s\n", services.MaskSecret(s.APIKey))
	fmt.Fprintf(r.out, "  endpoint: %s\n", s.Endpoint)
	fmt.Fprintf(r.out, "  model:    %s\n", s.Model)
	fmt.Fprintf(r.out, "  mode:     %s\n", mode)
	fmt.Fprintf(r.out, "  prompt:   %s\n", s.RolePrompt)
}
