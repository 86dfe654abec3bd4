package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("invalid usage")
)

// CommandKind identifies a slash command.
type CommandKind int

const (
	CmdSend CommandKind = iota // plain text, sent to the model
	CmdNew
	CmdList
	CmdSwitch
	CmdDelete
	CmdSettings
	CmdSet
	CmdHelp
	CmdQuit
)

// Setting names accepted by /set.
const (
	SettingAPIKey   = "apikey"
	SettingEndpoint = "endpoint"
	SettingModel    = "model"
	SettingPrompt   = "prompt"
	SettingProxy    = "proxy"
)

// Command is one parsed input line.
type Command struct {
	Kind  CommandKind
	Text  string // CmdSend: the message; CmdSet: the new value
	ID    int64  // CmdSwitch, CmdDelete
	Field string // CmdSet
}

const helpText = `Commands:
  /new                      start a new conversation
  /list                     list conversations (newest first)
  /switch <id>              make conversation <id> active
  /delete <id>              delete conversation <id> (asks for confirmation)
  /settings                 show current settings
  /set apikey <key>         set the API key
  /set endpoint <url>       set the chat-completion endpoint
  /set model <name>         set the model
  /set prompt <text>        set the role prompt
  /set proxy <on|off>       send through the relay server or call the endpoint directly
  /help                     show this help
  /quit                     exit
Anything else is sent as a message.`

// ParseCommand parses one trimmed, non-empty input line.
func ParseCommand(line string) (Command, error) {
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdSend, Text: line}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "/new":
		return Command{Kind: CmdNew}, nil
	case "/list", "/ls":
		return Command{Kind: CmdList}, nil
	case "/switch":
		id, err := parseID(rest)
		if err != nil {
			return Command{}, fmt.Errorf("%w: /switch <id>: %v", ErrUsage, err)
		}
		return Command{Kind: CmdSwitch, ID: id}, nil
	case "/delete":
		id, err := parseID(rest)
		if err != nil {
			return Command{}, fmt.Errorf("%w: /delete <id>: %v", ErrUsage, err)
		}
		return Command{Kind: CmdDelete, ID: id}, nil
	case "/settings":
		return Command{Kind: CmdSettings}, nil
	case "/set":
		field, value, _ := strings.Cut(rest, " ")
		field = strings.ToLower(field)
		switch field {
		case SettingAPIKey, SettingEndpoint, SettingModel, SettingPrompt, SettingProxy:
		default:
			return Command{}, fmt.Errorf("%w: /set <apikey|endpoint|model|prompt|proxy> <value>", ErrUsage)
		}
		return Command{Kind: CmdSet, Field: field, Text: strings.TrimSpace(value)}, nil
	case "/help", "/h", "/?":
		return Command{Kind: CmdHelp}, nil
	case "/quit", "/q", "/exit":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("missing id")
	}
	return strconv.ParseInt(s, 10, 64)
}

// ParseBool accepts the usual on/off spellings for /set proxy.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "y", "1":
		return true, nil
	case "off", "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", ErrUsage, s)
}
