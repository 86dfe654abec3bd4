package cli

import (
	"log"
	"os"

	"github.com/peterh/liner"
)

// Terminal provides line editing and persistent input history.
type Terminal struct {
	*liner.State
	historyFile string
}

// NewTerminal creates a Terminal and loads history from historyFile.
func NewTerminal(historyFile string) *Terminal {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	t := &Terminal{State: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			log.Printf("WARN [Terminal] NewTerminal: could not read history: %v", err)
		}
		f.Close()
	}
	return t
}

// Close saves history with owner-only permissions and restores the terminal.
func (t *Terminal) Close() error {
	f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		log.Printf("WARN [Terminal] Close: could not save history: %v", err)
	} else {
		if _, err := t.State.WriteHistory(f); err != nil {
			log.Printf("WARN [Terminal] Close: could not write history: %v", err)
		}
		f.Close()
	}
	return t.State.Close()
}

var _ LineReader = (*Terminal)(nil)
