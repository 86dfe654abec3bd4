package main

import (
	"aichat-relay/internal/cli"
	"aichat-relay/internal/completions"
	"aichat-relay/internal/config"
	"aichat-relay/internal/crypto"
	"aichat-relay/internal/services"
	"aichat-relay/internal/store"
	"aichat-relay/internal/store/postgres"
	"aichat-relay/internal/store/sqlite"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// The terminal belongs to the REPL; logs go to a file.
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.Printf("Starting chat client (data dir %s, relay %s)", cfg.DataDir, cfg.RelayURL)

	// 2. Open Storage
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	var sealer *crypto.Sealer
	if cfg.Passphrase != "" {
		sealer, err = crypto.NewSealer(cfg.Passphrase)
		if err != nil {
			return fmt.Errorf("init credential sealing: %w", err)
		}
		log.Println("Credential sealing enabled.")
	}
	repo := store.NewRepository(kv, sealer)

	// 3. Initialize Services
	settings := services.NewSettingsService(repo)
	if err := settings.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	convs := services.NewConversationService(repo)
	if err := convs.Load(ctx); err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	httpClient := completions.NewHTTPClient()
	chat := services.NewChatService(settings, convs,
		&completions.DirectSender{HTTPClient: httpClient},
		&completions.RelaySender{HTTPClient: httpClient, RelayURL: cfg.RelayURL},
	)

	// 4. Run the REPL
	term := cli.NewTerminal(filepath.Join(cfg.DataDir, "history"))
	defer term.Close()

	return cli.NewREPL(term, os.Stdout, chat, convs, settings).Run(ctx)
}

func openStore(ctx context.Context, cfg *config.ClientConfig) (store.KV, error) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Println("Using postgres store.")
		return pg, nil
	}
	lite, err := sqlite.New(cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	log.Printf("Using sqlite store at %s", cfg.SQLitePath())
	return lite, nil
}
