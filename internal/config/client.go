package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultRelayURL is the relay the CLI talks to when nothing is configured.
const DefaultRelayURL = "http://localhost:3000/api/chat"

// ClientFile is the optional <data_dir>/config.toml read by the chat CLI.
type ClientFile struct {
	RelayURL    string `toml:"relay_url"`
	DatabaseURL string `toml:"database_url"`
	Passphrase  string `toml:"passphrase"`
}

// ClientConfig is the resolved chat CLI configuration.
// Priority: env vars, then config.toml, then defaults.
type ClientConfig struct {
	DataDir     string
	RelayURL    string
	DatabaseURL string // empty selects the local sqlite file
	Passphrase  string // empty disables credential sealing
}

// DataDir returns the client data directory (AICHAT_DATA_DIR or ~/.aichat).
func DataDir() string {
	if dir := os.Getenv("AICHAT_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aichat"
	}
	return filepath.Join(home, ".aichat")
}

// ClientConfigPath returns the path of the TOML file inside dataDir.
func ClientConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// SQLitePath is the default state database location.
func (c *ClientConfig) SQLitePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// LogPath is where the CLI writes its log output.
func (c *ClientConfig) LogPath() string {
	return filepath.Join(c.DataDir, "chat.log")
}

// LoadClientFile reads the TOML file. A missing file yields an empty ClientFile.
func LoadClientFile(path string) (*ClientFile, error) {
	cfg := &ClientFile{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// LoadClientConfig resolves the CLI configuration and ensures the data dir exists.
func LoadClientConfig() (*ClientConfig, error) {
	dataDir := DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	file, err := LoadClientFile(ClientConfigPath(dataDir))
	if err != nil {
		return nil, err
	}

	return &ClientConfig{
		DataDir:     dataDir,
		RelayURL:    getEnvOrFile("AICHAT_RELAY_URL", file.RelayURL, DefaultRelayURL),
		DatabaseURL: getEnvOrFile("AICHAT_DATABASE_URL", file.DatabaseURL, ""),
		Passphrase:  getEnvOrFile("AICHAT_PASSPHRASE", file.Passphrase, ""),
	}, nil
}

// getEnvOrFile returns env value, file value, or default (in priority order)
func getEnvOrFile(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}
