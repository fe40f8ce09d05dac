// Package config loads client settings from the environment.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/omochice/socket-chat-client/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Environment variables.
const (
	EnvEndpoint = "CHAT_ENDPOINT"
	EnvStateDir = "CHAT_STATE_DIR"
	EnvLogFile  = "CHAT_LOG_FILE"
	EnvLogLevel = "CHAT_LOG_LEVEL"
)

// DefaultEndpoint is the public chat backend.
const DefaultEndpoint = "wss://chatapp-backend-dqz7.onrender.com"

const (
	defaultStateDirName = ".socket-chat"
	defaultLogFileName  = "client.log"
)

// Config holds the client settings.
type Config struct {
	Endpoint string
	StateDir string
	LogFile  string
	LogLevel zerolog.Level
}

// Overrides are values given on the command line. Empty fields keep the
// environment value.
type Overrides struct {
	Endpoint string
	StateDir string
	LogFile  string
	LogLevel string
}

// LoadDotEnv loads the given .env files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return errors.Wrap(godotenv.Load(existing...), "failed to load .env")
}

// Load reads the configuration from the environment and applies o on top.
func Load(o Overrides) (*Config, error) {
	endpoint := pick(o.Endpoint, os.Getenv(EnvEndpoint), DefaultEndpoint)
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}

	stateDir := pick(o.StateDir, os.Getenv(EnvStateDir), "")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve home directory")
		}
		stateDir = filepath.Join(home, defaultStateDirName)
	}

	logFile := pick(o.LogFile, os.Getenv(EnvLogFile), filepath.Join(stateDir, defaultLogFileName))

	level, err := logger.ParseLevel(pick(o.LogLevel, os.Getenv(EnvLogLevel), ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		Endpoint: endpoint,
		StateDir: stateDir,
		LogFile:  logFile,
		LogLevel: level,
	}, nil
}

// ValidateEndpoint checks that endpoint is a ws:// or wss:// URL with a host.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", endpoint)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Errorf("invalid endpoint %q: scheme must be ws or wss", endpoint)
	}
	if u.Host == "" {
		return errors.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return nil
}

// pick returns the first non-blank value.
func pick(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
