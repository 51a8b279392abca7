package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/auth"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/config"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/spotify"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/store"
)

const tokenDBName = "token.db"

var dataDirFlag string

// resolveDataDir returns the data directory, creating it if needed.
func resolveDataDir() (string, error) {
	dataDir := dataDirFlag
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share", "spotifyweb-connect")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}

func openTokenStore() (*store.TokenStore, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(filepath.Join(dataDir, tokenDBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	return st, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func newAuthFlow(cfg *config.Config) *auth.Flow {
	return auth.New(auth.Config{
		ClientID:    cfg.ClientID,
		RedirectURI: cfg.RedirectURI,
		Scopes:      cfg.Scopes,
		PKCE:        cfg.PKCE,
		HTTPClient:  newHTTPClient(),
	})
}

func newSpotifyClient() *spotify.Client {
	return spotify.New(spotify.Config{HTTPClient: newHTTPClient()})
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		PollInterval:           cfg.PollDuration(),
		RecentlyPlayedFallback: cfg.RecentlyPlayedFallback,
		PauseWhenHidden:        cfg.PauseWhenHidden,
		IncludeEpisodes:        cfg.IncludeEpisodes,
		VerifyOnStart:          cfg.VerifyOnStart,
	}
}

func loginPageURL(listenAddr string) string {
	return "http://" + listenAddr + "/login"
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
