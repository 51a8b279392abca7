package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/auth"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
)

// Config holds application configuration
type Config struct {
	// Spotify application registration
	ClientID    string
	RedirectURI string
	Scopes      []string

	// Use the authorization-code flow with PKCE instead of the implicit grant
	PKCE bool

	// Poll interval while a session is active (in milliseconds)
	// Default: 1000
	PollInterval int

	// Optional session capabilities
	RecentlyPlayedFallback bool
	PauseWhenHidden        bool
	IncludeEpisodes        bool
	VerifyOnStart          bool

	// Address of the local page that receives the OAuth redirect
	ListenAddr string

	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Fixed display width for the now command (0 disables padding)
	OutputWidth int

	dir string
}

// Defaults
const (
	DefaultRedirectURI  = "http://127.0.0.1:8888/callback"
	DefaultListenAddr   = "127.0.0.1:8888"
	DefaultOutputFormat = "{{.Artist}} - {{.Title}}"
	DefaultPollInterval = int(session.DefaultPollInterval / time.Millisecond)
)

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return LoadFrom(getConfigDir())
}

// LoadFrom reads configuration from config.yaml in dir and the environment
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("redirect_uri", DefaultRedirectURI)
	v.SetDefault("scopes", auth.DefaultScopes)
	v.SetDefault("pkce", false)
	// Optional capabilities default to the session's defaults
	defaults := session.DefaultConfig()
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("recently_played_fallback", defaults.RecentlyPlayedFallback)
	v.SetDefault("pause_when_hidden", defaults.PauseWhenHidden)
	v.SetDefault("include_episodes", defaults.IncludeEpisodes)
	v.SetDefault("verify_on_start", defaults.VerifyOnStart)
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("output_format", DefaultOutputFormat)
	v.SetDefault("output_width", 0)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("SPOTIFYWEB")
	v.AutomaticEnv()

	cfg := &Config{
		ClientID:               v.GetString("client_id"),
		RedirectURI:            v.GetString("redirect_uri"),
		Scopes:                 v.GetStringSlice("scopes"),
		PKCE:                   v.GetBool("pkce"),
		PollInterval:           v.GetInt("poll_interval"),
		RecentlyPlayedFallback: v.GetBool("recently_played_fallback"),
		PauseWhenHidden:        v.GetBool("pause_when_hidden"),
		IncludeEpisodes:        v.GetBool("include_episodes"),
		VerifyOnStart:          v.GetBool("verify_on_start"),
		ListenAddr:             v.GetString("listen_addr"),
		OutputFormat:           v.GetString("output_format"),
		OutputWidth:            v.GetInt("output_width"),
		dir:                    dir,
	}

	return cfg, nil
}

// PollDuration returns the poll interval as a duration
func (c *Config) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "spotifyweb-connect")

	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to config.yaml in the directory it was loaded from
func (c *Config) Save() error {
	dir := c.dir
	if dir == "" {
		dir = getConfigDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()

	v.Set("client_id", c.ClientID)
	v.Set("redirect_uri", c.RedirectURI)
	v.Set("scopes", c.Scopes)
	v.Set("pkce", c.PKCE)
	v.Set("poll_interval", c.PollInterval)
	v.Set("recently_played_fallback", c.RecentlyPlayedFallback)
	v.Set("pause_when_hidden", c.PauseWhenHidden)
	v.Set("include_episodes", c.IncludeEpisodes)
	v.Set("verify_on_start", c.VerifyOnStart)
	v.Set("listen_addr", c.ListenAddr)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)

	return v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}
