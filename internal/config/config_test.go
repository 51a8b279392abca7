package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ClientID != "" {
		t.Errorf("ClientID = %q, want empty", cfg.ClientID)
	}
	if cfg.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q", cfg.RedirectURI)
	}
	if len(cfg.Scopes) != 3 {
		t.Errorf("Scopes = %v, want the three default scopes", cfg.Scopes)
	}
	if cfg.PKCE {
		t.Error("PKCE should default to false")
	}
	if cfg.PollDuration() != time.Second {
		t.Errorf("PollDuration() = %v, want 1s", cfg.PollDuration())
	}
	if !cfg.RecentlyPlayedFallback || !cfg.PauseWhenHidden || !cfg.IncludeEpisodes || !cfg.VerifyOnStart {
		t.Errorf("capabilities should default to enabled: %+v", cfg)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %q", cfg.OutputFormat)
	}
}

func TestDefaultsFollowSession(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	want := session.DefaultConfig()
	if cfg.PollDuration() != want.PollInterval {
		t.Errorf("PollDuration() = %v, want %v", cfg.PollDuration(), want.PollInterval)
	}
	if cfg.RecentlyPlayedFallback != want.RecentlyPlayedFallback ||
		cfg.PauseWhenHidden != want.PauseWhenHidden ||
		cfg.IncludeEpisodes != want.IncludeEpisodes ||
		cfg.VerifyOnStart != want.VerifyOnStart {
		t.Errorf("capabilities = %+v, want %+v", cfg, want)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("client_id: abc123\npkce: true\npoll_interval: 2500\npause_when_hidden: false\nscopes:\n  - user-read-currently-playing\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ClientID != "abc123" || !cfg.PKCE {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.PollDuration() != 2500*time.Millisecond {
		t.Errorf("PollDuration() = %v", cfg.PollDuration())
	}
	if cfg.PauseWhenHidden {
		t.Error("PauseWhenHidden should be false")
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != "user-read-currently-playing" {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SPOTIFYWEB_CLIENT_ID", "from-env")
	t.Setenv("SPOTIFYWEB_LISTEN_ADDR", "127.0.0.1:9999")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ClientID != "from-env" {
		t.Errorf("ClientID = %q, want from-env", cfg.ClientID)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("client_id: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(dir); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	cfg.ClientID = "saved-id"
	cfg.OutputWidth = 40

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if reloaded.ClientID != "saved-id" || reloaded.OutputWidth != 40 {
		t.Errorf("unexpected reloaded config: %+v", reloaded)
	}
	if reloaded.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q", reloaded.RedirectURI)
	}
}
