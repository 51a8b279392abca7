package service

import (
	"strings"
	"testing"
)

func TestGeneratePlist(t *testing.T) {
	plist, err := GeneratePlist(PlistConfig{
		BinaryPath:       "/usr/local/bin/spotifyweb-connect",
		LogPath:          "/Users/me/.local/share/spotifyweb-connect/logs",
		ListenAddr:       "127.0.0.1:8888",
		WorkingDirectory: "/Users/me",
	})
	if err != nil {
		t.Fatalf("GeneratePlist() error = %v", err)
	}

	for _, want := range []string{
		"<string>" + Label + "</string>",
		"<string>/usr/local/bin/spotifyweb-connect</string>",
		"<string>watch</string>",
		"<string>/Users/me/.local/share/spotifyweb-connect/logs/watch.log</string>",
		"<string>127.0.0.1:8888</string>",
		"<string>/Users/me</string>",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("plist missing %q", want)
		}
	}
}

func TestPlistPath(t *testing.T) {
	t.Setenv("HOME", "/tmp/home")

	path, err := PlistPath()
	if err != nil {
		t.Fatalf("PlistPath() error = %v", err)
	}
	if path != "/tmp/home/Library/LaunchAgents/"+Label+".plist" {
		t.Errorf("PlistPath() = %q", path)
	}
}
