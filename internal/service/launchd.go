// Package service installs `watch` as a per-user launchd agent.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

// Label is the launchd job label.
const Label = "com.spotifyweb-connect.watch"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
		<string>watch</string>
		<string>--log-file</string>
		<string>{{.LogPath}}/watch.log</string>
		<string>--listen</string>
		<string>{{.ListenAddr}}</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/watch.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
</dict>
</plist>
`

// PlistConfig holds the values substituted into the agent plist.
type PlistConfig struct {
	BinaryPath       string
	LogPath          string
	ListenAddr       string
	WorkingDirectory string
}

// GeneratePlist renders the agent plist.
func GeneratePlist(cfg PlistConfig) (string, error) {
	tmpl, err := template.New("plist").Parse(plistTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plist template: %w", err)
	}

	data := struct {
		PlistConfig
		Label string
	}{cfg, Label}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute plist template: %w", err)
	}

	return buf.String(), nil
}

// PlistPath returns where the agent plist is installed.
func PlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
}

// DefaultLogPath returns the directory the agent logs to.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "spotifyweb-connect", "logs"), nil
}

// Load bootstraps the agent into the user's GUI domain.
func Load(plistPath string) error {
	domain, err := guiDomain()
	if err != nil {
		return err
	}

	output, err := exec.Command("launchctl", "bootstrap", domain, plistPath).CombinedOutput()
	if err != nil {
		if out := strings.TrimSpace(string(output)); out != "" {
			return fmt.Errorf("launchctl bootstrap failed: %s", out)
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}
	return nil
}

// Unload boots the agent out. A job that is not loaded is not an error;
// launchctl's message is returned as a warning for the caller to print.
func Unload() (warning string, err error) {
	domain, err := guiDomain()
	if err != nil {
		return "", err
	}

	output, err := exec.Command("launchctl", "bootout", domain+"/"+Label).CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(output)), nil
	}
	return "", nil
}

func guiDomain() (string, error) {
	out, err := exec.Command("id", "-u").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get user ID: %w", err)
	}
	return "gui/" + strings.TrimSpace(string(out)), nil
}
