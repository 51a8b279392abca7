package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/config"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/service"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install 'watch' as a launchd agent",
	Long: `Install 'spotifyweb-connect watch' as a launchd agent that runs on login (macOS).

This command will:
  - Generate a launchd plist that runs 'watch' with logging to a file
  - Install it to ~/Library/LaunchAgents/
  - Load the agent with launchctl

The local page then stays available at the configured listen address.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath, err := service.DefaultLogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	plist, err := service.GeneratePlist(service.PlistConfig{
		BinaryPath:       binaryPath,
		LogPath:          logPath,
		ListenAddr:       cfg.ListenAddr,
		WorkingDirectory: home,
	})
	if err != nil {
		return err
	}

	plistPath, err := service.PlistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	if _, err := os.Stat(plistPath); err == nil {
		fmt.Println("Agent is already installed. Reloading...")
		if warning, err := service.Unload(); err != nil {
			fmt.Printf("Warning: failed to unload existing agent: %v\n", err)
		} else if warning != "" {
			fmt.Printf("Warning: %s\n", warning)
		}
	}

	if err := os.WriteFile(plistPath, []byte(plist), 0644); err != nil {
		return fmt.Errorf("failed to write plist file: %w", err)
	}
	fmt.Printf("✓ Installed plist to %s\n", plistPath)

	if err := service.Load(plistPath); err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}

	fmt.Println("✓ Agent loaded and started")
	fmt.Printf("✓ Logs will be written to %s\n", logPath)
	fmt.Printf("\nOpen %s to log in.\n", loginPageURL(cfg.ListenAddr))
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  spotifyweb-connect uninstall")

	return nil
}
