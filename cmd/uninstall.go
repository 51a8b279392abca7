package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/service"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the launchd agent",
	Long: `Stop the launchd agent and remove its plist from ~/Library/LaunchAgents/.

The stored token is kept; use 'spotifyweb-connect logout' to remove it.`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	plistPath, err := service.PlistPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(plistPath); os.IsNotExist(err) {
		fmt.Println("Agent is not installed (plist not found)")
		return nil
	}

	fmt.Println("Stopping agent...")
	warning, err := service.Unload()
	switch {
	case err != nil:
		fmt.Printf("Warning: failed to unload agent: %v\n", err)
		fmt.Println("Continuing with plist removal...")
	case warning != "":
		fmt.Printf("Warning: %s\n", warning)
	default:
		fmt.Println("✓ Agent stopped")
	}

	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}

	fmt.Printf("✓ Removed plist from %s\n", plistPath)
	return nil
}
