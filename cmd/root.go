/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spotifyweb-connect",
	Short: "Spotify now-playing session for the browser and terminal",
	Long: `spotifyweb-connect logs in to Spotify and shows what is playing.

It serves a small local page that receives the Spotify login redirect,
keeps the access token in a local database and polls the currently
playing item while the page (or the terminal UI) is visible.

The now command prints the current track once, which is handy for
tmux status lines and other status bars.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory for the token database (default: ~/.local/share/spotifyweb-connect)")
}
