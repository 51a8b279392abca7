/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/config"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/store"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing Spotify item",
	Long: `Fetch the currently playing item once with the stored token and print it.

The output format can be customized in ~/.config/spotifyweb-connect/config.yaml
using a Go template. Available fields: .Title, .Artist, .Album, .State,
.Position, .Duration, .Percent

Exit codes:
  0 - Something is playing
  1 - Nothing playing, paused, logged out or the request failed`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
}

// nowData is the template input for the now command.
type nowData struct {
	Title    string
	Artist   string
	Album    string
	State    string
	Position string
	Duration string
	Percent  float64
}

func newNowData(s session.Snapshot) nowData {
	return nowData{
		Title:    s.Title,
		Artist:   s.ArtistLine(),
		Album:    s.Album,
		State:    s.State.String(),
		Position: s.Elapsed(),
		Duration: s.Total(),
		Percent:  s.Percent(),
	}
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	st, err := openTokenStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snapshot, err := fetchNow(ctx, st, newSpotifyClient(), session.FetchOptions{
		IncludeEpisodes: cfg.IncludeEpisodes,
	}, time.Now())
	if err != nil {
		return err
	}

	if snapshot.State != session.PlaybackPlaying {
		os.Exit(1)
		return nil
	}

	output, err := formatSnapshot(snapshot, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	fmt.Println(padToWidth(output, width))
	return nil
}

// nowTokenStore is the part of the token store used by the now command.
type nowTokenStore interface {
	Load(ctx context.Context) (*store.Credentials, error)
	Clear(ctx context.Context) error
}

var errNotLoggedIn = errors.New("not logged in. Run 'spotifyweb-connect login' first")

// fetchNow fetches one snapshot with the stored token. A token rejected by
// Spotify is cleared, as the session does on Unauthorized.
func fetchNow(ctx context.Context, st nowTokenStore, api session.API, opts session.FetchOptions, now time.Time) (session.Snapshot, error) {
	creds, err := st.Load(ctx)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to load token: %w", err)
	}
	if !creds.Valid(now) {
		return session.Snapshot{}, errNotLoggedIn
	}

	snapshot, err := session.FetchSnapshot(ctx, api, creds.AccessToken, opts)
	if errors.Is(err, session.ErrTokenExpired) {
		if cerr := st.Clear(ctx); cerr != nil {
			return session.Snapshot{}, fmt.Errorf("failed to clear rejected token: %w", cerr)
		}
		return session.Snapshot{}, errNotLoggedIn
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to get current track: %w", err)
	}
	return snapshot, nil
}

// formatSnapshot applies the template to the snapshot
func formatSnapshot(s session.Snapshot, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newNowData(s)); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width, measured in
// terminal columns. Long text is cut with a "..." suffix. Width <= 0 leaves
// text unchanged.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."

	if runewidth.StringWidth(text) > width {
		if width <= len(ellipsis) {
			return ellipsis[:width]
		}
		text = runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
	}

	// A wide rune that did not fit leaves a one-column gap.
	if gap := width - runewidth.StringWidth(text); gap > 0 {
		text += strings.Repeat(" ", gap)
	}
	return text
}
