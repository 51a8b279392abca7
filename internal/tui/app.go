package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
)

const maxRecentTracks = 5

// Config holds TUI configuration options
type Config struct {
	RefreshRate     time.Duration // How often to refresh the display
	LoginHint       string        // Shown while logged out, e.g. the local login URL
	PauseWhenHidden bool          // Enables the pause key; mirrors the session option
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
	}
}

// Controls are the session commands bound to keys
type Controls interface {
	ForceRefresh(ctx context.Context) error
	SetVisible(ctx context.Context, visible bool) error
	Logout(ctx context.Context) error
	Retry(ctx context.Context) error
}

// RecentTrack stores info about a track seen earlier in this session
type RecentTrack struct {
	Title  string
	Artist string
	SeenAt time.Time
}

// App is the terminal renderer. It implements session.Listener.
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	session    *tview.TextView
	recent     *tview.TextView
	status     *tview.TextView

	config   Config
	controls Controls

	// Listener callbacks and the redraw ticker both touch the fields below.
	mu sync.Mutex

	state    session.State
	snapshot session.Snapshot
	lastErr  *session.Error

	// Ring buffer for recent tracks
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastSession    string
	lastRecent     string

	// Cached progress bar width, updated only when GetInnerRect is positive.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
	}
	a.setupUI()
	return a
}

// SetControls sets the session the keys act on
func (a *App) SetControls(controls Controls) {
	a.controls = controls
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.session = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.session.SetBorder(true).
		SetTitle(" Session ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  r:refresh  p:pause/resume  l:logout  R:retry[-]")

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.session, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 7, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input. Commands run off the UI goroutine
// because a retry may wait on the network.
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case 'r':
		a.runCommand(a.controls.ForceRefresh)
		return nil
	case 'p', 'P':
		if visible, ok := a.pauseToggle(); ok {
			a.runCommand(func(ctx context.Context) error {
				return a.controls.SetVisible(ctx, visible)
			})
		}
		return nil
	case 'l', 'L':
		a.runCommand(a.controls.Logout)
		return nil
	case 'R':
		a.runCommand(a.controls.Retry)
		return nil
	}
	return event
}

// pauseToggle returns the visibility to report for the pause key. It follows
// the session state, which the web page may also have changed.
func (a *App) pauseToggle() (visible bool, ok bool) {
	if !a.config.PauseWhenHidden {
		return false, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case session.Paused:
		return true, true
	case session.Active:
		return false, true
	}
	return false, false
}

func (a *App) runCommand(fn func(context.Context) error) {
	if a.controls == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = fn(ctx)
	}()
}

// OnStateChange implements session.Listener
func (a *App) OnStateChange(state session.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
	if state == session.CheckingAuth || state == session.Active {
		a.lastErr = nil
	}
	if state == session.LoggedOut {
		a.snapshot = session.Snapshot{}
	}
}

// OnTrackUpdate implements session.Listener
func (a *App) OnTrackUpdate(snapshot session.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.snapshot.Empty() && a.snapshot.Title != snapshot.Title {
		a.addToRecentTracks(a.snapshot)
	}
	a.snapshot = snapshot
	a.lastErr = nil
}

// OnError implements session.Listener
func (a *App) OnError(err *session.Error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastErr = err
}

// Run starts the TUI and blocks until it exits
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates redraws on a ticker, the only source of redraws.
func (a *App) handleUpdates(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// addToRecentTracks adds a track to the ring buffer of recent tracks.
// Must be called with a.mu held.
func (a *App) addToRecentTracks(s session.Snapshot) {
	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = RecentTrack{
		Title:  s.Title,
		Artist: s.ArtistLine(),
		SeenAt: time.Now(),
	}
	a.recentCount++
}

// getRecentTracks returns recent tracks in most-recent-first order.
// Must be called with a.mu held.
func (a *App) getRecentTracks() []RecentTrack {
	n := a.recentCount
	if n > maxRecentTracks {
		n = maxRecentTracks
	}
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateSession()
		a.updateRecentTracks()
	})
}

func (a *App) updateNowPlaying() {
	text := renderNowPlaying(a.state, a.snapshot)
	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

func (a *App) updateProgress() {
	var text string

	if a.state == session.Active || a.state == session.Paused {
		if a.snapshot.State == session.PlaybackPlaying || a.snapshot.State == session.PlaybackPaused {
			_, _, width, _ := a.progress.GetInnerRect()
			barWidth := width - 14 // time display
			if barWidth > 0 {
				a.lastBarWidth = barWidth
			}
			if a.lastBarWidth < 10 {
				a.lastBarWidth = 10
			}

			bar := buildProgressBar(a.snapshot.Percent(), a.lastBarWidth)
			text = fmt.Sprintf("%s %s %s", a.snapshot.Elapsed(), bar, a.snapshot.Total())
		}
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

func (a *App) updateSession() {
	text := renderSession(a.state, a.lastErr, a.config.LoginHint)
	if text != a.lastSession {
		a.lastSession = text
		a.session.SetText(text)
	}
}

func (a *App) updateRecentTracks() {
	var sb strings.Builder

	tracks := a.getRecentTracks()
	if len(tracks) == 0 {
		sb.WriteString("[gray]No recent tracks[-]")
	} else {
		for i, track := range tracks {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("[white]%s[-] [gray]%s[-]",
				tview.Escape(truncate(track.Title, 20)),
				tview.Escape(truncate(track.Artist, 16))))
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

func renderNowPlaying(state session.State, s session.Snapshot) string {
	switch state {
	case session.Uninitialized, session.CheckingAuth:
		return "\n\n[gray]Connecting...[-]"
	case session.LoggedOut:
		return "\n\n[gray]Not logged in[-]"
	case session.Failed:
		return "\n\n[red]Unable to start[-]"
	}

	if s.Empty() {
		return "\n\n[gray]Nothing playing[-]"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(s.Title)))
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(s.ArtistLine())))
	sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(s.Album)))

	var icon string
	switch s.State {
	case session.PlaybackPlaying:
		icon = "[green]▶[-]"
	case session.PlaybackPaused:
		icon = "[yellow]⏸[-]"
	case session.PlaybackRecent:
		icon = "[gray]Recently played[-]"
	}
	sb.WriteString(fmt.Sprintf("\n\n%s", icon))
	return sb.String()
}

func renderSession(state session.State, err *session.Error, loginHint string) string {
	var sb strings.Builder

	switch state {
	case session.Active:
		sb.WriteString("[green]Active[-]")
	case session.Paused:
		sb.WriteString("[yellow]Updates paused[-]")
	case session.LoggedOut:
		sb.WriteString("[gray]Logged out[-]")
		if loginHint != "" {
			sb.WriteString("\nLog in at " + tview.Escape(loginHint))
		}
	case session.Failed:
		sb.WriteString("[red]Failed[-]\nPress R to retry")
	default:
		sb.WriteString("[gray]Checking login...[-]")
	}

	if err != nil {
		color := "yellow"
		if err.Fatal() {
			color = "red"
		}
		sb.WriteString(fmt.Sprintf("\n[%s]%s[-]", color, tview.Escape(err.Message)))
	}

	return sb.String()
}

// buildProgressBar creates a text-based progress bar from a percentage
func buildProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent <= 0 {
		return "[gray]" + strings.Repeat("░", width) + "[-]"
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
