package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/config"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/tui"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/web"
)

var (
	watchLogFile  string
	watchLogLevel string
	watchListen   string
	watchTUI      bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the now-playing session",
	Long: `Run the now-playing session and serve the local page.

The session will:
- Pick up the Spotify login redirect on /callback
- Reuse a stored access token until it expires
- Poll the currently playing item every poll_interval milliseconds
- Stop polling while the page is hidden (pause_when_hidden)
- Return to the logged out state when Spotify rejects the token

Open the printed /login URL in a browser to connect your account.
With --tui a terminal UI is shown as well; logs then go to a file in
the data directory unless --log-file is set.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Log file path (default: stderr)")
	watchCmd.Flags().StringVar(&watchLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Address for the local page (overrides config)")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show the terminal UI")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if watchListen != "" {
		cfg.ListenAddr = watchListen
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	logFile := watchLogFile
	if watchTUI && logFile == "" {
		logFile = filepath.Join(dataDir, "watch.log")
	}
	logger := setupLogger(logFile, watchLogLevel)

	logger.Info().
		Str("version", version).
		Str("data_dir", dataDir).
		Msg("Starting spotifyweb-connect")

	if cfg.ClientID == "" {
		logger.Warn().Msg("No client id configured. Run 'spotifyweb-connect login' first")
	}

	st, err := openTokenStore()
	if err != nil {
		return err
	}
	defer st.Close()

	loginURL := loginPageURL(cfg.ListenAddr)
	loc := &web.Location{}

	opts := []session.Option{
		session.WithListener(session.NewLogListener(logger)),
		session.WithListener(loginHint(logger, loginURL)),
	}

	var app *tui.App
	if watchTUI {
		app = tui.NewWithConfig(tui.Config{
			RefreshRate:     tui.DefaultConfig().RefreshRate,
			LoginHint:       loginURL,
			PauseWhenHidden: cfg.PauseWhenHidden,
		})
		opts = append(opts, session.WithListener(app))
	}

	ctrl := session.New(sessionConfig(cfg), newAuthFlow(cfg), st, newSpotifyClient(), loc, logger, opts...)
	if app != nil {
		app.SetControls(ctrl)
	}

	srv, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.ListenAddr,
		RefreshEvery: cfg.PollDuration(),
	}, ctrl, loc, logger)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	ctx, cancel := shutdownContext(logger)
	defer cancel()

	runners := []func(context.Context) error{ctrl.Run, srv.Run}
	if app != nil {
		runners = append(runners, app.Run)
	}

	if err := runAll(ctx, cancel, runners...); err != nil {
		return err
	}

	logger.Info().Msg("Stopped")
	return nil
}

// loginHint logs where to log in whenever the session is logged out.
func loginHint(logger zerolog.Logger, loginURL string) session.Listener {
	return session.Funcs{
		StateChange: func(state session.State) {
			if state == session.LoggedOut {
				logger.Info().Str("url", loginURL).Msg("Open this URL to log in to Spotify")
			}
		},
	}
}

// shutdownContext is cancelled on the first SIGINT/SIGTERM. A second signal
// forces exit.
func shutdownContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}
		logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return ctx, cancel
}

// runAll runs each function until the first one returns, then cancels the
// rest and waits for them. Cancellation is not reported as an error.
func runAll(ctx context.Context, cancel context.CancelFunc, runners ...func(context.Context) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, run := range runners {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			defer cancel()

			err := run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(run)
	}

	wg.Wait()
	return firstErr
}
