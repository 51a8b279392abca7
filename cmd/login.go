package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/config"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/web"
)

var loginPKCE bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect your Spotify account",
	Long: `Connect your Spotify account.

This command will guide you through the Spotify login:
1. You'll be prompted for your Spotify application client id
2. A local URL will be printed for you to open in a browser
3. After you approve access, the token is saved to the data directory

Register an application at https://developer.spotify.com/dashboard and
add the redirect URI shown below to it.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().BoolVar(&loginPKCE, "pkce", false, "Use the authorization code flow with PKCE")
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Spotify Login")
	fmt.Println("=============")
	fmt.Println()
	fmt.Printf("Redirect URI: %s\n\n", cfg.RedirectURI)

	if cfg.ClientID != "" {
		fmt.Printf("Found existing client id: %s\n", cfg.ClientID)
		fmt.Print("\nUse existing client id? [Y/n]: ")
		response, err := reader.ReadString('\n')
		if err != nil {
			response = "y"
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			cfg.ClientID = ""
		}
	}

	if cfg.ClientID == "" {
		fmt.Print("Enter your Spotify client id: ")
		clientID, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client id: %w", err)
		}
		cfg.ClientID = strings.TrimSpace(clientID)
	}

	if cfg.ClientID == "" {
		return fmt.Errorf("client id is required")
	}

	if cmd.Flags().Changed("pkce") {
		cfg.PKCE = loginPKCE
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger := setupLogger("", "warn")

	st, err := openTokenStore()
	if err != nil {
		return err
	}
	defer st.Close()

	creds, err := st.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if creds.Valid(time.Now()) {
		fmt.Printf("\nAlready logged in (token valid until %s).\n", creds.ExpiresAt.Local().Format(time.Kitchen))
		fmt.Println("Run 'spotifyweb-connect logout' first to switch accounts.")
		return nil
	}

	ctx, cancel := shutdownContext(logger)
	defer cancel()

	loc := &web.Location{}
	connected := false

	done := session.Funcs{
		StateChange: func(state session.State) {
			if state == session.Active {
				connected = true
				cancel()
			}
		},
		Error: func(err *session.Error) {
			if err.Fatal() {
				fmt.Printf("\n✗ %s\n", err.Message)
				if errors.Is(err, session.ErrAuthDenied) {
					fmt.Println("Access was not granted. Run 'spotifyweb-connect login' again to retry.")
				}
				cancel()
			}
		},
	}

	ctrl := session.New(sessionConfig(cfg), newAuthFlow(cfg), st, newSpotifyClient(), loc, logger, session.WithListener(done))

	srv, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.ListenAddr,
		RefreshEvery: cfg.PollDuration(),
	}, ctrl, loc, logger)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	fmt.Println("\nPlease open this URL in your browser to log in:")
	fmt.Printf("\n  %s\n\n", loginPageURL(cfg.ListenAddr))
	fmt.Println("Waiting for Spotify to redirect back...")

	if err := runAll(ctx, cancel, ctrl.Run, srv.Run); err != nil {
		return err
	}

	// The listener runs on the controller goroutine, which has exited.
	if !connected {
		return fmt.Errorf("login did not complete")
	}

	fmt.Printf("\n✓ Logged in!\n")
	fmt.Printf("✓ Client id saved to %s/config.yaml\n", config.GetConfigDir())
	fmt.Println("\nYou can now use 'spotifyweb-connect watch' or 'spotifyweb-connect now'.")

	return nil
}
