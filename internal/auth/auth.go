// Package auth implements the Spotify authorization flows used by a public
// client: the implicit grant (token in the redirect fragment) and the PKCE
// authorization-code grant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultExpiresIn is applied when the provider omits the token lifetime.
const DefaultExpiresIn = 3600

// Response types accepted by the authorize endpoint.
const (
	ResponseTypeToken = "token"
	ResponseTypeCode  = "code"
)

// DefaultScopes are the capabilities needed to read playback state and history.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadRecentlyPlayed,
}

// ErrMissingCodeVerifier is returned when a PKCE redirect arrives but no verifier was stored.
var ErrMissingCodeVerifier = errors.New("no code verifier found")

// Config holds the static client registration.
type Config struct {
	ClientID    string       // Required: application client id
	RedirectURI string       // Required: must match the registered redirect URI
	Scopes      []string     // Optional: defaults to DefaultScopes
	PKCE        bool         // Use the authorization-code flow with PKCE instead of the implicit grant
	AuthURL     string       // Optional: defaults to the Spotify accounts authorize endpoint
	TokenURL    string       // Optional: defaults to the Spotify accounts token endpoint
	HTTPClient  *http.Client // Optional: used for the code exchange
}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenExchangeError is returned when the token endpoint answers with a non-2xx status.
type TokenExchangeError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %s", e.Status)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// Flow builds authorization URLs and exchanges codes for one client registration.
type Flow struct {
	cfg    Config
	oauth  *oauth2.Config
	client *http.Client
}

// New creates a Flow. Missing client id or redirect URI is not an error here;
// callers check Configured before starting a login.
func New(cfg Config) *Flow {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = spotifyauth.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Flow{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
	}
}

// Configured reports whether the client id and redirect URI are both set.
func (f *Flow) Configured() bool {
	return f.cfg.ClientID != "" && f.cfg.RedirectURI != ""
}

// PKCE reports whether the flow uses the authorization-code grant.
func (f *Flow) PKCE() bool {
	return f.cfg.PKCE
}

// AuthorizationURL returns the authorize URL for this client. codeChallenge is
// only used when PKCE is enabled.
func (f *Flow) AuthorizationURL(codeChallenge string) string {
	opts := URLOptions{
		ClientID:     f.cfg.ClientID,
		RedirectURI:  f.cfg.RedirectURI,
		Scopes:       f.cfg.Scopes,
		ResponseType: ResponseTypeToken,
	}
	if f.cfg.PKCE {
		opts.ResponseType = ResponseTypeCode
		opts.CodeChallenge = codeChallenge
	}
	return BuildAuthorizationURL(f.cfg.AuthURL, opts)
}

// URLOptions are the query parameters of an authorization request.
type URLOptions struct {
	ClientID      string
	RedirectURI   string
	Scopes        []string
	ResponseType  string // ResponseTypeToken or ResponseTypeCode
	CodeChallenge string // adds code_challenge and code_challenge_method=S256 when set
}

// BuildAuthorizationURL encodes opts onto authURL. The consent dialog is
// always forced so that switching accounts is possible.
func BuildAuthorizationURL(authURL string, opts URLOptions) string {
	responseType := opts.ResponseType
	if responseType == "" {
		responseType = ResponseTypeToken
	}

	params := url.Values{}
	params.Set("client_id", opts.ClientID)
	params.Set("response_type", responseType)
	params.Set("redirect_uri", opts.RedirectURI)
	params.Set("scope", strings.Join(opts.Scopes, " "))
	params.Set("show_dialog", "true")
	if opts.CodeChallenge != "" {
		params.Set("code_challenge", opts.CodeChallenge)
		params.Set("code_challenge_method", "S256")
	}

	sep := "?"
	if strings.Contains(authURL, "?") {
		sep = "&"
	}
	return authURL + sep + params.Encode()
}

// ExchangeCodeForToken trades an authorization code and its verifier for a token.
func (f *Flow) ExchangeCodeForToken(ctx context.Context, code, verifier string) (*Token, error) {
	if verifier == "" {
		return nil, ErrMissingCodeVerifier
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	acquiredAt := time.Now()

	tok, err := f.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &TokenExchangeError{
				StatusCode: retrieveErr.Response.StatusCode,
				Status:     retrieveErr.Response.Status,
				Err:        err,
			}
		}
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = ExpiresAt(acquiredAt, 0)
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// ExpiresAt converts a relative lifetime into an absolute expiry. A lifetime
// of zero or less means the provider omitted it.
func ExpiresAt(acquiredAt time.Time, expiresIn int) time.Time {
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	return acquiredAt.Add(time.Duration(expiresIn) * time.Second)
}
