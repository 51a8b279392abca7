// Package spotify is a minimal client for the two Spotify Web API playback
// endpoints the widget reads, plus token verification.
//
// Responses are classified rather than turned into errors: a 204 or 401 is a
// normal outcome the caller reacts to, not a failure of the request.
package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the Spotify Web API host.
	DefaultBaseURL = "https://api.spotify.com"

	currentlyPlayingPath = "/v1/me/player/currently-playing"
	recentlyPlayedPath   = "/v1/me/player/recently-played"
)

// Config holds client configuration.
type Config struct {
	BaseURL    string       // Optional: defaults to DefaultBaseURL (used for testing)
	HTTPClient *http.Client // Optional: defaults to http.DefaultClient
}

// Client issues bearer-authenticated GET requests. It never retries and never
// refreshes tokens; both are the caller's decision.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// OutcomeKind classifies an HTTP response.
type OutcomeKind int

const (
	Success      OutcomeKind = iota // 2xx other than 204, Body holds the JSON payload
	NoContent                       // 204
	Unauthorized                    // 401
	HTTPError                       // any other status
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case NoContent:
		return "no_content"
	case Unauthorized:
		return "unauthorized"
	case HTTPError:
		return "http_error"
	default:
		return "unknown"
	}
}

// Outcome is a classified response.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	StatusText string
	Body       []byte
}

// String formats the status the way it is shown to the user.
func (o Outcome) String() string {
	return fmt.Sprintf("HTTP %d: %s", o.StatusCode, o.StatusText)
}

// Request performs GET path?query with the given bearer token. The returned
// error is only set for transport failures (network, unreadable body).
func (c *Client) Request(ctx context.Context, token, path string, query url.Values) (Outcome, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create request: %w", err)
	}

	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	outcome := Outcome{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		outcome.Kind = Unauthorized
	case resp.StatusCode == http.StatusNoContent:
		outcome.Kind = NoContent
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to read response: %w", err)
		}
		outcome.Kind = Success
		outcome.Body = body
	default:
		outcome.Kind = HTTPError
	}

	return outcome, nil
}

// CurrentlyPlaying fetches the user's current playback. includeEpisodes asks
// the API to return podcast episodes as well as tracks.
func (c *Client) CurrentlyPlaying(ctx context.Context, token string, includeEpisodes bool) (Outcome, error) {
	var query url.Values
	if includeEpisodes {
		query = url.Values{"additional_types": {"track,episode"}}
	}
	return c.Request(ctx, token, currentlyPlayingPath, query)
}

// RecentlyPlayed fetches the single most recent play history entry.
func (c *Client) RecentlyPlayed(ctx context.Context, token string) (Outcome, error) {
	return c.Request(ctx, token, recentlyPlayedPath, url.Values{"limit": {"1"}})
}

// statusText strips the numeric prefix from resp.Status ("404 Not Found" -> "Not Found").
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
