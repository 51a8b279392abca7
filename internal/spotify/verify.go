package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// ErrUnauthorized is returned by VerifyToken when the API rejects the token.
var ErrUnauthorized = errors.New("spotify: token expired or invalid")

// User is the subset of the current user profile that is logged on login.
type User struct {
	ID          string
	DisplayName string
}

// VerifyToken checks that token is accepted by fetching the current user profile.
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	api := spotifyapi.New(httpClient, spotifyapi.WithBaseURL(c.baseURL+"/v1/"))

	user, err := api.CurrentUser(ctx)
	if err != nil {
		if apiStatus(err) == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	return &User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
	}, nil
}

// apiStatus extracts the HTTP status from a spotify API error, or 0.
func apiStatus(err error) int {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotifyapi.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status
	}
	return 0
}
