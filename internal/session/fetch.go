package session

import (
	"context"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/spotify"
)

// API is the subset of the Spotify client used by the session.
type API interface {
	CurrentlyPlaying(ctx context.Context, token string, includeEpisodes bool) (spotify.Outcome, error)
	RecentlyPlayed(ctx context.Context, token string) (spotify.Outcome, error)
	VerifyToken(ctx context.Context, token string) (*spotify.User, error)
}

// FetchOptions control a single snapshot fetch.
type FetchOptions struct {
	IncludeEpisodes        bool
	RecentlyPlayedFallback bool
}

// FetchSnapshot performs one poll: the currently playing item, falling back
// to the most recent history entry when nothing is playing.
//
// The returned error is always a *Error. KindTokenExpired means the token was
// rejected and takes precedence over everything else.
func FetchSnapshot(ctx context.Context, api API, token string, opts FetchOptions) (Snapshot, error) {
	outcome, err := api.CurrentlyPlaying(ctx, token, opts.IncludeEpisodes)
	if err != nil {
		return Snapshot{}, networkError(err)
	}

	switch outcome.Kind {
	case spotify.Unauthorized:
		return Snapshot{}, &Error{Kind: KindTokenExpired, Message: "Session expired, please log in again"}
	case spotify.HTTPError:
		return Snapshot{}, &Error{Kind: KindTransientHTTP, Message: outcome.String()}
	case spotify.Success:
		cp, err := spotify.DecodeCurrentlyPlaying(outcome.Body)
		if err != nil {
			return Snapshot{}, &Error{Kind: KindTransientHTTP, Message: "Failed to parse response", Err: err}
		}
		if cp.Item != nil {
			state := PlaybackPaused
			if cp.IsPlaying {
				state = PlaybackPlaying
			}
			return snapshotFromItem(cp.Item, cp.ProgressMs, state), nil
		}
	}

	// 204 or a payload without an item
	if !opts.RecentlyPlayedFallback {
		return Snapshot{State: PlaybackNone}, nil
	}
	return fetchRecent(ctx, api, token)
}

func fetchRecent(ctx context.Context, api API, token string) (Snapshot, error) {
	outcome, err := api.RecentlyPlayed(ctx, token)
	if err != nil {
		return Snapshot{State: PlaybackNone}, nil
	}

	switch outcome.Kind {
	case spotify.Unauthorized:
		return Snapshot{}, &Error{Kind: KindTokenExpired, Message: "Session expired, please log in again"}
	case spotify.Success:
		rp, err := spotify.DecodeRecentlyPlayed(outcome.Body)
		if err != nil || len(rp.Items) == 0 {
			return Snapshot{State: PlaybackNone}, nil
		}
		return snapshotFromItem(&rp.Items[0].Track, 0, PlaybackRecent), nil
	default:
		return Snapshot{State: PlaybackNone}, nil
	}
}
