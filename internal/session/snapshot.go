package session

import (
	"fmt"
	"strings"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/spotify"
)

// PlaybackState describes what a Snapshot represents.
type PlaybackState int

const (
	PlaybackNone    PlaybackState = iota // nothing playing and no history
	PlaybackPlaying                      // currently playing
	PlaybackPaused                       // current item, paused
	PlaybackRecent                       // last played item from history
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	case PlaybackRecent:
		return "recent"
	default:
		return "none"
	}
}

// Snapshot is the track metadata of one poll. A Snapshot is never modified
// after it is built; a new poll produces a new one.
type Snapshot struct {
	Title      string
	Artists    []string
	Album      string
	ArtworkURL string
	ProgressMs int64
	DurationMs int64
	State      PlaybackState
}

// Percent returns the playback progress as a percentage.
func (s Snapshot) Percent() float64 {
	return ProgressPercent(s.ProgressMs, s.DurationMs)
}

// Elapsed returns the formatted progress.
func (s Snapshot) Elapsed() string {
	return FormatTime(s.ProgressMs)
}

// Total returns the formatted duration.
func (s Snapshot) Total() string {
	return FormatTime(s.DurationMs)
}

// ArtistLine joins the artist names for display.
func (s Snapshot) ArtistLine() string {
	return strings.Join(s.Artists, ", ")
}

// Empty reports whether the snapshot carries no track.
func (s Snapshot) Empty() bool {
	return s.State == PlaybackNone
}

// ProgressPercent returns 100*progress/duration clamped to [0, 100].
// A zero or negative duration yields 0.
func ProgressPercent(progressMs, durationMs int64) float64 {
	if durationMs <= 0 {
		return 0
	}
	p := float64(progressMs) / float64(durationMs) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// FormatTime renders milliseconds as m:ss. Negative values render as 0:00.
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func snapshotFromItem(item *spotify.Item, progressMs int64, state PlaybackState) Snapshot {
	var artists []string
	if names := item.ArtistNames(); len(names) > 0 {
		artists = make([]string, len(names))
		copy(artists, names)
	}

	duration := item.DurationMs
	if duration < 0 {
		duration = 0
	}

	return Snapshot{
		Title:      item.Name,
		Artists:    artists,
		Album:      item.AlbumName(),
		ArtworkURL: item.ArtworkURL(),
		ProgressMs: progressMs,
		DurationMs: duration,
		State:      state,
	}
}
