package session

import (
	"github.com/rs/zerolog"
)

// Listener receives controller events. Callbacks run on the controller's
// loop goroutine and must not block or call back into the controller
// synchronously.
type Listener interface {
	OnStateChange(state State)
	OnTrackUpdate(snapshot Snapshot)
	OnError(err *Error)
}

// Funcs adapts optional functions to a Listener.
type Funcs struct {
	StateChange func(State)
	TrackUpdate func(Snapshot)
	Error       func(*Error)
}

func (f Funcs) OnStateChange(state State) {
	if f.StateChange != nil {
		f.StateChange(state)
	}
}

func (f Funcs) OnTrackUpdate(snapshot Snapshot) {
	if f.TrackUpdate != nil {
		f.TrackUpdate(snapshot)
	}
}

func (f Funcs) OnError(err *Error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Multi fans events out to several listeners in order.
type Multi []Listener

func (m Multi) OnStateChange(state State) {
	for _, l := range m {
		l.OnStateChange(state)
	}
}

func (m Multi) OnTrackUpdate(snapshot Snapshot) {
	for _, l := range m {
		l.OnTrackUpdate(snapshot)
	}
}

func (m Multi) OnError(err *Error) {
	for _, l := range m {
		l.OnError(err)
	}
}

// LogListener writes events to a zerolog logger. Track updates are logged
// only when the track or playback state changes.
type LogListener struct {
	logger zerolog.Logger
	last   Snapshot
}

// NewLogListener creates a LogListener.
func NewLogListener(logger zerolog.Logger) *LogListener {
	return &LogListener{
		logger: logger.With().Str("component", "renderer").Logger(),
	}
}

func (l *LogListener) OnStateChange(state State) {
	l.logger.Info().Str("state", state.String()).Msg("Session state changed")
}

func (l *LogListener) OnTrackUpdate(snapshot Snapshot) {
	changed := snapshot.Title != l.last.Title ||
		snapshot.ArtistLine() != l.last.ArtistLine() ||
		snapshot.State != l.last.State
	l.last = snapshot

	if !changed {
		l.logger.Debug().
			Str("progress", snapshot.Elapsed()).
			Float64("percent", snapshot.Percent()).
			Msg("Progress")
		return
	}

	if snapshot.Empty() {
		l.logger.Info().Msg("Nothing playing")
		return
	}

	l.logger.Info().
		Str("track", snapshot.Title).
		Str("artist", snapshot.ArtistLine()).
		Str("album", snapshot.Album).
		Str("state", snapshot.State.String()).
		Str("progress", snapshot.Elapsed()).
		Str("duration", snapshot.Total()).
		Msg("Track update")
}

func (l *LogListener) OnError(err *Error) {
	event := l.logger.Warn()
	if err.Fatal() {
		event = l.logger.Error()
	}
	event.Err(err).Str("kind", err.Kind.String()).Msg("Session error")
}
