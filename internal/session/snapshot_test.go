package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name     string
		progress int64
		duration int64
		want     float64
	}{
		{"quarter", 50000, 200000, 25},
		{"start", 0, 200000, 0},
		{"end", 200000, 200000, 100},
		{"zero duration", 5000, 0, 0},
		{"negative duration", 5000, -1, 0},
		{"overrun clamps", 300000, 200000, 100},
		{"negative progress clamps", -10, 200000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressPercent(tt.progress, tt.duration); got != tt.want {
				t.Errorf("ProgressPercent(%d, %d) = %v, want %v", tt.progress, tt.duration, got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{65000, "1:05"},
		{-5, "0:00"},
		{50000, "0:50"},
		{999, "0:00"},
		{3599000, "59:59"},
		{3600000, "60:00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.ms); got != tt.want {
			t.Errorf("FormatTime(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestSnapshotArtistsAreCopied(t *testing.T) {
	api := &fakeAPI{current: []response{ok(`{"is_playing":true,"progress_ms":1,"item":{"name":"S","duration_ms":10,"artists":[{"name":"A"},{"name":"B"}]}}`)}}

	snap, err := FetchSnapshot(context.Background(), api, "tok", FetchOptions{})
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if snap.ArtistLine() != "A, B" {
		t.Errorf("ArtistLine() = %q", snap.ArtistLine())
	}
}

func TestFetchSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		current   response
		recent    response
		fallback  bool
		wantState PlaybackState
		wantTitle string
		wantKind  *Kind
	}{
		{
			name:      "playing",
			current:   ok(playingBody("Now", 1, 2, true)),
			wantState: PlaybackPlaying,
			wantTitle: "Now",
		},
		{
			name:      "success without item uses history",
			current:   ok(`{"is_playing":false,"item":null}`),
			recent:    ok(`{"items":[{"track":{"name":"Before"}}]}`),
			fallback:  true,
			wantState: PlaybackRecent,
			wantTitle: "Before",
		},
		{
			name:      "no content without fallback",
			current:   status(http.StatusNoContent, "No Content"),
			wantState: PlaybackNone,
		},
		{
			name:      "empty history",
			current:   status(http.StatusNoContent, "No Content"),
			recent:    ok(`{"items":[]}`),
			fallback:  true,
			wantState: PlaybackNone,
		},
		{
			name:      "history failure",
			current:   status(http.StatusNoContent, "No Content"),
			recent:    status(http.StatusInternalServerError, "Internal Server Error"),
			fallback:  true,
			wantState: PlaybackNone,
		},
		{
			name:      "history network failure",
			current:   status(http.StatusNoContent, "No Content"),
			recent:    response{err: errors.New("reset")},
			fallback:  true,
			wantState: PlaybackNone,
		},
		{
			name:     "unauthorized",
			current:  status(http.StatusUnauthorized, "Unauthorized"),
			wantKind: kindPtr(KindTokenExpired),
		},
		{
			name:     "unauthorized history",
			current:  status(http.StatusNoContent, "No Content"),
			recent:   status(http.StatusUnauthorized, "Unauthorized"),
			fallback: true,
			wantKind: kindPtr(KindTokenExpired),
		},
		{
			name:     "server error",
			current:  status(http.StatusBadGateway, "Bad Gateway"),
			wantKind: kindPtr(KindTransientHTTP),
		},
		{
			name:     "bad payload",
			current:  ok(`{"item":`),
			wantKind: kindPtr(KindTransientHTTP),
		},
		{
			name:     "network",
			current:  response{err: errors.New("dial tcp: refused")},
			wantKind: kindPtr(KindNetwork),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{current: []response{tt.current}, recent: []response{tt.recent}}

			snap, err := FetchSnapshot(context.Background(), api, "tok", FetchOptions{RecentlyPlayedFallback: tt.fallback})

			if tt.wantKind != nil {
				var sessErr *Error
				if !errors.As(err, &sessErr) {
					t.Fatalf("expected *Error, got %v", err)
				}
				if sessErr.Kind != *tt.wantKind {
					t.Errorf("Kind = %v, want %v", sessErr.Kind, *tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap.State != tt.wantState {
				t.Errorf("State = %v, want %v", snap.State, tt.wantState)
			}
			if snap.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", snap.Title, tt.wantTitle)
			}
			if tt.wantState == PlaybackRecent && snap.ProgressMs != 0 {
				t.Errorf("ProgressMs = %d, want 0 for history", snap.ProgressMs)
			}
		})
	}
}

func kindPtr(k Kind) *Kind { return &k }

func TestErrorFatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindConfigMissing, true},
		{KindAuthDenied, true},
		{KindTokenExpired, false},
		{KindTransientHTTP, false},
		{KindNetwork, false},
	}

	for _, tt := range tests {
		err := &Error{Kind: tt.kind}
		if err.Fatal() != tt.fatal {
			t.Errorf("%s: Fatal() = %v, want %v", tt.kind, err.Fatal(), tt.fatal)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Kind: KindNetwork, Message: "Network error", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "Network error: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Error("different kinds must not match")
	}
}

func TestMultiListener(t *testing.T) {
	var states []State
	var tracks []string
	var errs []Kind

	l := Multi{
		Funcs{StateChange: func(s State) { states = append(states, s) }},
		Funcs{TrackUpdate: func(s Snapshot) { tracks = append(tracks, s.Title) }},
		Funcs{Error: func(e *Error) { errs = append(errs, e.Kind) }},
		Funcs{},
	}

	l.OnStateChange(Active)
	l.OnTrackUpdate(Snapshot{Title: "T"})
	l.OnError(&Error{Kind: KindNetwork})

	if len(states) != 1 || states[0] != Active {
		t.Errorf("states = %v", states)
	}
	if len(tracks) != 1 || tracks[0] != "T" {
		t.Errorf("tracks = %v", tracks)
	}
	if len(errs) != 1 || errs[0] != KindNetwork {
		t.Errorf("errs = %v", errs)
	}
}

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogListener(zerolog.New(&buf))

	l.OnStateChange(Active)
	l.OnTrackUpdate(Snapshot{Title: "Song", Artists: []string{"A"}, State: PlaybackPlaying, DurationMs: 1000})
	l.OnTrackUpdate(Snapshot{Title: "Song", Artists: []string{"A"}, State: PlaybackPlaying, DurationMs: 1000, ProgressMs: 500})
	l.OnError(&Error{Kind: KindAuthDenied, Message: "Authentication failed: access_denied"})

	out := buf.String()
	for _, want := range []string{`"state":"active"`, `"track":"Song"`, `"kind":"auth_denied"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "Track update"); n != 1 {
		t.Errorf("expected one track update line, got %d", n)
	}
}
