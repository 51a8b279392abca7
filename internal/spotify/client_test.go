package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantKind   OutcomeKind
		wantText   string
		wantBody   string
	}{
		{"success", http.StatusOK, `{"is_playing":true}`, Success, "OK", `{"is_playing":true}`},
		{"no content", http.StatusNoContent, "", NoContent, "No Content", ""},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"status":401}}`, Unauthorized, "Unauthorized", ""},
		{"rate limited", http.StatusTooManyRequests, "", HTTPError, "Too Many Requests", ""},
		{"server error", http.StatusBadGateway, "", HTTPError, "Bad Gateway", ""},
		{"forbidden", http.StatusForbidden, "", HTTPError, "Forbidden", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
					t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL, HTTPClient: server.Client()})

			outcome, err := client.Request(context.Background(), "tok-1", "/v1/anything", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", outcome.Kind, tt.wantKind)
			}
			if outcome.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", outcome.StatusCode, tt.statusCode)
			}
			if outcome.StatusText != tt.wantText {
				t.Errorf("StatusText = %q, want %q", outcome.StatusText, tt.wantText)
			}
			if string(outcome.Body) != tt.wantBody {
				t.Errorf("Body = %q, want %q", outcome.Body, tt.wantBody)
			}
		})
	}
}

func TestRequestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(Config{BaseURL: url})

	if _, err := client.Request(context.Background(), "tok", "/v1/me", nil); err == nil {
		t.Fatal("expected transport error, got nil")
	}
}

func TestCurrentlyPlayingRequest(t *testing.T) {
	tests := []struct {
		name            string
		includeEpisodes bool
		wantQuery       string
	}{
		{"tracks only", false, ""},
		{"with episodes", true, "additional_types=track%2Cepisode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				if r.URL.Path != "/v1/me/player/currently-playing" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("query = %q, want %q", r.URL.RawQuery, tt.wantQuery)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL + "/"})
			outcome, err := client.CurrentlyPlaying(context.Background(), "tok", tt.includeEpisodes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.Kind != NoContent {
				t.Errorf("Kind = %v, want NoContent", outcome.Kind)
			}
		})
	}
}

func TestRecentlyPlayedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/player/recently-played" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q, want 1", got)
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	outcome, err := client.RecentlyPlayed(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != Success {
		t.Errorf("Kind = %v, want Success", outcome.Kind)
	}
}

func TestDecodeCurrentlyPlaying(t *testing.T) {
	body := []byte(`{
		"timestamp": 1700000000000,
		"progress_ms": 50000,
		"is_playing": true,
		"currently_playing_type": "track",
		"item": {
			"type": "track",
			"id": "t1",
			"name": "Song",
			"duration_ms": 200000,
			"artists": [{"name": "A"}, {"name": "B"}],
			"album": {"name": "Record", "images": [{"url": "https://img/640", "height": 640, "width": 640}, {"url": "https://img/300"}]}
		}
	}`)

	cp, err := DecodeCurrentlyPlaying(body)
	if err != nil {
		t.Fatalf("DecodeCurrentlyPlaying() error = %v", err)
	}
	if !cp.IsPlaying || cp.ProgressMs != 50000 {
		t.Errorf("unexpected playback fields: %+v", cp)
	}
	if cp.Item == nil {
		t.Fatal("expected item")
	}
	if got := cp.Item.ArtistNames(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("ArtistNames() = %v", got)
	}
	if got := cp.Item.AlbumName(); got != "Record" {
		t.Errorf("AlbumName() = %q", got)
	}
	if got := cp.Item.ArtworkURL(); got != "https://img/640" {
		t.Errorf("ArtworkURL() = %q", got)
	}
}

func TestDecodeEpisode(t *testing.T) {
	body := []byte(`{
		"progress_ms": 1000,
		"is_playing": false,
		"currently_playing_type": "episode",
		"item": {
			"type": "episode",
			"name": "Episode 12",
			"duration_ms": 3600000,
			"images": [{"url": "https://img/ep"}],
			"show": {"name": "The Show", "publisher": "Pod Co"}
		}
	}`)

	cp, err := DecodeCurrentlyPlaying(body)
	if err != nil {
		t.Fatalf("DecodeCurrentlyPlaying() error = %v", err)
	}
	if got := cp.Item.ArtistNames(); len(got) != 1 || got[0] != "Pod Co" {
		t.Errorf("ArtistNames() = %v", got)
	}
	if got := cp.Item.AlbumName(); got != "The Show" {
		t.Errorf("AlbumName() = %q", got)
	}
	if got := cp.Item.ArtworkURL(); got != "https://img/ep" {
		t.Errorf("ArtworkURL() = %q", got)
	}
}

func TestDecodeNoItem(t *testing.T) {
	cp, err := DecodeCurrentlyPlaying([]byte(`{"is_playing":false,"item":null}`))
	if err != nil {
		t.Fatalf("DecodeCurrentlyPlaying() error = %v", err)
	}
	if cp.Item != nil {
		t.Error("expected nil item")
	}

	var item *Item
	if item.ArtistNames() != nil || item.AlbumName() != "" || item.ArtworkURL() != "" {
		t.Error("nil item accessors should return zero values")
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := DecodeCurrentlyPlaying([]byte(`{`)); err == nil {
		t.Error("expected error for truncated currently playing body")
	}
	if _, err := DecodeRecentlyPlayed([]byte(`[]`)); err == nil {
		t.Error("expected error for wrong recently played shape")
	}
}

func TestDecodeRecentlyPlayed(t *testing.T) {
	rp, err := DecodeRecentlyPlayed([]byte(`{"items":[{"played_at":"2026-01-01T00:00:00Z","track":{"name":"Old","duration_ms":180000,"artists":[{"name":"X"}],"album":{"name":"Y"}}}]}`))
	if err != nil {
		t.Fatalf("DecodeRecentlyPlayed() error = %v", err)
	}
	if len(rp.Items) != 1 || rp.Items[0].Track.Name != "Old" {
		t.Errorf("unexpected items: %+v", rp.Items)
	}
}

func TestVerifyToken(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		body         string
		wantErr      bool
		unauthorized bool
		wantName     string
	}{
		{
			name:       "valid",
			statusCode: http.StatusOK,
			body:       `{"id":"u1","display_name":"Listener"}`,
			wantName:   "Listener",
		},
		{
			name:         "expired",
			statusCode:   http.StatusUnauthorized,
			body:         `{"error":{"status":401,"message":"The access token expired"}}`,
			wantErr:      true,
			unauthorized: true,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			body:       `{"error":{"status":500,"message":"boom"}}`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/me" {
					t.Errorf("path = %s, want /v1/me", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("Authorization = %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL, HTTPClient: server.Client()})
			user, err := client.VerifyToken(context.Background(), "secret")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := errors.Is(err, ErrUnauthorized); got != tt.unauthorized {
					t.Errorf("errors.Is(ErrUnauthorized) = %v, want %v (err: %v)", got, tt.unauthorized, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.DisplayName != tt.wantName || user.ID != "u1" {
				t.Errorf("unexpected user: %+v", user)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	o := Outcome{Kind: HTTPError, StatusCode: 503, StatusText: "Service Unavailable"}
	if got := o.String(); got != "HTTP 503: Service Unavailable" {
		t.Errorf("String() = %q", got)
	}
}
