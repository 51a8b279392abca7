package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
)

const pageTitle = "Spotify Now Playing"

type pageData struct {
	Title     string
	RefreshMs int64
}

type snapshotJSON struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	ArtworkURL string   `json:"artwork_url"`
	ProgressMs int64    `json:"progress_ms"`
	DurationMs int64    `json:"duration_ms"`
	State      string   `json:"state"`
}

type errorJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

type nowResponse struct {
	State    string        `json:"state"`
	Snapshot *snapshotJSON `json:"snapshot,omitempty"`
	Percent  float64       `json:"percent"`
	Elapsed  string        `json:"elapsed"`
	Duration string        `json:"duration"`
	Error    *errorJSON    `json:"error,omitempty"`
}

type callbackRequest struct {
	Fragment string `json:"fragment"`
	Query    string `json:"query"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "page.html")
}

func (s *Server) handleCallbackPage(w http.ResponseWriter, r *http.Request) {
	// An authorization code arrives in the query, so it can be handled here.
	// The implicit grant's fragment never reaches the server; the page posts it.
	if r.URL.RawQuery != "" {
		s.location.Set("", r.URL.RawQuery)
		if err := s.session.Retry(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("Failed to apply redirect")
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, "callback.html")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	u, err := s.session.LoginURL(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build login URL")
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrConfigMissing) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.now())
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.location.Set(req.Fragment, req.Query)
	s.command(w, r, s.session.Retry(r.Context()))
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.command(w, r, s.session.SetVisible(r.Context(), req.Visible))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.session.ForceRefresh(r.Context()))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.session.Retry(r.Context()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.session.Logout(r.Context()))
}

// command answers with the session state after a command was applied.
func (s *Server) command(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Command failed")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.now())
}

func (s *Server) now() nowResponse {
	state := s.session.State()
	resp := nowResponse{
		State:    state.String(),
		Elapsed:  session.FormatTime(0),
		Duration: session.FormatTime(0),
	}

	if state == session.Active || state == session.Paused {
		snap := s.session.Snapshot()
		resp.Snapshot = &snapshotJSON{
			Title:      snap.Title,
			Artists:    snap.Artists,
			Album:      snap.Album,
			ArtworkURL: snap.ArtworkURL,
			ProgressMs: snap.ProgressMs,
			DurationMs: snap.DurationMs,
			State:      snap.State.String(),
		}
		resp.Percent = snap.Percent()
		resp.Elapsed = snap.Elapsed()
		resp.Duration = snap.Total()
	}

	if e := s.session.LastError(); e != nil {
		resp.Error = &errorJSON{
			Kind:    e.Kind.String(),
			Message: e.Message,
			Fatal:   e.Fatal(),
		}
	}

	return resp
}

func (s *Server) render(w http.ResponseWriter, name string) {
	data := pageData{
		Title:     pageTitle,
		RefreshMs: s.cfg.RefreshEvery.Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
