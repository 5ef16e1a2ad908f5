package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cienspay/cienspay-web/guard"
	"github.com/cienspay/cienspay-web/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"
)

// Query parameters carrying one-shot messages across a redirect
const (
	queryFlash = "flash"
	queryError = "error"
)

// layoutData is what the shared layout needs on every page
type layoutData struct {
	AppName   string
	Year      int
	LoggedIn  bool
	IsAdmin   bool
	UserName  string
	UserEmail string
	Flash     string
	Error     string
}

// layout builds the layout data for the current session. m may be nil on pages without a guard.
func (s *Server) layout(r *http.Request, m *session.Manager) layoutData {
	data := layoutData{
		AppName: s.appName,
		Year:    time.Now().Year(),
		Flash:   r.URL.Query().Get(queryFlash),
		Error:   r.URL.Query().Get(queryError),
	}
	if m == nil {
		return data
	}
	data.LoggedIn = m.IsLoggedIn()
	data.IsAdmin = m.IsAdmin()
	if u, ok := m.User(); ok {
		data.UserName = u.FullName
		data.UserEmail = u.Email
		if data.UserName == "" {
			data.UserName = u.Email
		}
	}
	return data
}

// sessionManager returns the manager a guard stored in the context, or binds a new one
func (s *Server) sessionManager(w http.ResponseWriter, r *http.Request) *session.Manager {
	if m := guard.ManagerFrom(r.Context()); m != nil {
		return m
	}
	return s.manager(w, r)
}

// render executes a page into a buffer first so a template error never leaves a half written page
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		log.Ctx(r.Context()).Error().Str("page", page).Msg("unknown page template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		log.Ctx(r.Context()).Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Ctx(r.Context()).Err(err).Str("page", page).Msg("Failed to write page")
	}
}

type healthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
	API    string `json:"api"`
}

// HealthHandler reports liveness; it does not call the backend
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", App: s.appName, API: s.api.BaseURL()}); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to write health response")
		}
	}
}

func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

// NotFoundHandler handles 404 errors
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 - Page not found", http.StatusNotFound)
	}
}
