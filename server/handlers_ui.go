package server

import (
	"net/http"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgSessionExpired = "Sesión expirada. Vuelve a iniciar sesión."
	msgForbidden      = "No tienes permisos para ver esta sección"
	msgUnexpected     = "Error inesperado del servidor"
)

// apiFailure maps a backend call error onto the status and inline message a page shows.
// A 401 here means the refresh already failed; the session is left for the user to end.
func apiFailure(err error) (int, string) {
	var apiErr *apiclient.Error
	switch {
	case errors.Is(err, errors.ErrUnauthorized):
		return http.StatusUnauthorized, msgSessionExpired
	case errors.Is(err, errors.ErrNetwork):
		return http.StatusBadGateway, auth.MsgNetwork
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		return http.StatusForbidden, apiclient.MessageOf(err, msgForbidden)
	}
	return http.StatusBadGateway, apiclient.MessageOf(err, msgUnexpected)
}

type dashboardPageData struct {
	layoutData
	Loaded  bool
	Summary apiclient.Summary
}

// DashboardHandler shows the user's balance, cards and transactions
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.sessionManager(w, r)

		summary, err := s.api.Summary(r.Context(), m)
		data := dashboardPageData{layoutData: s.layout(r, m)}
		if err != nil {
			status, msg := apiFailure(err)
			log.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("dashboard: summary unavailable")
			data.Error = msg
			s.render(w, r, status, pageDashboard, data)
			return
		}

		data.Loaded = true
		data.Summary = summary
		s.render(w, r, http.StatusOK, pageDashboard, data)
	}
}
