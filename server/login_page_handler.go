package server

import (
	"net/http"
	"strings"

	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	layoutData
	FormID string
	Email  string // Preserve email on error
	Errors auth.FieldErrors
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageLogin, LoginPageData{
			layoutData: s.layout(r, s.sessionManager(w, r)),
			FormID:     s.submits.NewFormID(),
			Email:      r.URL.Query().Get("email"),
		})
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		m := s.sessionManager(w, r)
		formID := r.PostFormValue(formIDField)
		form := auth.LoginForm{
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Password: r.PostFormValue("password"),
		}
		data := LoginPageData{layoutData: s.layout(r, m), FormID: formID, Email: form.Email}

		if err := s.submits.Begin(formID); err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("login: duplicate submit")
			if errors.Is(err, errors.ErrFormCompleted) {
				redirectSuccess(w, r, auth.DestinationFor(m))
				return
			}
			data.Errors = auth.FieldErrors{auth.FieldPassword: auth.MsgSubmitting}
			s.render(w, r, http.StatusConflict, pageLogin, data)
			return
		}

		result, err := s.auth.Login(r.Context(), m, form)
		if err != nil {
			s.submits.Fail(formID)
			var fieldErrs auth.FieldErrors
			if errors.As(err, &fieldErrs) {
				data.Errors = fieldErrs
				s.render(w, r, http.StatusUnprocessableEntity, pageLogin, data)
				return
			}
			log.Ctx(r.Context()).Err(err).Msg("login failed")
			data.Errors = auth.FieldErrors{auth.FieldPassword: auth.MsgLoginFailed}
			s.render(w, r, http.StatusInternalServerError, pageLogin, data)
			return
		}

		s.submits.Complete(formID)
		redirectSuccess(w, r, result.Destination)
	}
}

// LogoutHandler ends the session and returns to the landing page
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context(), s.manager(w, r)); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Logout: failed to clear session")
		}
		redirectSuccess(w, r, RouteIndex)
	}
}
