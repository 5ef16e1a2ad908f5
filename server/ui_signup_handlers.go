package server

import (
	"net/http"
	"strings"

	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/rs/zerolog/log"
)

// RegisterPageData contains data for rendering the register page
type RegisterPageData struct {
	layoutData
	FormID string
	Form   auth.RegisterForm
	Errors auth.FieldErrors
}

type registerSuccessData struct {
	layoutData
	Message string
	Email   string
}

// registerFormFrom reads the posted form. Passwords are never echoed back.
func registerFormFrom(r *http.Request) auth.RegisterForm {
	return auth.RegisterForm{
		DocumentType:    r.PostFormValue("documentType"),
		DocumentNumber:  strings.TrimSpace(r.PostFormValue("documentNumber")),
		FirstName:       strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:        strings.TrimSpace(r.PostFormValue("lastName")),
		Phone:           strings.TrimSpace(r.PostFormValue("phone")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
}

// RegisterPageHandler displays the register page (GET /register)
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageRegister, RegisterPageData{
			layoutData: s.layout(r, s.sessionManager(w, r)),
			FormID:     s.submits.NewFormID(),
		})
	}
}

// RegisterSubmissionHandler creates the account and shows the success page; it does not log in
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		formID := r.PostFormValue(formIDField)
		form := registerFormFrom(r)
		echo := form
		echo.Password, echo.ConfirmPassword = "", ""
		data := RegisterPageData{layoutData: s.layout(r, s.sessionManager(w, r)), FormID: formID, Form: echo}

		if err := s.submits.Begin(formID); err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("register: duplicate submit")
			if errors.Is(err, errors.ErrFormCompleted) {
				redirectSuccess(w, r, RouteLogin)
				return
			}
			data.Errors = auth.FieldErrors{auth.FieldPassword: auth.MsgSubmitting}
			s.render(w, r, http.StatusConflict, pageRegister, data)
			return
		}

		msg, err := s.auth.Register(r.Context(), form)
		if err != nil {
			s.submits.Fail(formID)
			var fieldErrs auth.FieldErrors
			if !errors.As(err, &fieldErrs) {
				log.Ctx(r.Context()).Err(err).Msg("register failed")
				fieldErrs = auth.FieldErrors{auth.FieldPassword: auth.MsgRegisterFailed}
			}
			data.Errors = fieldErrs
			s.render(w, r, http.StatusUnprocessableEntity, pageRegister, data)
			return
		}

		s.submits.Complete(formID)
		if msg == "" {
			msg = "Tu cuenta fue creada correctamente."
		}
		log.Ctx(r.Context()).Info().Msg("user registered")
		s.render(w, r, http.StatusOK, pageRegisterSuccess, registerSuccessData{
			layoutData: data.layoutData,
			Message:    msg,
			Email:      strings.ToLower(form.Email),
		})
	}
}
