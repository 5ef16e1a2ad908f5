package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/internal/utils"
	"github.com/cienspay/cienspay-web/session"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidID        = "Identificador inválido"
	msgUserUpdated      = "Usuario actualizado"
	msgUserDeleted      = "Usuario eliminado"
	msgBalanceUpdated   = "Balance actualizado"
	msgCardToggled      = "Estado de la tarjeta actualizado"
	msgCardGenerated    = "Tarjeta generada"
	msgMissingCardOwner = "Indica la cédula o el usuario"
)

// adminAction wraps the admin form posts: parse the form, run fn, then go back to the
// admin dashboard with fn's message as a flash, or its error as a banner
func (s *Server) adminAction(name string, fn func(r *http.Request, m *session.Manager) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteAdminDashboard, "Datos de formulario inválidos")
			return
		}

		msg, err := fn(r, s.sessionManager(w, r))
		if err != nil {
			var fieldErrs auth.FieldErrors
			if errors.As(err, &fieldErrs) {
				redirectWithError(w, r, RouteAdminDashboard, fieldErrs.First())
				return
			}
			_, userMsg := apiFailure(err)
			log.Ctx(r.Context()).Warn().Err(err).Str("action", name).Msg("admin action failed")
			redirectWithError(w, r, RouteAdminDashboard, userMsg)
			return
		}

		log.Ctx(r.Context()).Info().Str("action", name).Msg("admin action done")
		redirectWithFlash(w, r, RouteAdminDashboard, msg)
	}
}

var errInvalidID = auth.FieldErrors{"id": msgInvalidID}

// splitFullName puts the first word in FirstName and the rest in LastName
func splitFullName(full string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(last)
}

// AdminUserUpdateHandler edits a user's profile fields (POST /admin/users/{id})
func (s *Server) AdminUserUpdateHandler() http.HandlerFunc {
	return s.adminAction("update_user", func(r *http.Request, m *session.Manager) (string, error) {
		id, ok := pathID(r)
		if !ok {
			return "", errInvalidID
		}

		first, last := splitFullName(r.PostFormValue("fullName"))
		form := auth.RegisterForm{
			DocumentType:   r.PostFormValue("documentType"),
			DocumentNumber: strings.TrimSpace(r.PostFormValue("documentNumber")),
			FirstName:      first,
			LastName:       last,
			Phone:          strings.TrimSpace(r.PostFormValue("phone")),
			Email:          strings.TrimSpace(r.PostFormValue("email")),
			HidePassword:   true,
		}
		if errs := form.Validate(); errs != nil {
			return "", errs
		}

		req := auth.RegisterRequestFrom(form)
		patch := apiclient.UserPatch{
			FullName:       &req.FullName,
			Email:          &req.Email,
			DocumentNumber: &req.DocumentNumber,
			Phone:          &req.Phone,
		}
		if form.DocumentType != "" {
			patch.DocumentType = &req.DocumentType
		}
		if status := r.PostFormValue("status"); status == "active" || status == "inactive" {
			patch.Status = utils.Ptr(status)
		}

		if _, err := s.api.UpdateUser(r.Context(), m, id, patch); err != nil {
			return "", err
		}
		return msgUserUpdated, nil
	})
}

// AdminUserDeleteHandler deactivates a user, or removes it with hard=true
func (s *Server) AdminUserDeleteHandler() http.HandlerFunc {
	return s.adminAction("delete_user", func(r *http.Request, m *session.Manager) (string, error) {
		id, ok := pathID(r)
		if !ok {
			return "", errInvalidID
		}
		hard, _ := strconv.ParseBool(r.PostFormValue("hard"))

		msg, err := s.api.DeleteUser(r.Context(), m, id, hard)
		if err != nil {
			return "", err
		}
		if msg == "" {
			msg = msgUserDeleted
		}
		return msg, nil
	})
}

// AdminCardBalanceHandler sets a card's balance
func (s *Server) AdminCardBalanceHandler() http.HandlerFunc {
	return s.adminAction("card_balance", func(r *http.Request, m *session.Manager) (string, error) {
		id, ok := pathID(r)
		if !ok {
			return "", errInvalidID
		}
		form := auth.BalanceForm{Balance: r.PostFormValue("balance")}
		if errs := form.Validate(); errs != nil {
			return "", errs
		}

		res, err := s.api.UpdateCardBalance(r.Context(), m, id, form.Amount())
		if err != nil {
			return "", err
		}
		return messageOr(res.Message, msgBalanceUpdated), nil
	})
}

// AdminCardToggleHandler flips a card between active and blocked, or sets it when activo is posted
func (s *Server) AdminCardToggleHandler() http.HandlerFunc {
	return s.adminAction("card_toggle", func(r *http.Request, m *session.Manager) (string, error) {
		id, ok := pathID(r)
		if !ok {
			return "", errInvalidID
		}
		var active *bool
		if v, err := strconv.ParseBool(r.PostFormValue("activo")); err == nil {
			active = utils.Ptr(v)
		}

		res, err := s.api.ToggleCard(r.Context(), m, id, active)
		if err != nil {
			return "", err
		}
		return messageOr(res.Message, msgCardToggled), nil
	})
}

// AdminCardGenerateHandler assigns a new card by user id or document number
func (s *Server) AdminCardGenerateHandler() http.HandlerFunc {
	return s.adminAction("card_generate", func(r *http.Request, m *session.Manager) (string, error) {
		req := apiclient.GenerateCardRequest{
			DocumentNumber: strings.TrimSpace(r.PostFormValue("document_number")),
		}
		if v, err := strconv.ParseInt(r.PostFormValue("user_id"), 10, 64); err == nil && v > 0 {
			req.UserID = utils.Ptr(v)
		}
		if req.UserID == nil && req.DocumentNumber == "" {
			return "", auth.FieldErrors{auth.FieldDocumentNumber: msgMissingCardOwner}
		}
		if raw := strings.TrimSpace(r.PostFormValue("saldo_inicial")); raw != "" {
			form := auth.BalanceForm{Balance: raw}
			if errs := form.Validate(); errs != nil {
				return "", errs
			}
			req.InitialBalance = utils.Ptr(form.Amount())
		}

		res, err := s.api.GenerateCard(r.Context(), m, req)
		if err != nil {
			return "", err
		}
		return messageOr(res.Message, msgCardGenerated), nil
	})
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
