package auth

import (
	"context"
	"strings"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/session"
	"github.com/rs/zerolog/log"
)

// Post-login destinations
const (
	DestinationDashboard      = "/dashboard"
	DestinationAdminDashboard = "/admin-dashboard"
)

// LoginResult is what a successful login hands to the page: who logged in and where to go next
type LoginResult struct {
	User        session.User
	Destination string
}

// Service runs the login, register and logout flows against the backend
type Service struct {
	api *apiclient.Client
}

func NewService(api *apiclient.Client) (*Service, error) {
	if api == nil {
		return nil, errors.New("[auth NewService] api client is required")
	}
	return &Service{api: api}, nil
}

// DestinationFor returns the landing page for a logged in user
func DestinationFor(m *session.Manager) string {
	if m.IsAdmin() {
		return DestinationAdminDashboard
	}
	return DestinationDashboard
}

// Login validates the form, authenticates against the backend and writes the whole session.
// Every failure the user can act on comes back as FieldErrors; nothing is retried.
func (s *Service) Login(ctx context.Context, m *session.Manager, form LoginForm) (LoginResult, error) {
	if errs := form.Validate(); errs != nil {
		return LoginResult{}, errs
	}

	resp, err := s.api.Login(ctx, form.Email, form.Password)
	if err != nil {
		if errors.Is(err, errors.ErrNetwork) {
			log.Ctx(ctx).Warn().Err(err).Msg("login: backend unreachable")
			return LoginResult{}, FieldErrors{FieldPassword: MsgNetwork}
		}
		return LoginResult{}, FieldErrors{FieldPassword: apiclient.MessageOf(err, MsgLoginFailed)}
	}

	if err := m.Save(session.Session{Access: resp.Access, Refresh: resp.Refresh, User: resp.User}); err != nil {
		return LoginResult{}, errors.Wrapf(err, "[auth Login] save session")
	}

	dest := DestinationDashboard
	if admin := m.AdminEmail(); admin != "" && resp.User.Email == admin {
		dest = DestinationAdminDashboard
	}
	log.Ctx(ctx).Info().Int64("user_id", resp.User.ID).Str("destination", dest).Msg("user logged in")
	return LoginResult{User: resp.User, Destination: dest}, nil
}

// Register validates the form and creates the account. It never writes a session:
// the user logs in afterwards.
func (s *Service) Register(ctx context.Context, form RegisterForm) (string, error) {
	if errs := form.Validate(); errs != nil {
		return "", errs
	}

	msg, err := s.api.Register(ctx, RegisterRequestFrom(form))
	if err != nil {
		if errors.Is(err, errors.ErrNetwork) {
			log.Ctx(ctx).Warn().Err(err).Msg("register: backend unreachable")
			return "", FieldErrors{FieldPassword: MsgNetwork}
		}
		return "", registerFieldErrors(err)
	}
	return msg, nil
}

// RegisterRequestFrom builds the backend payload from the form
func RegisterRequestFrom(form RegisterForm) apiclient.RegisterRequest {
	return apiclient.RegisterRequest{
		DocumentType:   form.documentType(),
		DocumentNumber: form.DocumentNumber,
		FullName:       form.FullName(),
		Phone:          strings.ReplaceAll(form.Phone, " ", ""),
		Email:          strings.ToLower(strings.TrimSpace(form.Email)),
		Password:       form.Password,
		Password2:      form.ConfirmPassword,
	}
}

// registerFieldErrors maps backend field names onto the form's fields. The password slot
// always carries something so the user sees why nothing happened.
func registerFieldErrors(err error) FieldErrors {
	out := FieldErrors{}
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		out.set(FieldPassword, MsgRegisterFailed)
		return out
	}

	be := apiErr.FieldErrors
	out.set(FieldFirstName, firstOf(be, "full_name", "nombre"))
	out.set(FieldEmail, be.First("email"))
	out.set(FieldDocumentNumber, be.First("document_number"))
	out.set(FieldPhone, be.First("phone"))
	out.set(FieldConfirmPassword, be.First("password2"))

	msg := firstOf(be, "password", "non_field_errors")
	if msg == "" {
		msg = apiclient.MessageOf(err, MsgRegisterFailed)
	}
	out.set(FieldPassword, msg)
	return out
}

func firstOf(be apiclient.FieldErrors, fields ...string) string {
	for _, f := range fields {
		if msg := be.First(f); msg != "" {
			return msg
		}
	}
	return ""
}

// Logout tells the backend (best effort) and always clears the local session
func (s *Service) Logout(ctx context.Context, m *session.Manager) error {
	s.api.Logout(ctx, m)
	if err := m.Clear(); err != nil {
		return errors.Wrapf(err, "[auth Logout] clear session")
	}
	return nil
}
