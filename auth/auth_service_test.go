package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/apiclient/backendfake"
	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/session"
	"github.com/cienspay/cienspay-web/session/storefake"
	"github.com/stretchr/testify/require"
)

// testFixture holds all test dependencies
type testFixture struct {
	backend *backendfake.Backend
	service *auth.Service
	manager *session.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	backend := backendfake.New()
	t.Cleanup(backend.Close)

	api, err := apiclient.New(apiclient.Config{BaseURL: backend.BaseURL()})
	require.NoError(t, err)
	service, err := auth.NewService(api)
	require.NoError(t, err)

	return &testFixture{
		backend: backend,
		service: service,
		manager: session.NewManager(storefake.NewFakeStore(), backendfake.AdminEmail),
	}
}

type refusingTransport struct{}

func (refusingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestNewService(t *testing.T) {
	_, err := auth.NewService(nil)
	require.Error(t, err)
}

func TestLogin_User(t *testing.T) {
	f := setupTestFixture(t)

	res, err := f.service.Login(context.Background(), f.manager, auth.LoginForm{
		Email:    backendfake.UserEmail,
		Password: backendfake.UserPassword,
	})
	require.NoError(t, err)
	require.Equal(t, auth.DestinationDashboard, res.Destination)
	require.Equal(t, backendfake.UserEmail, res.User.Email)

	require.True(t, f.manager.IsLoggedIn())
	require.False(t, f.manager.IsAdmin())
	s := f.manager.Snapshot()
	require.NotEmpty(t, s.Access)
	require.NotEmpty(t, s.Refresh)
	require.Equal(t, backendfake.UserEmail, s.User.Email)
	require.Equal(t, auth.DestinationDashboard, auth.DestinationFor(f.manager))
}

func TestLogin_Admin(t *testing.T) {
	f := setupTestFixture(t)

	res, err := f.service.Login(context.Background(), f.manager, auth.LoginForm{
		Email:    backendfake.AdminEmail,
		Password: backendfake.AdminPassword,
	})
	require.NoError(t, err)
	require.Equal(t, auth.DestinationAdminDashboard, res.Destination)
	require.True(t, f.manager.IsAdmin())
	require.Equal(t, auth.DestinationAdminDashboard, auth.DestinationFor(f.manager))
}

func TestLogin_Failures(t *testing.T) {
	t.Run("validation issues no request", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.Login(context.Background(), f.manager, auth.LoginForm{Email: "nope"})
		var fe auth.FieldErrors
		require.True(t, errors.As(err, &fe))
		require.Equal(t, "Email inválido", fe.Get(auth.FieldEmail))
		require.Equal(t, 0, f.backend.Calls(apiclient.PathLogin))
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.Login(context.Background(), f.manager, auth.LoginForm{
			Email:    backendfake.UserEmail,
			Password: "incorrecta",
		})
		var fe auth.FieldErrors
		require.True(t, errors.As(err, &fe))
		require.Equal(t, "Credenciales inválidas", fe.Get(auth.FieldPassword))
		require.False(t, f.manager.IsLoggedIn())
		require.Equal(t, 1, f.backend.Calls(apiclient.PathLogin))
	})

	t.Run("network", func(t *testing.T) {
		api, err := apiclient.New(apiclient.Config{BaseURL: "http://cienspay.invalid/api"},
			apiclient.WithHTTPClient(&http.Client{Transport: refusingTransport{}}))
		require.NoError(t, err)
		service, err := auth.NewService(api)
		require.NoError(t, err)
		m := session.NewManager(storefake.NewFakeStore(), backendfake.AdminEmail)

		_, err = service.Login(context.Background(), m, auth.LoginForm{Email: "ana@example.com", Password: "secreto"})
		var fe auth.FieldErrors
		require.True(t, errors.As(err, &fe))
		require.Equal(t, auth.MsgNetwork, fe.Get(auth.FieldPassword))
		require.False(t, m.IsLoggedIn())
	})
}

func TestRegister(t *testing.T) {
	form := auth.RegisterForm{
		DocumentNumber:  "23456789",
		FirstName:       "Luis",
		LastName:        "Gómez",
		Phone:           "04121112233",
		Email:           "Luis@Example.com",
		Password:        "Segura123",
		ConfirmPassword: "Segura123",
	}

	t.Run("ok then duplicate", func(t *testing.T) {
		f := setupTestFixture(t)
		msg, err := f.service.Register(context.Background(), form)
		require.NoError(t, err)
		require.NotEmpty(t, msg)
		require.NotZero(t, f.backend.UserID("luis@example.com"))
		require.False(t, f.manager.IsLoggedIn())

		_, err = f.service.Register(context.Background(), form)
		var fe auth.FieldErrors
		require.True(t, errors.As(err, &fe))
		require.Equal(t, "Ya existe un usuario con este email", fe.Get(auth.FieldEmail))
		require.Equal(t, "Ya existe un usuario con esta cédula", fe.Get(auth.FieldDocumentNumber))
		require.Equal(t, auth.MsgRegisterFailed, fe.Get(auth.FieldPassword))
	})

	t.Run("six digit document never reaches the backend", func(t *testing.T) {
		f := setupTestFixture(t)
		bad := form
		bad.DocumentNumber = "123456"

		_, err := f.service.Register(context.Background(), bad)
		var fe auth.FieldErrors
		require.True(t, errors.As(err, &fe))
		require.Equal(t, "Cédula inválida (7-8 dígitos)", fe.Get(auth.FieldDocumentNumber))
		require.Equal(t, 0, f.backend.Calls(apiclient.PathRegister))
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.service.Login(ctx, f.manager, auth.LoginForm{Email: backendfake.UserEmail, Password: backendfake.UserPassword})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, f.manager))
	require.False(t, f.manager.IsLoggedIn())
	require.Equal(t, session.Session{}, f.manager.Snapshot())
	require.Equal(t, 1, f.backend.Calls(apiclient.PathLogout))

	// a second logout with nothing stored is a local no-op
	require.NoError(t, f.service.Logout(ctx, f.manager))
	require.Equal(t, 1, f.backend.Calls(apiclient.PathLogout))
}
