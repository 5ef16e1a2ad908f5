package apiclient_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/apiclient/backendfake"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		resp, err := f.client.Login(ctx, backendfake.AdminEmail, backendfake.AdminPassword)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Access)
		require.NotEmpty(t, resp.Refresh)
		require.Equal(t, backendfake.AdminEmail, resp.User.Email)
		require.True(t, resp.User.Rol)
	})

	t.Run("bad credentials", func(t *testing.T) {
		_, err := f.client.Login(ctx, backendfake.UserEmail, "wrong-password")
		var apiErr *apiclient.Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)
		require.Equal(t, "Credenciales inválidas", apiErr.Message)
	})
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	ctx := context.Background()
	req := apiclient.RegisterRequest{
		DocumentType:   "V",
		DocumentNumber: "23456789",
		FullName:       "Luis Gómez",
		Phone:          "04121112233",
		Email:          "luis@example.com",
		Password:       "Segura123",
		Password2:      "Segura123",
	}

	msg, err := f.client.Register(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, msg)
	require.NotZero(t, f.backend.UserID("luis@example.com"))

	_, err = f.client.Register(ctx, req)
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr))
	require.NotEmpty(t, apiErr.FieldErrors.First("email"))
}

func TestSummary(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)

	s, err := f.client.Summary(context.Background(), f.manager)
	require.NoError(t, err)
	require.Equal(t, 1, s.Totals.TotalCards)
	require.Equal(t, int64(125000), s.Totals.TotalBalance)
	require.Len(t, s.Transactions, 2)
	require.Equal(t, apiclient.TxWithdrawal, s.Transactions[0].Type)
	require.Equal(t, "Retiro", s.Transactions[0].TypeLabel())
	require.False(t, s.Transactions[0].Credit())
}

func TestAdminEndpoints(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.AdminEmail, backendfake.AdminPassword)
	ctx := context.Background()
	anaID := f.backend.UserID(backendfake.UserEmail)

	t.Run("list clamps page size", func(t *testing.T) {
		page, err := f.client.ListUsersWithCards(ctx, f.manager, apiclient.ListUsersParams{Page: -3, PageSize: 500})
		require.NoError(t, err)
		require.Equal(t, 1, page.Page)
		require.Equal(t, 100, page.PageSize)
		require.Equal(t, 2, page.Total)
		require.Equal(t, 1, page.Pages())
	})

	t.Run("list filters", func(t *testing.T) {
		page, err := f.client.ListUsersWithCards(ctx, f.manager, apiclient.ListUsersParams{HasCard: utils.Ptr(true)})
		require.NoError(t, err)
		require.Len(t, page.Users, 1)
		require.Equal(t, backendfake.UserEmail, page.Users[0].Email)
		require.Equal(t, 1, page.Users[0].CardsCount)

		page, err = f.client.ListUsersWithCards(ctx, f.manager, apiclient.ListUsersParams{Search: "admin"})
		require.NoError(t, err)
		require.Len(t, page.Users, 1)
	})

	t.Run("update user", func(t *testing.T) {
		u, err := f.client.UpdateUser(ctx, f.manager, anaID, apiclient.UserPatch{FullName: utils.Ptr("Ana María Pérez")})
		require.NoError(t, err)
		require.Equal(t, "Ana María Pérez", u.FullName)
		require.Equal(t, backendfake.UserEmail, u.Email)

		got, err := f.client.GetUser(ctx, f.manager, anaID)
		require.NoError(t, err)
		require.Equal(t, "Ana María Pérez", got.FullName)
	})

	t.Run("cards", func(t *testing.T) {
		ids := f.backend.CardIDs(anaID)
		require.Len(t, ids, 1)

		res, err := f.client.UpdateCardBalance(ctx, f.manager, ids[0], 500)
		require.NoError(t, err)
		require.Equal(t, int64(500), res.Card.Balance)

		_, err = f.client.UpdateCardBalance(ctx, f.manager, ids[0], -1)
		require.Equal(t, "El balance no puede ser negativo", apiclient.MessageOf(err, ""))

		_, err = f.client.GenerateCard(ctx, f.manager, apiclient.GenerateCardRequest{UserID: utils.Ptr(anaID)})
		require.Equal(t, "El usuario ya tiene una tarjeta activa", apiclient.MessageOf(err, ""))

		res, err = f.client.ToggleCard(ctx, f.manager, ids[0], nil)
		require.NoError(t, err)
		require.False(t, res.Card.Active)

		res, err = f.client.ToggleCard(ctx, f.manager, ids[0], utils.Ptr(false))
		require.NoError(t, err)
		require.False(t, res.Card.Active)

		res, err = f.client.GenerateCard(ctx, f.manager, apiclient.GenerateCardRequest{
			DocumentNumber: "12345678",
			InitialBalance: utils.Ptr(int64(1000)),
		})
		require.NoError(t, err)
		require.True(t, res.Card.Active)
		require.Equal(t, int64(1000), res.Card.Balance)
		require.Len(t, f.backend.CardIDs(anaID), 2)
	})

	t.Run("soft then hard delete", func(t *testing.T) {
		_, err := f.client.DeleteUser(ctx, f.manager, anaID, false)
		require.NoError(t, err)
		require.Equal(t, "inactive", f.backend.UserStatus(anaID))

		_, err = f.client.DeleteUser(ctx, f.manager, anaID, true)
		require.NoError(t, err)
		require.Empty(t, f.backend.UserStatus(anaID))

		_, err = f.client.GetUser(ctx, f.manager, anaID)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestAdminEndpoints_Forbidden(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)

	_, err := f.client.ListUsersWithCards(context.Background(), f.manager, apiclient.ListUsersParams{})
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	refresh := f.manager.Refresh()

	f.client.Logout(context.Background(), f.manager)
	require.Equal(t, 1, f.backend.Calls(apiclient.PathLogout))

	_, err := f.client.Refresh(context.Background(), refresh)
	require.True(t, errors.Is(err, errors.ErrRefreshUnavailable))
}
