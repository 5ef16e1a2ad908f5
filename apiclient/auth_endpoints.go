package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/session"
	"github.com/rs/zerolog/log"
)

func jsonBody(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("[apiclient jsonBody] %w", err)
	}
	return b, nil
}

// Login posts the credentials. It does not touch any session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResponse{}, err
	}
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: PathLogin, Body: body})
	if err != nil {
		return LoginResponse{}, err
	}

	var out LoginResponse
	if err := Decode(resp, &out); err != nil {
		return LoginResponse{}, err
	}
	if out.Access == "" {
		return LoginResponse{}, &Error{Status: resp.StatusCode, Message: out.Message, kind: errors.ErrBadEnvelope}
	}
	return out, nil
}

// Register creates an account and returns the backend's confirmation message
func (c *Client) Register(ctx context.Context, r RegisterRequest) (string, error) {
	body, err := jsonBody(r)
	if err != nil {
		return "", err
	}
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: PathRegister, Body: body})
	if err != nil {
		return "", err
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := Decode(resp, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) Profile(ctx context.Context, m *session.Manager) (session.User, error) {
	var out struct {
		User session.User `json:"user"`
		Data session.User `json:"data"`
	}
	if err := c.authedJSON(ctx, m, Request{Path: c.profilePath}, &out); err != nil {
		return session.User{}, err
	}
	if out.User.Email == "" {
		return out.Data, nil
	}
	return out.User, nil
}

// Logout tells the backend to drop the refresh token. Failures are logged and ignored.
func (c *Client) Logout(ctx context.Context, m *session.Manager) {
	if m.Refresh() == "" {
		return
	}
	body, err := jsonBody(map[string]string{"refresh": m.Refresh()})
	if err != nil {
		return
	}
	resp, err := c.AuthedDo(ctx, m, Request{Method: http.MethodPost, Path: PathLogout, Body: body})
	if err != nil {
		log.Ctx(ctx).Info().Err(err).Msg("backend logout failed")
		return
	}
	drainAndClose(resp)
}

// authedJSON runs AuthedDo and decodes the envelope into out
func (c *Client) authedJSON(ctx context.Context, m *session.Manager, req Request, out any) error {
	resp, err := c.AuthedDo(ctx, m, req)
	if err != nil {
		return err
	}
	return Decode(resp, out)
}
