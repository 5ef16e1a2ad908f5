package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	PathRefreshCustom    = "/auth/refresh/"
	PathRefreshSimpleJWT = "/token/refresh/"
)

func defaultRefreshPath(mode RefreshMode) string {
	if mode == RefreshModeSimpleJWT {
		return PathRefreshSimpleJWT
	}
	return PathRefreshCustom
}

type refreshResponse struct {
	Access string `json:"access"`
	Data   *struct {
		Access string `json:"access"`
	} `json:"data"`
}

// Refresh exchanges refreshToken for a new access token. It never touches the session:
// the caller decides what to persist. Every failure wraps errors.ErrRefreshUnavailable.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	access, err := c.refresh(ctx, refreshToken)
	if err != nil {
		c.metrics.Refresh(metrics.RefreshFailure)
		return "", errors.Wrapf(errors.ErrRefreshUnavailable, "[apiclient Refresh] %v", err)
	}
	c.metrics.Refresh(metrics.RefreshSuccess)
	return access, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.ErrNotLoggedIn
	}
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", err
	}

	req := Request{Method: http.MethodPost, Path: c.refreshPath, Body: body}
	resp, err := c.send(ctx, req, headersFor(req, ""))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("refresh request failed")
		return "", err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.New("refresh rejected with status " + http.StatusText(resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	var parsed refreshResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.ErrBadEnvelope
	}

	access := parsed.Access
	if access == "" && c.refreshMode == RefreshModeCustom && parsed.Data != nil {
		access = parsed.Data.Access
	}
	if access == "" {
		return "", errors.ErrBadEnvelope
	}
	return access, nil
}
