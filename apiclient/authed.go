package apiclient

import (
	"context"
	"net/http"

	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/cienspay/cienspay-web/session"
	"github.com/rs/zerolog/log"
)

// AuthedDo issues req with the session's bearer token.
//
// On a 401 it refreshes the access token once. If a new token is obtained it is persisted
// through m and the original request is reissued once with it; that response is returned.
// If the refresh fails for any reason the original 401 response is returned untouched and
// the session is left as it was. It never loops and never logs the user out.
func (c *Client) AuthedDo(ctx context.Context, m *session.Manager, req Request) (*http.Response, error) {
	header := headersFor(req, m.Access())
	resp, err := c.send(ctx, req, header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	logger := log.Ctx(ctx)
	newAccess, err := c.refreshShared(ctx, m.Refresh())
	if err != nil {
		logger.Info().Err(err).Str("path", req.Path).Msg("refresh unavailable, surfacing original 401")
		return resp, nil
	}

	if err := m.SetAccess(newAccess); err != nil {
		logger.Err(err).Msg("failed to persist refreshed access token")
	}
	drainAndClose(resp)

	header.Set("Authorization", "Bearer "+newAccess)
	retried, err := c.send(ctx, req, header)
	if err != nil {
		return nil, err
	}
	c.metrics.Retry()
	return retried, nil
}

// refreshShared runs Refresh, de-duplicating concurrent calls for the same
// refresh token when single-flight is enabled. The shared call is detached from
// any one caller's cancellation and bounded by the client timeout; each caller
// stops waiting when its own ctx is done.
func (c *Client) refreshShared(ctx context.Context, refreshToken string) (string, error) {
	if !c.singleFlight {
		return c.Refresh(ctx, refreshToken)
	}
	ch := c.refreshGroup.DoChan(refreshToken, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.Refresh(rctx, refreshToken)
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrapf(errors.ErrRefreshUnavailable, "[apiclient refreshShared] %v", ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.metrics.Refresh(metrics.RefreshShared)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
