package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cienspay/cienspay-web/internal/utils"
	"github.com/cienspay/cienspay-web/session"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Summary fetches the personal dashboard data of the logged in user
func (c *Client) Summary(ctx context.Context, m *session.Manager) (Summary, error) {
	var out Summary
	err := c.authedJSON(ctx, m, Request{Path: PathSummary}, &out)
	return out, err
}

func (p ListUsersParams) query() url.Values {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.HasCard != nil {
		q.Set("has_card", strconv.FormatBool(utils.Value(p.HasCard)))
	}
	if p.CardActive != nil {
		q.Set("card_active", strconv.FormatBool(utils.Value(p.CardActive)))
	}
	return q
}

func (c *Client) ListUsersWithCards(ctx context.Context, m *session.Manager, p ListUsersParams) (UsersPage, error) {
	var out UsersPage
	err := c.authedJSON(ctx, m, Request{Path: PathUsersCards, Query: p.query()}, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, m *session.Manager, id int64) (AdminUser, error) {
	var out struct {
		Data AdminUser `json:"data"`
	}
	err := c.authedJSON(ctx, m, Request{Path: fmt.Sprintf(PathAdminUser, id)}, &out)
	return out.Data, err
}

func (c *Client) UpdateUser(ctx context.Context, m *session.Manager, id int64, patch UserPatch) (AdminUser, error) {
	body, err := jsonBody(patch)
	if err != nil {
		return AdminUser{}, err
	}
	var out struct {
		Data AdminUser `json:"data"`
	}
	err = c.authedJSON(ctx, m, Request{Method: http.MethodPatch, Path: fmt.Sprintf(PathAdminUser, id), Body: body}, &out)
	return out.Data, err
}

// DeleteUser deactivates the user, or removes it when hard is set
func (c *Client) DeleteUser(ctx context.Context, m *session.Manager, id int64, hard bool) (string, error) {
	q := url.Values{"hard": {strconv.FormatBool(hard)}}
	var out struct {
		Message string `json:"message"`
	}
	err := c.authedJSON(ctx, m, Request{Method: http.MethodDelete, Path: fmt.Sprintf(PathAdminUser, id), Query: q}, &out)
	return out.Message, err
}

func (c *Client) UpdateCardBalance(ctx context.Context, m *session.Manager, cardID, balance int64) (CardResult, error) {
	body, err := jsonBody(map[string]int64{"balance": balance})
	if err != nil {
		return CardResult{}, err
	}
	var out CardResult
	err = c.authedJSON(ctx, m, Request{Method: http.MethodPatch, Path: fmt.Sprintf(PathCardBal, cardID), Body: body}, &out)
	return out, err
}

// ToggleCard sets the card's active flag, or flips it when active is nil
func (c *Client) ToggleCard(ctx context.Context, m *session.Manager, cardID int64, active *bool) (CardResult, error) {
	payload := map[string]bool{}
	if active != nil {
		payload["activo"] = *active
	}
	body, err := jsonBody(payload)
	if err != nil {
		return CardResult{}, err
	}
	var out CardResult
	err = c.authedJSON(ctx, m, Request{Method: http.MethodPatch, Path: fmt.Sprintf(PathCardToggle, cardID), Body: body}, &out)
	return out, err
}

func (c *Client) GenerateCard(ctx context.Context, m *session.Manager, r GenerateCardRequest) (CardResult, error) {
	body, err := jsonBody(r)
	if err != nil {
		return CardResult{}, err
	}
	var out CardResult
	err = c.authedJSON(ctx, m, Request{Method: http.MethodPost, Path: PathCardGen, Body: body}, &out)
	return out, err
}
