package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/internal/utils"
	"github.com/rs/zerolog/log"
)

// AdminStats are computed from the page of users currently loaded
type AdminStats struct {
	TotalUsers   int
	ActiveUsers  int
	TotalCards   int
	ActiveCards  int
	TotalBalance int64
}

func statsFor(users []apiclient.AdminUser) AdminStats {
	stats := AdminStats{TotalUsers: len(users)}
	for _, u := range users {
		if u.Active() {
			stats.ActiveUsers++
		}
		for _, c := range u.Cards {
			stats.TotalCards++
			stats.TotalBalance += c.Balance
			if c.Active {
				stats.ActiveCards++
			}
		}
	}
	return stats
}

type adminPageData struct {
	layoutData
	Loaded bool
	Search string
	Page   apiclient.UsersPage
	Stats  AdminStats
}

// listParamsFrom reads paging and filters from the query string
func listParamsFrom(r *http.Request) apiclient.ListUsersParams {
	q := r.URL.Query()
	p := apiclient.ListUsersParams{
		Search: strings.TrimSpace(q.Get("search")),
		Status: q.Get("status"),
	}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	p.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	if v, err := strconv.ParseBool(q.Get("has_card")); err == nil {
		p.HasCard = utils.Ptr(v)
	}
	if v, err := strconv.ParseBool(q.Get("card_active")); err == nil {
		p.CardActive = utils.Ptr(v)
	}
	return p
}

// AdminDashboardHandler lists users with their cards. Access is enforced by the backend;
// a non-admin session sees the backend's refusal inline.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.sessionManager(w, r)
		params := listParamsFrom(r)
		data := adminPageData{layoutData: s.layout(r, m), Search: params.Search}

		page, err := s.api.ListUsersWithCards(r.Context(), m, params)
		if err != nil {
			status, msg := apiFailure(err)
			log.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("admin dashboard: listing unavailable")
			data.Error = msg
			s.render(w, r, status, pageAdminDashboard, data)
			return
		}

		data.Loaded = true
		data.Page = page
		data.Stats = statsFor(page.Users)
		s.render(w, r, http.StatusOK, pageAdminDashboard, data)
	}
}
