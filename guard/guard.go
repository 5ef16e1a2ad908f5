// Package guard decides, once per navigation, whether a page may render for the current session.
package guard

import (
	"context"
	"net/http"

	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/cienspay/cienspay-web/session"
	"github.com/rs/zerolog/log"
)

const (
	LoginPath          = "/login"
	DashboardPath      = "/dashboard"
	AdminDashboardPath = "/admin-dashboard"
)

// Guard names, used as metric labels
const (
	NameAuthenticated = "authenticated"
	NamePublicOnly    = "public_only"
)

// Decision is the outcome of a guard: render the page, or replace the navigation with Location
type Decision struct {
	Redirect bool
	Location string
}

func render() Decision {
	return Decision{}
}

func redirectTo(location string) Decision {
	return Decision{Redirect: true, Location: location}
}

// RequireAuthenticated sends visitors without an access token to the login page.
// Admin status plays no part.
func RequireAuthenticated(m *session.Manager) Decision {
	if !m.IsLoggedIn() {
		return redirectTo(LoginPath)
	}
	return render()
}

// RequirePublicOnly keeps logged in users off the login and register pages
func RequirePublicOnly(m *session.Manager) Decision {
	if !m.IsLoggedIn() {
		return render()
	}
	if m.IsAdmin() {
		return redirectTo(AdminDashboardPath)
	}
	return redirectTo(DashboardPath)
}

// ManagerFunc binds a session manager to one request/response pair
type ManagerFunc func(w http.ResponseWriter, r *http.Request) *session.Manager

type contextKey struct{}

// WithManager stores m in ctx
func WithManager(ctx context.Context, m *session.Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// ManagerFrom returns the manager stored by Middleware, or nil
func ManagerFrom(ctx context.Context) *session.Manager {
	m, _ := ctx.Value(contextKey{}).(*session.Manager)
	return m
}

// Middleware evaluates decide once for the request. A redirect replaces the navigation
// (303, or HX-Redirect for htmx requests) so the guarded URL is not kept in history.
// Otherwise next runs with the manager in the request context.
func Middleware(name string, bind ManagerFunc, decide func(*session.Manager) Decision, mets *metrics.Metrics) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			m := bind(w, r)
			d := decide(m)
			if d.Redirect {
				mets.GuardRedirect(name)
				log.Ctx(r.Context()).Debug().Str("guard", name).Str("from", r.URL.Path).Str("to", d.Location).Msg("guard redirect")
				Redirect(w, r, d.Location)
				return
			}
			next(w, r.WithContext(WithManager(r.Context(), m)))
		}
	}
}

// Redirect replaces the current navigation with location
func Redirect(w http.ResponseWriter, r *http.Request, location string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
