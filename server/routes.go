package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN / REGISTER (public only)
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare(s.RequirePublicOnly())...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.RequirePublicOnly(), s.loginLimiter.Middleware)...))
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(), s.HTMLMiddleWare(s.RequirePublicOnly())...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.HTMLMiddleWare(s.RequirePublicOnly())...))

	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Authenticated pages
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))

	// Admin actions
	s.RegisterRouteHandler("POST "+RouteAdminUserUpdate, ChainMiddleware(s.AdminUserUpdateHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))
	s.RegisterRouteHandler("POST "+RouteAdminUserDelete, ChainMiddleware(s.AdminUserDeleteHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))
	s.RegisterRouteHandler("POST "+RouteAdminCardBalance, ChainMiddleware(s.AdminCardBalanceHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))
	s.RegisterRouteHandler("POST "+RouteAdminCardToggle, ChainMiddleware(s.AdminCardToggleHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))
	s.RegisterRouteHandler("POST "+RouteAdminCardGenerate, ChainMiddleware(s.AdminCardGenerateHandler(), s.HTMLMiddleWare(s.RequireAuthenticated())...))

	// Operations
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	if s.gatherer != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.MetricsHandler())
	}

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStaticImg, ChainMiddleware(s.fileServer.ServeHTTP, s.StaticMiddleware()...))

	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleWare()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError(http.MethodGet, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path, error string) {
	log.Warn().Msgf("[%-19s] %s %s", coloredMethod(method), path, Red+error+ResetColor)
}
