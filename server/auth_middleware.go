package server

import (
	"net/http"

	"github.com/cienspay/cienspay-web/guard"
)

// RequireAuthenticated is middleware for pages that need a logged in user.
// The bound session manager is available to handlers through guard.ManagerFrom.
func (s *Server) RequireAuthenticated() func(http.HandlerFunc) http.HandlerFunc {
	return guard.Middleware(guard.NameAuthenticated, s.manager, guard.RequireAuthenticated, s.metrics)
}

// RequirePublicOnly is middleware for the login and register pages
func (s *Server) RequirePublicOnly() func(http.HandlerFunc) http.HandlerFunc {
	return guard.Middleware(guard.NamePublicOnly, s.manager, guard.RequirePublicOnly, s.metrics)
}
