package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Public-only pages
	RouteLogin    = "/login"
	RouteRegister = "/register"

	RouteLogout = "/logout"

	// Authenticated pages
	RouteDashboard      = "/dashboard"
	RouteAdminDashboard = "/admin-dashboard"

	// Admin actions (form posts, redirect back to the admin dashboard)
	RouteAdminUserUpdate   = "/admin/users/{id}"
	RouteAdminUserDelete   = "/admin/users/{id}/delete"
	RouteAdminCardBalance  = "/admin/cards/{id}/balance"
	RouteAdminCardToggle   = "/admin/cards/{id}/toggle"
	RouteAdminCardGenerate = "/admin/cards/generate"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
	RouteStaticImg = "/img/{file}"
)
