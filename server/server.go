package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/config"
	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/cienspay/cienspay-web/session"
	"github.com/cienspay/cienspay-web/session/cookiestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Deps holds the collaborators the server is built from
type Deps struct {
	API      *apiclient.Client
	Cookies  *cookiestore.Codec
	Metrics  *metrics.Metrics    // optional
	Gatherer prometheus.Gatherer // optional, serves /metrics when set
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	appName    string
	adminEmail string
	mux        *http.ServeMux
	routes     []string
	fileServer http.Handler
	config     config.Config

	api          *apiclient.Client
	auth         *auth.Service
	cookies      *cookiestore.Codec
	submits      *auth.SubmitGuard
	loginLimiter *RateLimiter
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	pages        map[string]*template.Template
}

func New(c config.Config, deps Deps) (*Server, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("[Server New] api client is required")
	}
	if deps.Cookies == nil {
		return nil, fmt.Errorf("[Server New] cookie codec is required")
	}

	authService, err := auth.NewService(deps.API)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:          c.GetEnv(),
		appName:      c.GetAppName(),
		adminEmail:   c.GetAdminEmail(),
		mux:          http.NewServeMux(),
		config:       c,
		api:          deps.API,
		auth:         authService,
		cookies:      deps.Cookies,
		submits:      auth.NewSubmitGuard(0, 0),
		loginLimiter: NewRateLimiter(c.GetLoginRatePerMinute(), c.GetLoginBurst()),
		metrics:      deps.Metrics,
		gatherer:     deps.Gatherer,
		pages:        pages,
	}
	s.fileServer = FileServerHandler()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered route patterns in registration order
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// manager binds the session cookies of this request
func (s *Server) manager(w http.ResponseWriter, r *http.Request) *session.Manager {
	return session.NewManager(s.cookies.Bind(w, r), s.adminEmail)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", coloredMethod(method), path)
}

func coloredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
