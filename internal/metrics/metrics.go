// Package metrics holds the Prometheus metrics of the CiensPay front end.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded on RefreshTotal
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
)

// Metrics holds all Prometheus metrics for the front end.
// Pass to components that need to record metrics; a nil *Metrics records nothing.
type Metrics struct {
	APIRequestsTotal *prometheus.CounterVec
	RefreshTotal     *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
	GuardRedirects   *prometheus.CounterVec
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		APIRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cienspay_web",
				Name:      "api_requests_total",
				Help:      "Backend API requests issued by the front end",
			},
			[]string{"method", "status"},
		),
		RefreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cienspay_web",
				Name:      "token_refresh_total",
				Help:      "Access token refresh attempts by outcome",
			},
			[]string{"result"},
		),
		RetriesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "cienspay_web",
				Name:      "request_retries_total",
				Help:      "Requests reissued after a successful refresh",
			},
		),
		GuardRedirects: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cienspay_web",
				Name:      "guard_redirects_total",
				Help:      "Navigations redirected by a route guard",
			},
			[]string{"guard"},
		),
	}
}

func (m *Metrics) APIRequest(method, status string) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(method, status).Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) GuardRedirect(guard string) {
	if m == nil {
		return
	}
	m.GuardRedirects.WithLabelValues(guard).Inc()
}
