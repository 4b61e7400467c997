package fleet

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the fleet-wide Prometheus series. Unlike the promauto
// package-global pattern, Metrics is an instance that the embedder
// constructs with NewMetrics and passes to the FleetOrchestrator, so tests
// can construct their own and avoid colliding with the default registry
// (prometheus.NewRegistry, not prometheus.DefaultRegisterer).
type Metrics struct {
	directivesDispatched *prometheus.CounterVec
	sitesDeployed        prometheus.Gauge
	connectionsAccepted  *prometheus.CounterVec
	connectionsActive    *prometheus.GaugeVec
}

// NewMetrics constructs a Metrics and registers its collectors with reg. The
// serve command passes a fresh prometheus.NewRegistry(); any other
// prometheus.Registerer works as well.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		directivesDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewayfleet_directives_dispatched_total",
				Help: "Total directives applied by worker controllers, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		sitesDeployed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewayfleet_sites_deployed",
				Help: "Number of sites with a live deployment on at least one worker.",
			},
		),
		connectionsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewayfleet_connections_accepted_total",
				Help: "Total connections accepted, by site.",
			},
			[]string{"site"},
		),
		connectionsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gatewayfleet_connections_active",
				Help: "Connections currently being served, by site.",
			},
			[]string{"site"},
		),
	}
	reg.MustRegister(m.directivesDispatched, m.sitesDeployed, m.connectionsAccepted, m.connectionsActive)
	return m
}

// observeDirective records one directive application outcome. A nil err is
// outcome "ok"; otherwise the outcome label is the CoreError's Kind, or
// "error" for anything that isn't a *CoreError.
func (m *Metrics) observeDirective(kind DirectiveKind, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var ce *CoreError
		if errors.As(err, &ce) {
			outcome = ce.Kind.String()
		}
	}
	m.directivesDispatched.WithLabelValues(kind.String(), outcome).Inc()
}

// observeAccept records one accepted connection for site.
func (m *Metrics) observeAccept(site SiteName) {
	m.connectionsAccepted.WithLabelValues(string(site)).Inc()
}

// connectionStarted marks one connection as in flight for site.
func (m *Metrics) connectionStarted(site SiteName) {
	m.connectionsActive.WithLabelValues(string(site)).Inc()
}

// connectionFinished marks one connection as no longer in flight for site.
func (m *Metrics) connectionFinished(site SiteName) {
	m.connectionsActive.WithLabelValues(string(site)).Dec()
}

// setSitesDeployed publishes the current count of sites with a live
// deployment across the fleet (called by FleetOrchestrator after a status
// sweep, not per-directive, since "deployed" is a fleet-wide fact).
func (m *Metrics) setSitesDeployed(n int) {
	m.sitesDeployed.Set(float64(n))
}
