package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "punch"

// Declaration outcomes
const (
	DeclarationAccepted  = "accepted"
	DeclarationDuplicate = "duplicate"
	DeclarationMalformed = "malformed"
	DeclarationIgnored   = "ignored"
)

// Join outcomes
const (
	JoinForwarded     = "forwarded"
	JoinBadPort       = "bad_port"
	JoinUnknownTarget = "unknown_target"
	JoinSendFailed    = "send_failed"
)

// HostCounter reports how many hosts a store holds
type HostCounter interface {
	Connected() int
	Len() int
}

// Metrics holds the Prometheus collectors of a rendezvous server. Each instance owns its registry so several
// servers can live in the same process
type Metrics struct {
	registry *prometheus.Registry

	Declarations *prometheus.CounterVec
	Joins        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Declarations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "declarations_total",
			Help:      "Host declaration messages by outcome",
		}, []string{"result"}),
		Joins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Join requests by outcome",
		}, []string{"result"}),
	}
}

// WatchHosts exposes the host counts of c, read at scrape time. Only one store can be watched per instance
func (m *Metrics) WatchHosts(c HostCounter) error {
	connected := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hosts_connected",
		Help:      "Number of open host control connections",
	}, func() float64 { return float64(c.Connected()) })

	registered := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hosts_registered",
		Help:      "Number of hosts that declared their endpoint",
	}, func() float64 { return float64(c.Len()) })

	if err := m.registry.Register(connected); err != nil {
		return fmt.Errorf("register connected hosts gauge: %w", err)
	}
	if err := m.registry.Register(registered); err != nil {
		m.registry.Unregister(connected)
		return fmt.Errorf("register registered hosts gauge: %w", err)
	}

	return nil
}

// Handler serves the metrics of this instance only
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is the registry every collector of this instance is registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveDeclaration(result string) {
	m.Declarations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveJoin(result string) {
	m.Joins.WithLabelValues(result).Inc()
}
