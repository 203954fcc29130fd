package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	published     *prometheus.CounterVec
	patchRejected *prometheus.CounterVec
	actions       *prometheus.CounterVec
	clients       *prometheus.GaugeVec
	connections   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_messages_published_total",
				Help: "Frames broadcast to dashboard channels, by kind",
			},
			[]string{"kind"},
		),
		patchRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_patches_rejected_total",
				Help: "Data patches refused by the authoritative state, by reason",
			},
			[]string{"reason"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_actions_total",
				Help: "Client actions received, by outcome",
			},
			[]string{"accepted"},
		),
		clients: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dashboard_ws_clients",
				Help: "Channels currently attached, by dashboard",
			},
			[]string{"dashboard"},
		),
		connections: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashboard_ws_connection_seconds",
				Help:    "Lifetime of closed dashboard channels",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
	}
	m.registry.MustRegister(m.published, m.patchRejected, m.actions, m.clients, m.connections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) MessagePublished(kind domain.RxKind) {
	m.published.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) PatchRejected(reason string) {
	m.patchRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ActionReceived(accepted bool) {
	m.actions.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

// ClientCount matches Hub.OnClientCount.
func (m *Metrics) ClientCount(dashboardID string, clients int) {
	if clients == 0 {
		m.clients.DeleteLabelValues(dashboardID)
		return
	}
	m.clients.WithLabelValues(dashboardID).Set(float64(clients))
}

// ConnectionClosed matches WebsocketOptions.OnClose.
func (m *Metrics) ConnectionClosed(_ string, connected time.Duration) {
	m.connections.Observe(connected.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

var _ port.MetricsRecorder = (*Metrics)(nil)
