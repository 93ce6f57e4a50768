// Package metrics holds the gateway's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uts_iot"

// Ingest results.
const (
	ResultStored        = "stored"
	ResultBroadcastOnly = "broadcast_only"
	ResultDecodeError   = "decode_error"
	ResultInvalid       = "invalid"
	ResultStoreError    = "store_error"
)

// Command results.
const (
	CommandSent     = "sent"
	CommandFailed   = "failed"
	CommandRejected = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	IngestMessages  *prometheus.CounterVec
	HubSubscribers  prometheus.Gauge
	HubBroadcasts   prometheus.Counter
	Commands        *prometheus.CounterVec
	TransportStatus *prometheus.GaugeVec
}

// New registers every collector, plus the Go runtime and process collectors,
// on a fresh registry so tests can build as many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		IngestMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "messages_total",
				Help:      "Inbound sensor messages by transport and outcome",
			},
			[]string{"transport", "result"},
		),

		HubSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "subscribers",
				Help:      "Currently connected live viewers",
			},
		),

		HubBroadcasts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "broadcasts_total",
				Help:      "Readings pushed to live viewers",
			},
		),

		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "commands",
				Name:      "total",
				Help:      "Device commands by outcome",
			},
			[]string{"result"},
		),

		TransportStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "up",
				Help:      "Transport status (0=down, 1=up)",
			},
			[]string{"transport"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.IngestMessages,
		m.HubSubscribers,
		m.HubBroadcasts,
		m.Commands,
		m.TransportStatus,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: false,
	})
}

func (m *Metrics) SetTransportUp(transport string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.TransportStatus.WithLabelValues(transport).Set(v)
}
