package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alarm_hub"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return reg
}

// Handler returns an http.Handler that serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Hub holds counters describing hub activity.
// A nil *Hub is valid and records nothing.
type Hub struct {
	Messages       *prometheus.CounterVec
	Broadcasts     prometheus.Counter
	SendFailures   prometheus.Counter
	EvictedClients *prometheus.CounterVec
}

// Gauges samples registry sizes at scrape time.
type Gauges struct {
	Connections func() int
	Alarms      func() int
}

// NewHub creates and registers hub metrics on reg.
func NewHub(reg prometheus.Registerer, gauges Gauges) *Hub {
	m := &Hub{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Client messages received, by command.",
		}, []string{"command"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Alarm lists published to all live connections.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Broadcast deliveries dropped for a single connection.",
		}),
		EvictedClients: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_connections_total",
			Help:      "Connections removed from the registry, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Messages, m.Broadcasts, m.SendFailures, m.EvictedClients)

	if gauges.Connections != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Connections currently considered live.",
		}, func() float64 { return float64(gauges.Connections()) }))
	}

	if gauges.Alarms != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_alarms",
			Help:      "Alarms currently registered.",
		}, func() float64 { return float64(gauges.Alarms()) }))
	}

	return m
}

// Eviction reasons.
const (
	ReasonClosed  = "closed"
	ReasonExpired = "expired"
)

// ObserveMessage counts one client message.
func (m *Hub) ObserveMessage(command string) {
	if m == nil {
		return
	}

	m.Messages.WithLabelValues(command).Inc()
}

// ObserveBroadcast counts one published alarm list.
func (m *Hub) ObserveBroadcast() {
	if m == nil {
		return
	}

	m.Broadcasts.Inc()
}

// ObserveSendFailure counts one dropped delivery.
func (m *Hub) ObserveSendFailure() {
	if m == nil {
		return
	}

	m.SendFailures.Inc()
}

// ObserveEviction counts n connections removed for reason.
func (m *Hub) ObserveEviction(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}

	m.EvictedClients.WithLabelValues(reason).Add(float64(n))
}
