package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bubble_relay"

// Metrics holds every Prometheus collector of the relay. Collectors are
// registered on the registry given at construction so tests can use a
// private one.
type Metrics struct {
	registry *prometheus.Registry

	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	keyPackagesStored    prometheus.Counter
	keyPackagesFetched   prometheus.Counter
	keyPackagesExhausted prometheus.Counter
	messagesDelivered    prometheus.Counter
	messagesAcknowledged prometheus.Counter
	clientsWithPool      prometheus.Gauge
	lowPools             prometheus.Gauge
	pendingEntries       prometheus.Gauge
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Number of HTTP requests handled, by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests, by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		keyPackagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_packages_stored_total",
			Help:      "Number of key packages accepted by pool replacements",
		}),
		keyPackagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_packages_fetched_total",
			Help:      "Number of key packages handed out and removed from a pool",
		}),
		keyPackagesExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_packages_exhausted_total",
			Help:      "Number of fetches that found an empty pool",
		}),
		messagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_entries_delivered_total",
			Help:      "Number of mailbox entries appended, one per recipient",
		}),
		messagesAcknowledged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_entries_acknowledged_total",
			Help:      "Number of mailbox entries removed by acknowledgements",
		}),
		clientsWithPool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_with_key_packages",
			Help:      "Clients holding at least one key package, as of the last pool report",
		}),
		lowPools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "key_package_pools_low",
			Help:      "Clients whose pool is at or under the low threshold, as of the last pool report",
		}),
		pendingEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mailbox_entries_pending",
			Help:      "Unacknowledged mailbox entries across all clients, as of the last pool report",
		}),
	}
	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.keyPackagesStored,
		m.keyPackagesFetched,
		m.keyPackagesExhausted,
		m.messagesDelivered,
		m.messagesAcknowledged,
		m.clientsWithPool,
		m.lowPools,
		m.pendingEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) KeyPackagesStored(n int) {
	m.keyPackagesStored.Add(float64(n))
}

func (m *Metrics) KeyPackageFetched() {
	m.keyPackagesFetched.Inc()
}

func (m *Metrics) KeyPackagesExhausted() {
	m.keyPackagesExhausted.Inc()
}

func (m *Metrics) MessagesDelivered(n int) {
	m.messagesDelivered.Add(float64(n))
}

func (m *Metrics) MessagesAcknowledged(n int) {
	m.messagesAcknowledged.Add(float64(n))
}

// PoolSnapshot replaces the gauges sampled by the pool reporter.
func (m *Metrics) PoolSnapshot(clientsWithPool, lowPools, pendingEntries int) {
	m.clientsWithPool.Set(float64(clientsWithPool))
	m.lowPools.Set(float64(lowPools))
	m.pendingEntries.Set(float64(pendingEntries))
}
