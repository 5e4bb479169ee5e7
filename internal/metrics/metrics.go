// Package metrics holds the Prometheus collectors exported by socksgate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay directions, as seen from the client.
const (
	Upload   = "upload"
	Download = "download"
)

var (
	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socksgate_sessions_total",
		Help: "The total number of accepted client connections",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socksgate_sessions_active",
		Help: "The number of client connections currently being served",
	})
	SessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socksgate_sessions_rejected_total",
		Help: "The total number of client connections closed by admission control",
	}, []string{"reason"})
	AcceptErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socksgate_accept_errors_total",
		Help: "The total number of failed accept calls",
	})
	Replies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socksgate_replies_total",
		Help: "The total number of CONNECT replies sent, by reply code",
	}, []string{"code"})
	ConnectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "socksgate_connect_duration_seconds",
		Help:    "Time spent resolving and connecting to destinations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	})
	RelayedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socksgate_relayed_bytes_total",
		Help: "The total number of bytes relayed, by direction",
	}, []string{"direction"})
	DNSQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socksgate_dns_queries_total",
		Help: "The total number of DNS queries sent, by result",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
