package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qwami_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qwami_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// RPCCallsTotal counts ledger RPC calls by method and outcome.
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qwami_rpc_calls_total",
		Help: "Total number of ledger RPC calls",
	}, []string{"method", "outcome"})

	// RPCCallDuration tracks ledger RPC latency.
	RPCCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qwami_rpc_call_duration_seconds",
		Help:    "Ledger RPC call latency in seconds",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	// OperationsTotal counts orchestrated token operations by kind and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qwami_operations_total",
		Help: "Total number of token operations executed",
	}, []string{"kind", "status", "simulated"})

	// BalanceRefreshesTotal counts balance reconciliation attempts.
	BalanceRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qwami_balance_refreshes_total",
		Help: "Total number of balance refresh attempts",
	}, []string{"outcome"})
)

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
