package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	RacksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quarry_racks_total",
			Help: "Total number of rack controllers by status",
		},
		[]string{"status"},
	)

	// Discovery metrics
	DiscoveryRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quarry_discovery_rounds_total",
			Help: "Total number of pod discovery rounds started",
		},
	)

	DiscoveryRoundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quarry_discovery_round_duration_seconds",
			Help:    "Wall-clock duration of pod discovery rounds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DiscoverySuccessesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quarry_discovery_successes_total",
			Help: "Total number of per-rack discovery calls that returned a pod",
		},
	)

	DiscoveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_discovery_failures_total",
			Help: "Total number of per-rack discovery failures by category",
		},
		[]string{"category"},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quarry_raft_is_leader",
			Help: "Whether this region node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quarry_raft_peers_total",
			Help: "Total number of Raft peers in the region cluster",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quarry_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RacksTotal)
	prometheus.MustRegister(DiscoveryRoundsTotal)
	prometheus.MustRegister(DiscoveryRoundDuration)
	prometheus.MustRegister(DiscoverySuccessesTotal)
	prometheus.MustRegister(DiscoveryFailuresTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
