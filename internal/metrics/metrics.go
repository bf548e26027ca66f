package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ObjectsParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpcrunch_objects_parsed_total",
			Help: "RPSL objects successfully parsed, by class.",
		},
		[]string{"class"},
	)

	ObjectsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpcrunch_objects_dropped_total",
			Help: "RPSL objects dropped for failing to parse, by class.",
		},
		[]string{"class"},
	)

	BGPRowsParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpcrunch_bgp_rows_parsed_total",
			Help: "BGP table rows successfully parsed, by address family.",
		},
		[]string{"afi"},
	)

	BGPRowsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpcrunch_bgp_rows_dropped_total",
			Help: "BGP table rows dropped for failing to parse, by address family.",
		},
		[]string{"afi"},
	)

	RouteCheckCodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpcrunch_route_check_code_total",
			Help: "Route-object check results, by status code and address family.",
		},
		[]string{"afi", "code"},
	)

	PathCheckHopCodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpcrunch_path_check_hop_code_total",
			Help: "Path checker per-hop results, by status code and address family.",
		},
		[]string{"afi", "code"},
	)

	DayProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bgpcrunch_day_processing_duration_seconds",
			Help:    "Wall-clock time to process one day's snapshot.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"phase"},
	)

	WorkerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bgpcrunch_worker_queue_depth",
			Help: "Number of days queued but not yet claimed by a worker.",
		},
		[]string{"phase"},
	)

	DBWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bgpcrunch_db_write_duration_seconds",
			Help:    "Rollup sink write latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"table"},
	)
)

func Register() {
	prometheus.MustRegister(
		ObjectsParsedTotal,
		ObjectsDroppedTotal,
		BGPRowsParsedTotal,
		BGPRowsDroppedTotal,
		RouteCheckCodeTotal,
		PathCheckHopCodeTotal,
		DayProcessingDuration,
		WorkerQueueDepth,
		DBWriteDuration,
	)
}
