package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	ClustersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ontapwatch_clusters_total",
			Help: "Number of clusters in the monitored fleet",
		},
	)

	ClustersFailing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ontapwatch_clusters_failing_total",
			Help: "Number of fleet clusters whose last monitoring pass failed",
		},
	)

	// Monitoring pass metrics
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ontapwatch_passes_total",
			Help: "Total number of monitoring passes by outcome",
		},
		[]string{"outcome"},
	)

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ontapwatch_pass_duration_seconds",
			Help:    "Duration of a full monitoring pass over one cluster in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ServiceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ontapwatch_service_checks_total",
			Help: "Total number of service evaluations by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// Alert metrics
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ontapwatch_alerts_total",
			Help: "Total number of alerts published by severity",
		},
		[]string{"severity"},
	)

	// Cluster API metrics
	ClusterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ontapwatch_cluster_api_requests_total",
			Help: "Total number of ONTAP REST API requests by status code",
		},
		[]string{"status"},
	)

	ClusterRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ontapwatch_cluster_api_request_duration_seconds",
			Help:    "ONTAP REST API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Audit ingestion metrics
	AuditRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ontapwatch_audit_records_total",
			Help: "Total number of audit log records forwarded to CloudWatch Logs",
		},
	)

	AuditPushFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ontapwatch_audit_push_failures_total",
			Help: "Total number of failed CloudWatch Logs pushes during audit ingestion",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ClustersTotal)
	prometheus.MustRegister(ClustersFailing)
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(ServiceChecksTotal)
	prometheus.MustRegister(AlertsTotal)
	prometheus.MustRegister(ClusterRequestsTotal)
	prometheus.MustRegister(ClusterRequestDuration)
	prometheus.MustRegister(AuditRecordsTotal)
	prometheus.MustRegister(AuditPushFailuresTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
