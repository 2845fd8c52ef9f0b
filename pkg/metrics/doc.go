/*
Package metrics provides Prometheus metrics collection and exposition for ontapwatch.

The metrics package defines and registers all ontapwatch metrics using the
Prometheus client library, providing observability into monitoring passes,
alert volume, ONTAP REST traffic, and audit log ingestion. Metrics are exposed
via HTTP endpoint for scraping by Prometheus servers when the engine runs in
daemon mode.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐           │
	│  │          Prometheus Registry               │           │
	│  │  - Global DefaultRegistry                  │           │
	│  │  - MustRegister at package init            │           │
	│  │  - Automatic Go runtime metrics            │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │           Metric Categories                │           │
	│  │                                            │           │
	│  │  Fleet: clusters total, clusters failing   │           │
	│  │  Passes: count by outcome, duration        │           │
	│  │  Services: evaluations by service/outcome  │           │
	│  │  Alerts: published by severity             │           │
	│  │  Cluster API: requests by status, latency  │           │
	│  │  Audit: records forwarded, push failures   │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │          HTTP Metrics Endpoint             │           │
	│  │  - Path: /metrics                          │           │
	│  │  - Format: Prometheus text exposition      │           │
	│  │  - Handler: promhttp.Handler()             │           │
	│  └────────────────────────────────────────────┘           │
	└───────────────────────────────────────────────────────────┘

# Metrics Catalog

Fleet Metrics:

ontapwatch_clusters_total:
  - Type: Gauge
  - Description: Number of clusters in the monitored fleet
  - Example: ontapwatch_clusters_total 12

ontapwatch_clusters_failing_total:
  - Type: Gauge
  - Description: Clusters whose last monitoring pass failed
  - Example: ontapwatch_clusters_failing_total 1

Monitoring Pass Metrics:

ontapwatch_passes_total{outcome}:
  - Type: Counter
  - Description: Monitoring passes by outcome (success/failure)
  - Example: ontapwatch_passes_total{outcome="success"} 288

ontapwatch_pass_duration_seconds:
  - Type: Histogram
  - Description: Duration of a full pass over one cluster
  - Buckets: Default Prometheus buckets

ontapwatch_service_checks_total{service, outcome}:
  - Type: Counter
  - Description: Service evaluations by service name and outcome
  - Example: ontapwatch_service_checks_total{service="ems",outcome="success"} 288

Alert Metrics:

ontapwatch_alerts_total{severity}:
  - Type: Counter
  - Description: Alerts published by severity
  - Example: ontapwatch_alerts_total{severity="WARNING"} 17

Cluster API Metrics:

ontapwatch_cluster_api_requests_total{status}:
  - Type: Counter
  - Description: ONTAP REST API requests by HTTP status code
  - Example: ontapwatch_cluster_api_requests_total{status="200"} 4021

ontapwatch_cluster_api_request_duration_seconds:
  - Type: Histogram
  - Description: ONTAP REST API request duration

Audit Ingestion Metrics:

ontapwatch_audit_records_total:
  - Type: Counter
  - Description: Audit log records forwarded to CloudWatch Logs

ontapwatch_audit_push_failures_total:
  - Type: Counter
  - Description: Failed CloudWatch Logs pushes during ingestion

# Health Checking

The package also hosts the component health registry backing the /health,
/ready and /live endpoints of the admin server. Components report in via
RegisterComponent and UpdateComponent; readiness requires every critical
component ("state", "fleet") to be healthy.

# Usage

Timing an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PassDuration)

Counting alerts:

	metrics.AlertsTotal.WithLabelValues(string(severity)).Inc()

Serving metrics:

	mux.Handle("/metrics", metrics.Handler())

# Integration

The monitor increments pass and service counters as it walks a cluster, the
ONTAP client observes every REST round trip, the alert publisher counts what
it emits, and the audit ingester tracks forwarded records. The Collector
samples fleet gauges from the dispatcher every 15 seconds.

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
