// Package metrics registers the service's Prometheus collectors on the
// default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdrive_http_requests_total",
			Help: "HTTP requests handled, by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secdrive_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// OrphanedObjects counts objects left in the bucket after their metadata
	// record was removed.
	OrphanedObjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdrive_orphaned_objects_total",
			Help: "Objects whose deletion failed while their metadata was removed.",
		},
		[]string{"reason"},
	)

	// OrphanedMetadata counts metadata records that survived the deletion of
	// their object.
	OrphanedMetadata = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secdrive_orphaned_metadata_total",
			Help: "Metadata records whose deletion failed after the object was removed.",
		},
	)

	KMSRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdrive_kms_requests_total",
			Help: "Key service calls, by operation and result.",
		},
		[]string{"operation", "result"},
	)
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Orphan reasons.
const ReasonDeleteFailed = "delete_failed"
