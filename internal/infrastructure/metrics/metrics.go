package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Media Vault Metrics
var (
	// Upload counters
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total file uploads",
		},
		[]string{"content_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "ingest",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
		[]string{"content_type"},
	)

	// Delivery counters
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "delivery",
			Name:      "requests_total",
			Help:      "Total content delivery requests (by outcome)",
		},
		[]string{"status"},
	)

	DeliveryBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "delivery",
			Name:      "bytes_total",
			Help:      "Total bytes streamed to clients",
		},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mediavault",
			Subsystem: "delivery",
			Name:      "duration_seconds",
			Help:      "Content delivery duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Pipeline
	PipelineTasksActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediavault",
			Subsystem: "pipeline",
			Name:      "tasks_active",
			Help:      "Number of in-flight analysis tasks",
		},
	)

	PipelineCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "pipeline",
			Name:      "completed_total",
			Help:      "Terminal classifications (by status)",
		},
		[]string{"status"},
	)

	PipelineAbandonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "pipeline",
			Name:      "abandoned_total",
			Help:      "Tasks abandoned after exhausting persistence retries",
		},
	)

	// Event hub
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediavault",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Currently connected event subscribers",
		},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped because a subscriber buffer was full",
		},
	)
)

// RecordUpload records a file upload
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "accepted" {
		UploadBytesTotal.WithLabelValues(contentType).Add(float64(bytes))
	}
}

// RecordDelivery records a content delivery outcome
func RecordDelivery(status string, bytes int64, durationSec float64) {
	DeliveriesTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		DeliveryBytesTotal.Add(float64(bytes))
	}
	DeliveryDuration.Observe(durationSec)
}
