// Package metrics exposes Prometheus collectors for every core
// component. Shape grounded directly on the teacher's
// internal/metrics/ai_metrics.go (promauto CounterVec/GaugeVec/
// HistogramVec, low-cardinality label sets, small Record* helpers).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture
	CaptureFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_capture_frames_total",
			Help: "Total frames captured per camera",
		},
		[]string{"camera_id"},
	)
	CaptureOpenFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_capture_open_failures_total",
			Help: "Total capture open failures per camera",
		},
		[]string{"camera_id"},
	)
	CaptureReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_capture_read_failures_total",
			Help: "Total capture read failures per camera",
		},
		[]string{"camera_id"},
	)

	// Inference
	InferenceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_inference_runs_total",
			Help: "Total inference runs per camera",
		},
		[]string{"camera_id"},
	)
	InferenceLatencyMs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexguard_inference_latency_ms",
			Help:    "Inference latency in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"camera_id"},
	)
	InferenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_inference_failures_total",
			Help: "Total inference failures per camera",
		},
		[]string{"camera_id"},
	)

	// Detection events
	DetectionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_detection_events_total",
			Help: "Total detection events persisted",
		},
		[]string{"camera_id", "class"},
	)
	DetectionCooldownRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_detection_cooldown_rejected_total",
			Help: "Total detections suppressed by cooldown",
		},
		[]string{"camera_id", "class"},
	)
	RecordingsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexguard_recordings_active",
			Help: "Number of in-flight post-event recordings",
		},
	)
	ClipWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_clip_write_failures_total",
			Help: "Total clip finalize failures per camera",
		},
		[]string{"camera_id"},
	)

	// WebRTC
	WebRTCViewersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nexguard_webrtc_viewers_active",
			Help: "Active WebRTC viewer sessions per camera",
		},
		[]string{"camera_id"},
	)
	WebRTCPeerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_webrtc_peer_failures_total",
			Help: "Total WebRTC peer negotiation failures per camera",
		},
		[]string{"camera_id"},
	)

	// Media
	MediaRangeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_media_range_requests_total",
			Help: "Total media range requests by status",
		},
		[]string{"status"},
	)
	MediaTranscodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_media_transcodes_total",
			Help: "Total on-demand clip transcodes by outcome",
		},
		[]string{"outcome"},
	)

	// Notifications
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexguard_notifications_sent_total",
			Help: "Total alert notifications dispatched by outcome",
		},
		[]string{"outcome"},
	)
	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nexguard_notifications_dropped_total",
			Help: "Total alerts dropped because the worker pool queue was full",
		},
	)
)
