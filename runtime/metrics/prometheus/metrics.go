// Package prometheus provides Prometheus metrics for live interview sessions.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "liveinterview"

// Status label values match session.Status strings.
var sessionStatuses = []string{"disconnected", "connecting", "connected", "error"}

var (
	// sessionStatus is 1 for the current connection status and 0 for the others.
	sessionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_status",
			Help:      "Current connection status (1 for the active status)",
		},
		[]string{"status"},
	)

	// reconnectAttemptsTotal counts scheduled reconnect attempts.
	reconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Total number of reconnect attempts scheduled",
		},
	)

	// reconnectDelay observes the backoff delay of each scheduled reconnect.
	reconnectDelay = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay before each reconnect attempt",
			Buckets:   []float64{1, 2, 4, 8, 10},
		},
	)

	// envelopesReceivedTotal counts dispatched inbound envelopes by type.
	envelopesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_received_total",
			Help:      "Total number of inbound envelopes dispatched",
		},
		[]string{"type"},
	)

	// framesSentTotal counts outbound media frames.
	framesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total number of media frames written to the channel",
		},
		[]string{"kind"}, // audio, image
	)

	// bytesSentTotal counts payload bytes of outbound media frames.
	bytesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total encoded payload bytes of media frames written to the channel",
		},
		[]string{"kind"},
	)

	// framesDroppedTotal counts frames discarded at a component boundary.
	framesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped",
		},
		[]string{"kind", "reason"},
	)

	// inputLevel is the RMS level of the last captured block.
	inputLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_level",
			Help:      "RMS level of the most recent captured audio block (0-1)",
		},
	)

	// playbackFramesTotal counts frames committed to the output timeline.
	playbackFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_frames_total",
			Help:      "Total number of decoded frames scheduled for playback",
		},
	)

	// playbackQueueSeconds is how far the play cursor runs ahead of the output clock.
	playbackQueueSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_queue_seconds",
			Help:      "Scheduled audio not yet played, in seconds",
		},
	)

	// transcriptUtterances counts utterances created.
	transcriptUtterances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_utterances_total",
			Help:      "Total number of transcript utterances started",
		},
		[]string{"role"},
	)

	// proctoringWarnings mirrors the look-away warning counter.
	proctoringWarnings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proctoring_warnings",
			Help:      "Look-away warnings issued in the current session",
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		sessionStatus,
		reconnectAttemptsTotal,
		reconnectDelay,
		envelopesReceivedTotal,
		framesSentTotal,
		bytesSentTotal,
		framesDroppedTotal,
		inputLevel,
		playbackFramesTotal,
		playbackQueueSeconds,
		transcriptUtterances,
		proctoringWarnings,
	}
)

// RecordStatus sets the active status gauge.
func RecordStatus(status string) {
	for _, s := range sessionStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		sessionStatus.WithLabelValues(s).Set(v)
	}
}

// RecordReconnect records a scheduled reconnect.
func RecordReconnect(delaySeconds float64) {
	reconnectAttemptsTotal.Inc()
	reconnectDelay.Observe(delaySeconds)
}

// RecordEnvelope records a dispatched inbound envelope.
func RecordEnvelope(envelopeType string) {
	envelopesReceivedTotal.WithLabelValues(envelopeType).Inc()
}

// RecordFrameSent records an outbound media frame.
func RecordFrameSent(kind string, bytes int) {
	framesSentTotal.WithLabelValues(kind).Inc()
	if bytes > 0 {
		bytesSentTotal.WithLabelValues(kind).Add(float64(bytes))
	}
}

// RecordFrameDropped records a discarded frame.
func RecordFrameDropped(kind, reason string) {
	framesDroppedTotal.WithLabelValues(kind, reason).Inc()
}

// RecordInputLevel records the RMS level of a captured block.
func RecordInputLevel(level float64) {
	inputLevel.Set(level)
}

// RecordPlayback records a scheduled playback frame and the resulting queue depth.
func RecordPlayback(aheadSeconds float64) {
	playbackFramesTotal.Inc()
	playbackQueueSeconds.Set(aheadSeconds)
}

// RecordUtterance records a new transcript utterance.
func RecordUtterance(role string) {
	transcriptUtterances.WithLabelValues(role).Inc()
}

// RecordProctoring records the current warning count.
func RecordProctoring(warnings int) {
	proctoringWarnings.Set(float64(warnings))
}
