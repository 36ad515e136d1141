package prometheus

import (
	"github.com/candorlabs/liveinterview/runtime/events"
)

// MetricsListener records session events as Prometheus metrics.
// Register it with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch data := event.Data.(type) {
	case events.StatusChangedData:
		RecordStatus(data.To)
	case events.ReconnectScheduledData:
		RecordReconnect(data.Delay.Seconds())
	case events.EnvelopeReceivedData:
		RecordEnvelope(data.Type)
	case events.FrameSentData:
		RecordFrameSent(data.Kind, data.Bytes)
		if data.Kind == "audio" {
			RecordInputLevel(data.Level)
		}
	case events.FrameDroppedData:
		RecordFrameDropped(data.Kind, data.Reason)
	case events.PlaybackScheduledData:
		RecordPlayback(data.Ahead.Seconds())
	case events.TranscriptUpdatedData:
		if data.Created {
			RecordUtterance(data.Role)
		}
	case events.ProctoringUpdatedData:
		RecordProctoring(data.Warnings)
	default:
		// Ignore events that don't have metrics
	}
}
