package session

import (
	"errors"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// inboundHandler routes parsed envelopes into the controller. It runs on the
// loop goroutine.
type inboundHandler struct {
	c *Controller
}

func (h inboundHandler) OnStatus(m protocol.Status) {
	h.c.apply(StatusReceived{
		SendRate:    m.SendSampleRate,
		ReceiveRate: m.ReceiveSampleRate,
		Handle:      m.ResumeHandle,
	})
}

func (h inboundHandler) OnAudio(m protocol.Audio) {
	if _, err := h.c.player.Enqueue(m); err != nil && !errors.Is(err, audio.ErrEmptyPayload) {
		logger.DebugContext(h.c.logCtx, "Dropping playback frame", "error", err)
	}
}

func (h inboundHandler) OnText(m protocol.Text) {
	if m.Text != "" {
		h.c.log.Append(protocol.RoleAssistant, m.Text)
	}
}

func (h inboundHandler) OnTranscript(m protocol.Transcript) {
	h.c.transcript.AddEnvelope(m)
}

func (h inboundHandler) OnMonitor(m protocol.Monitor) {
	next, notice, ok := h.c.proctoring.Apply(m)
	if !ok {
		logger.DebugContext(h.c.logCtx, "Ignoring monitor event", "event", m.Event)
		return
	}
	h.c.proctoring = next
	h.c.emitter.ProctoringUpdated(next.Warnings, next.Remaining, next.Terminated)
	h.c.notify(notice)
}

func (h inboundHandler) OnRecordings(m protocol.Recordings) {
	h.c.emitter.RecordingsAvailable(events.RecordingsAvailableData{
		SessionID:       m.SessionID,
		AssistantPath:   m.AssistantPath,
		CandidatePath:   m.CandidatePath,
		MixPath:         m.MixPath,
		TranscriptsPath: m.TranscriptsPath,
	})
	h.c.notify(Notify{Kind: events.NoticeInfo, Message: "Recordings saved"})
}

func (h inboundHandler) OnSessionComplete(m protocol.SessionComplete) {
	reason := m.Reason
	if reason == "" {
		reason = m.Detail
	}
	h.c.apply(SessionCompleted{Reason: reason})
}

func (h inboundHandler) OnSessionResumption(m protocol.SessionResumption) {
	h.c.apply(HandleReceived{Handle: m.Handle})
}

func (h inboundHandler) OnContextAck(m protocol.ContextAck) {
	h.c.emitter.ContextAcknowledged(m.Updated)
	if len(m.Updated) > 0 {
		h.c.notify(Notify{Kind: events.NoticeInfo, Message: "Interview context accepted"})
	}
}

func (h inboundHandler) OnError(m protocol.Error) {
	msg := m.Message
	switch {
	case msg == "":
		msg = m.Details
	case m.Details != "":
		msg += ": " + m.Details
	}
	h.c.apply(ServerError{Message: msg})
}

func (h inboundHandler) OnSessionExpired(m protocol.SessionExpired) {
	h.c.apply(SessionExpired{Message: m.Message})
}

func (inboundHandler) OnUnrecognized(protocol.Unrecognized) {}

var _ protocol.Handler = inboundHandler{}
