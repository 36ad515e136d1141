package session

import (
	"fmt"

	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// Proctoring mirrors the backend's look-away counters.
type Proctoring struct {
	Warnings int
	// Remaining is -1 until the backend reports it.
	Remaining  int
	Terminated bool
}

// Apply folds one monitor envelope into p and returns the notice to surface.
// ok is false for monitor events this client does not track.
func (p Proctoring) Apply(m protocol.Monitor) (next Proctoring, notice Notify, ok bool) {
	switch m.Event {
	case protocol.MonitorLookAwayWarning:
		if m.Warnings > 0 {
			p.Warnings = m.Warnings
		} else {
			p.Warnings++
		}
		if m.Remaining != nil {
			p.Remaining = *m.Remaining
		}
		msg := fmt.Sprintf("Look-away warning %d", p.Warnings)
		if p.Remaining >= 0 {
			msg += fmt.Sprintf(" (%d remaining)", p.Remaining)
		}
		return p, Notify{Kind: events.NoticeWarning, Message: msg}, true
	case protocol.MonitorLookAwayTerminated:
		p.Remaining = 0
		p.Terminated = true
		return p, Notify{Kind: events.NoticeEnded, Message: "Interview ended: candidate looked away too many times"}, true
	}
	return p, Notify{}, false
}
