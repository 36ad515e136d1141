package transcript

import (
	"sync"
	"time"

	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// Message is one entry of the conversational chat log.
type Message struct {
	Role protocol.Role `json:"role"`
	Text string        `json:"text"`
	At   time.Time     `json:"timestamp"`
}

// Log is the append-only chat log: assistant text envelopes and typed user input.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	emitter  *events.Emitter
	now      func() time.Time
}

// NewLog creates an empty chat log. emitter may be nil.
func NewLog(emitter *events.Emitter) *Log {
	return &Log{emitter: emitter, now: time.Now}
}

// Append adds a message. Empty text is ignored.
func (l *Log) Append(role protocol.Role, text string) {
	if text == "" {
		return
	}
	l.mu.Lock()
	l.messages = append(l.messages, Message{Role: role, Text: text, At: l.now()})
	l.mu.Unlock()
	l.emitter.MessageAppended(string(role), text)
}

// Messages returns a copy of the log.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
