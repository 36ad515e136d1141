// Package transcript rebuilds a role-grouped transcript from streamed
// transcription fragments and keeps the conversational chat log.
package transcript

import (
	"sync"
	"time"

	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// Utterance is a contiguous run of same-role transcript text.
type Utterance struct {
	Role      protocol.Role `json:"role"`
	Text      string        `json:"text"`
	StartedAt time.Time     `json:"timestamp"`
}

// Aggregator merges fragments into utterances. Consecutive fragments with the
// same role extend the last utterance; a role change starts a new one.
// The sequence only grows: utterances are never reordered or removed.
type Aggregator struct {
	mu         sync.RWMutex
	utterances []Utterance
	emitter    *events.Emitter
	now        func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithEmitter publishes transcript.updated events for every change.
func WithEmitter(e *events.Emitter) Option {
	return func(a *Aggregator) { a.emitter = e }
}

// WithClock overrides the clock used to stamp new utterances.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add applies one fragment and returns the index of the utterance it landed in.
// Empty text is dropped and reported with ok=false.
func (a *Aggregator) Add(role protocol.Role, text string) (index int, ok bool) {
	if text == "" {
		return -1, false
	}

	a.mu.Lock()
	created := false
	last := len(a.utterances) - 1
	if last < 0 || a.utterances[last].Role != role {
		a.utterances = append(a.utterances, Utterance{Role: role, Text: text, StartedAt: a.now()})
		last++
		created = true
	} else {
		a.utterances[last].Text += text
	}
	u := a.utterances[last]
	a.mu.Unlock()

	a.emitter.TranscriptUpdated(events.TranscriptUpdatedData{
		Index:   last,
		Role:    string(u.Role),
		Text:    u.Text,
		Created: created,
	})
	return last, true
}

// AddEnvelope extracts the text of a transcript envelope and adds it.
func (a *Aggregator) AddEnvelope(t protocol.Transcript) (int, bool) {
	text, ok := t.ExtractText()
	if !ok {
		return -1, false
	}
	return a.Add(t.Role, text)
}

// Utterances returns a copy of the current sequence.
func (a *Aggregator) Utterances() []Utterance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Utterance, len(a.utterances))
	copy(out, a.utterances)
	return out
}

// Len returns the number of utterances.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.utterances)
}
