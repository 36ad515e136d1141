package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/session"
)

// console prints notices, chat messages and settled transcript lines.
// Transcript utterances grow while a speaker talks, so a line is printed only
// once the next utterance starts or the console is flushed.
type console struct {
	mu      sync.Mutex
	out     io.Writer
	pending *events.TranscriptUpdatedData
	ended   bool

	finished chan struct{}
	once     sync.Once
}

func newConsole(out io.Writer) *console {
	return &console{out: out, finished: make(chan struct{})}
}

// Finished is closed when the session leaves the connecting/connected states.
func (c *console) Finished() <-chan struct{} { return c.finished }

// Ended reports whether the backend ended the interview.
func (c *console) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// Handle is an events.Listener.
func (c *console) Handle(evt *events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch d := evt.Data.(type) {
	case events.NoticeData:
		c.printNotice(d)
	case events.MessageAppendedData:
		fmt.Fprintf(c.out, "%s> %s\n", d.Role, d.Text)
	case events.TranscriptUpdatedData:
		if c.pending != nil && d.Index != c.pending.Index {
			c.printUtterance(*c.pending)
		}
		c.pending = &d
	case events.StatusChangedData:
		switch session.Status(d.To) {
		case session.StatusDisconnected, session.StatusError:
			c.once.Do(func() { close(c.finished) })
		}
	}
}

// Printf writes a status line between event output.
func (c *console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Flush prints the utterance still in progress.
func (c *console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.printUtterance(*c.pending)
		c.pending = nil
	}
}

func (c *console) printNotice(d events.NoticeData) {
	if d.Kind == events.NoticeEnded {
		c.ended = true
	}
	fmt.Fprintf(c.out, "* [%s] %s\n", d.Kind, d.Message)
}

func (c *console) printUtterance(d events.TranscriptUpdatedData) {
	fmt.Fprintf(c.out, "%s: %s\n", strings.ToUpper(d.Role), d.Text)
}
