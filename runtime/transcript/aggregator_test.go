package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func pairs(us []Utterance) [][2]string {
	out := make([][2]string, len(us))
	for i, u := range us {
		out[i] = [2]string{string(u.Role), u.Text}
	}
	return out
}

func TestAggregatorMergesSameRole(t *testing.T) {
	a := NewAggregator()
	a.Add(protocol.RoleUser, "Hel")
	a.Add(protocol.RoleUser, "lo")
	a.Add(protocol.RoleAssistant, "Hi")

	assert.Equal(t, [][2]string{{"user", "Hello"}, {"assistant", "Hi"}}, pairs(a.Utterances()))
}

func TestAggregatorRoleAlternation(t *testing.T) {
	a := NewAggregator()
	for _, f := range []struct {
		role protocol.Role
		text string
	}{
		{protocol.RoleAssistant, "Tell me "},
		{protocol.RoleAssistant, "about yourself."},
		{protocol.RoleUser, "I build "},
		{protocol.RoleUser, "streaming systems."},
		{protocol.RoleAssistant, "Great."},
		{protocol.RoleUser, "Thanks"},
	} {
		_, ok := a.Add(f.role, f.text)
		require.True(t, ok)
	}

	assert.Equal(t, [][2]string{
		{"assistant", "Tell me about yourself."},
		{"user", "I build streaming systems."},
		{"assistant", "Great."},
		{"user", "Thanks"},
	}, pairs(a.Utterances()))
}

func TestAggregatorDropsEmpty(t *testing.T) {
	a := NewAggregator()
	idx, ok := a.Add(protocol.RoleUser, "")
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0, a.Len())

	_, ok = a.AddEnvelope(protocol.Transcript{Role: protocol.RoleUser, Payload: json.RawMessage(`{"finished":true}`)})
	assert.False(t, ok)
	assert.Equal(t, 0, a.Len())
}

func TestAggregatorAddEnvelope(t *testing.T) {
	a := NewAggregator()
	idx, ok := a.AddEnvelope(protocol.Transcript{
		Role:    protocol.RoleAssistant,
		Payload: json.RawMessage(`{"segments":[{"text":"Good"},{"text":"morning"}]}`),
	})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "Good morning", a.Utterances()[0].Text)
}

func TestAggregatorIsMonotonic(t *testing.T) {
	a := NewAggregator(WithClock(fixedClock()))
	a.Add(protocol.RoleUser, "a")
	first := a.Utterances()
	a.Add(protocol.RoleUser, "b")
	a.Add(protocol.RoleAssistant, "c")

	second := a.Utterances()
	require.Len(t, second, 2)
	assert.Equal(t, first[0].StartedAt, second[0].StartedAt, "extending keeps the start time")
	assert.Equal(t, "a", first[0].Text, "returned snapshots are not aliased")
	assert.Equal(t, "ab", second[0].Text)
}

func TestAggregatorEmitsUpdates(t *testing.T) {
	bus := events.NewEventBus()
	var got []events.TranscriptUpdatedData
	bus.Subscribe(events.EventTranscriptUpdated, func(e *events.Event) {
		got = append(got, e.Data.(events.TranscriptUpdatedData))
	})
	a := NewAggregator(WithEmitter(events.NewEmitter(bus, "s")))
	a.Add(protocol.RoleUser, "Hel")
	a.Add(protocol.RoleUser, "lo")
	bus.Close()

	require.Len(t, got, 2)
	assert.True(t, got[0].Created)
	assert.False(t, got[1].Created)
	assert.Equal(t, "Hello", got[1].Text)
	assert.Equal(t, 0, got[1].Index)
}

func TestFormat(t *testing.T) {
	a := NewAggregator(WithClock(fixedClock()))
	a.Add(protocol.RoleAssistant, " Hello there ")
	a.Add(protocol.RoleUser, "   ")
	a.Add(protocol.RoleAssistant, "Ready?")

	assert.Equal(t,
		"[2026-03-01T10:00:01.000Z] ASSISTANT: Hello there\n[2026-03-01T10:00:03.000Z] ASSISTANT: Ready?",
		a.Format())
}

func TestWriteJSONL(t *testing.T) {
	a := NewAggregator(WithClock(fixedClock()))
	a.Add(protocol.RoleUser, "one")
	a.Add(protocol.RoleAssistant, "two")

	var buf bytes.Buffer
	require.NoError(t, a.WriteJSONL(&buf))

	sc := bufio.NewScanner(&buf)
	var lines []Utterance
	for sc.Scan() {
		var u Utterance
		require.NoError(t, json.Unmarshal(sc.Bytes(), &u))
		lines = append(lines, u)
	}
	assert.Equal(t, [][2]string{{"user", "one"}, {"assistant", "two"}}, pairs(lines))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	a := NewAggregator(WithClock(fixedClock()))
	a.Add(protocol.RoleUser, "hi")

	jsonl, text, err := a.Export(filepath.Join(dir, "out"), "s1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "s1_transcript.jsonl"), jsonl)

	body, err := os.ReadFile(text)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(body), "USER: hi"))
}

func TestLog(t *testing.T) {
	l := NewLog(nil)
	l.Append(protocol.RoleAssistant, "Welcome")
	l.Append(protocol.RoleUser, "")
	l.Append(protocol.RoleUser, "Thanks")

	msgs := l.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Thanks", msgs[1].Text)
}
