package protocol

import (
	"encoding/json"
	"strings"
)

// Type is the envelope discriminator.
type Type string

// Inbound envelope types.
const (
	TypeStatus            Type = "status"
	TypeAudio             Type = "audio"
	TypeText              Type = "text"
	TypeTranscript        Type = "transcript"
	TypeMonitor           Type = "monitor"
	TypeRecordings        Type = "recordings"
	TypeSessionComplete   Type = "session_complete"
	TypeSessionResumption Type = "session_resumption"
	TypeContextAck        Type = "context_ack"
	TypeError             Type = "error"
	TypeSessionExpired    Type = "session_expired"
)

// Outbound-only envelope types. TypeAudio and TypeText are used in both directions.
const (
	TypeImage   Type = "image"
	TypeContext Type = "context"
	TypeControl Type = "control"
)

// Role identifies who authored transcript text.
type Role string

// Transcript roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Monitor events.
const (
	MonitorLookAwayWarning    = "look_away_warning"
	MonitorLookAwayTerminated = "look_away_terminated"
)

// Context fields the backend reports in a context_ack.
const (
	ContextFieldResume         = "resume"
	ContextFieldJobDescription = "jobDescription"
)

// StatusReady is the status value the backend sends once it is live.
const StatusReady = "ready"

// Inbound is implemented by every parsed inbound envelope.
type Inbound interface {
	Kind() Type
}

// Status announces negotiated sample rates and optionally a resumption handle.
type Status struct {
	Status            string `json:"status"`
	SendSampleRate    int    `json:"sendSampleRate,omitempty"`
	ReceiveSampleRate int    `json:"receiveSampleRate,omitempty"`
	ResumeHandle      string `json:"resumeHandle,omitempty"`
}

// Audio carries base64 PCM16 speech from the backend.
type Audio struct {
	Data       string `json:"data"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// Text is an assistant-authored chat message.
type Text struct {
	Text string `json:"text"`
}

// Transcript is a fragment of live transcription for one role.
// Payload is kept raw because its shape varies.
type Transcript struct {
	Role    Role            `json:"role"`
	Payload json.RawMessage `json:"payload"`
}

// Monitor reports proctoring events.
type Monitor struct {
	Event     string `json:"event"`
	Warnings  int    `json:"warnings,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// Recordings lists the artifacts the backend saved for the session.
type Recordings struct {
	SessionID       string `json:"sessionId,omitempty"`
	AssistantPath   string `json:"assistantPath,omitempty"`
	CandidatePath   string `json:"candidatePath,omitempty"`
	MixPath         string `json:"mixPath,omitempty"`
	TranscriptsPath string `json:"transcriptsPath,omitempty"`
}

// SessionComplete ends the logical session.
type SessionComplete struct {
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// SessionResumption issues or rotates the resumption handle.
type SessionResumption struct {
	Handle string `json:"handle"`
}

// ContextAck lists which context fields the backend accepted.
type ContextAck struct {
	Updated []string `json:"updated"`
}

// Error is a backend-declared failure.
type Error struct {
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SessionExpired means the resumption handle is no longer valid.
type SessionExpired struct {
	Message string `json:"message,omitempty"`
}

// Unrecognized holds an envelope whose type this client does not handle.
type Unrecognized struct {
	Type Type
	Raw  json.RawMessage
}

// Kind implementations for the inbound union.
func (Status) Kind() Type            { return TypeStatus }
func (Audio) Kind() Type             { return TypeAudio }
func (Text) Kind() Type              { return TypeText }
func (Transcript) Kind() Type        { return TypeTranscript }
func (Monitor) Kind() Type           { return TypeMonitor }
func (Recordings) Kind() Type        { return TypeRecordings }
func (SessionComplete) Kind() Type   { return TypeSessionComplete }
func (SessionResumption) Kind() Type { return TypeSessionResumption }
func (ContextAck) Kind() Type        { return TypeContextAck }
func (Error) Kind() Type             { return TypeError }
func (SessionExpired) Kind() Type    { return TypeSessionExpired }
func (u Unrecognized) Kind() Type    { return u.Type }

// transcriptPayload is the object form of a transcript payload.
type transcriptPayload struct {
	Text        *string   `json:"text"`
	Transcript  *string   `json:"transcript"`
	Segments    []segment `json:"segments"`
	Transcripts []segment `json:"transcripts"`
	Finished    *bool     `json:"finished"`
}

type segment struct {
	Text *string `json:"text"`
}

// ExtractText returns the text of a transcript payload. A bare string wins,
// then the transcript field, then the text field, then the segments or
// transcripts array joined with spaces. ok is false when nothing usable is present.
func (t Transcript) ExtractText() (text string, ok bool) {
	if len(t.Payload) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(t.Payload, &s); err == nil {
		return s, s != ""
	}

	var p transcriptPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return "", false
	}
	if p.Transcript != nil && *p.Transcript != "" {
		return *p.Transcript, true
	}
	if p.Text != nil && *p.Text != "" {
		return *p.Text, true
	}
	for _, list := range [][]segment{p.Segments, p.Transcripts} {
		parts := make([]string, 0, len(list))
		for _, seg := range list {
			if seg.Text != nil {
				parts = append(parts, *seg.Text)
			}
		}
		if joined := strings.TrimSpace(strings.Join(parts, " ")); joined != "" {
			return joined, true
		}
	}
	return "", false
}

// Finished reports whether the payload marks the end of a turn.
func (t Transcript) Finished() bool {
	var p transcriptPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return false
	}
	return p.Finished != nil && *p.Finished
}
