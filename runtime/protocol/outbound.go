package protocol

import (
	"bytes"
	"encoding/json"
)

// Outbound is implemented by envelopes the client sends.
type Outbound interface {
	Kind() Type
	outbound()
}

// AudioMessage streams one captured frame as base64 PCM16.
type AudioMessage struct {
	Data string `json:"data"`
}

// ImageMessage streams one camera frame.
type ImageMessage struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// TextMessage sends typed user input.
type TextMessage struct {
	Text         string `json:"text"`
	TurnComplete bool   `json:"turn_complete"`
}

// ContextMessage carries the resume and job description the interview is about.
// The backend waits for it before going live.
type ContextMessage struct {
	ResumeText         string `json:"resumeText,omitempty"`
	JobDescriptionText string `json:"jobDescriptionText,omitempty"`
}

// ControlMessage issues a session control action.
type ControlMessage struct {
	Action string `json:"action"`
}

// ActionStop asks the backend to end the session.
const ActionStop = "stop"

func (AudioMessage) Kind() Type   { return TypeAudio }
func (ImageMessage) Kind() Type   { return TypeImage }
func (TextMessage) Kind() Type    { return TypeText }
func (ContextMessage) Kind() Type { return TypeContext }
func (ControlMessage) Kind() Type { return TypeControl }

func (AudioMessage) outbound()   {}
func (ImageMessage) outbound()   {}
func (TextMessage) outbound()    {}
func (ContextMessage) outbound() {}
func (ControlMessage) outbound() {}

// Stop returns the stop control envelope.
func Stop() ControlMessage {
	return ControlMessage{Action: ActionStop}
}

// Marshal encodes an outbound envelope with its type discriminator first.
func Marshal(m Outbound) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	kind, err := json.Marshal(m.Kind())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(kind) + len(`{"type":,`))
	buf.WriteString(`{"type":`)
	buf.Write(kind)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
