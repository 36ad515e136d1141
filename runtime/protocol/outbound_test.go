package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		msg  Outbound
		want string
	}{
		{"audio", AudioMessage{Data: "AAE="}, `{"type":"audio","data":"AAE="}`},
		{"image", ImageMessage{MimeType: "image/jpeg", Data: "x"}, `{"type":"image","mime_type":"image/jpeg","data":"x"}`},
		{"text", TextMessage{Text: "hi", TurnComplete: true}, `{"type":"text","text":"hi","turn_complete":true}`},
		{"context", ContextMessage{ResumeText: "r", JobDescriptionText: "j"}, `{"type":"context","resumeText":"r","jobDescriptionText":"j"}`},
		{"empty context", ContextMessage{}, `{"type":"context"}`},
		{"stop", Stop(), `{"type":"control","action":"stop"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
