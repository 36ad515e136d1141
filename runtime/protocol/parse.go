package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEnvelope is returned when a frame is not a JSON object with a string type.
var ErrMalformedEnvelope = errors.New("malformed envelope")

type header struct {
	Type *Type `json:"type"`
}

// Parse decodes one inbound frame. Unknown types yield Unrecognized with a nil error.
func Parse(data []byte) (Inbound, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if h.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}

	switch *h.Type {
	case TypeStatus:
		return decode[Status](data)
	case TypeAudio:
		return decode[Audio](data)
	case TypeText:
		return decode[Text](data)
	case TypeTranscript:
		return decode[Transcript](data)
	case TypeMonitor:
		return decode[Monitor](data)
	case TypeRecordings:
		return decode[Recordings](data)
	case TypeSessionComplete:
		return decode[SessionComplete](data)
	case TypeSessionResumption:
		return decode[SessionResumption](data)
	case TypeContextAck:
		return decode[ContextAck](data)
	case TypeError:
		return decode[Error](data)
	case TypeSessionExpired:
		return decode[SessionExpired](data)
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unrecognized{Type: *h.Type, Raw: raw}, nil
	}
}

func decode[T Inbound](data []byte) (Inbound, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedEnvelope, v.Kind(), err)
	}
	return v, nil
}
