// Package transport carries session traffic over WebSocket: structured JSON
// event records plus raw binary PCM frames.
package transport

import (
	"encoding/json"
	"errors"

	"github.com/MariaFayed/flames-avatar/internal/utterance"
)

// Record kinds on the wire.
const (
	KindPose   = "pose"
	KindText   = "text"
	KindAudio  = "audio"
	KindTiming = "timing"
)

// StopSentinel is sent as a bare text message when a presenter session ends.
const StopSentinel = "stop"

// ErrBadEnvelope reports a record that could not be decoded or carries no
// recognized kind.
var ErrBadEnvelope = errors.New("transport: malformed event record")

// Envelope is one structured event record. Only the fields for its Kind are
// populated; everything else stays at the zero value.
type Envelope struct {
	Kind string `json:"type"`

	// pose
	Yaw        float64 `json:"yaw,omitempty"`
	Pitch      float64 `json:"pitch,omitempty"`
	Roll       float64 `json:"roll,omitempty"`
	BlinkLeft  float64 `json:"blinkL,omitempty"`
	BlinkRight float64 `json:"blinkR,omitempty"`

	// text
	SourceText     string `json:"sourceText,omitempty"`
	TranslatedText string `json:"translatedText,omitempty"`

	// audio / timing halves of an utterance
	UtteranceID  string                  `json:"utteranceId,omitempty"`
	AudioPayload []byte                  `json:"audioPayload,omitempty"`
	TimingEvents []utterance.TimingEvent `json:"timingEvents,omitempty"`
}

// DecodeEnvelope parses a JSON event record. A record without a kind is
// malformed; unknown kinds are left to the caller to ignore.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, ErrBadEnvelope
	}
	if env.Kind == "" {
		return Envelope{}, ErrBadEnvelope
	}
	return env, nil
}
