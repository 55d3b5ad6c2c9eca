package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyBody      = errors.New("request body is empty")
	ErrMissingAudio   = errors.New("audioBase64 is required")
	ErrAudioNotString = errors.New("audioBase64 must be a string")
)

// VoiceRequest is the body accepted by the voice endpoint.
type VoiceRequest struct {
	AudioBase64 string `json:"audioBase64"`
}

// VoiceResponse is returned on a completed turn.
type VoiceResponse struct {
	Transcript  string `json:"transcript"`
	Emotion     string `json:"emotion"`
	Reply       string `json:"reply"`
	AudioBase64 string `json:"audioBase64"`
}

// ErrorResponse is returned for every failed turn.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ParseVoiceRequest validates the raw body shape. It only checks that
// audioBase64 is a non-empty JSON string; decoding the audio is left to the caller.
func ParseVoiceRequest(raw []byte) (VoiceRequest, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return VoiceRequest{}, ErrEmptyBody
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return VoiceRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	field, ok := fields["audioBase64"]
	if !ok || string(field) == "null" {
		return VoiceRequest{}, ErrMissingAudio
	}
	var audio string
	if err := json.Unmarshal(field, &audio); err != nil {
		return VoiceRequest{}, ErrAudioNotString
	}
	if strings.TrimSpace(audio) == "" {
		return VoiceRequest{}, ErrMissingAudio
	}
	return VoiceRequest{AudioBase64: audio}, nil
}
