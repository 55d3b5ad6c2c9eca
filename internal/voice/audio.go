package voice

import (
	"encoding/base64"
	"strings"
)

// DecodeAudio decodes the request's base64 audio. A leading data URL header
// ("data:audio/webm;base64,") is ignored, and standard or URL-safe alphabets
// are accepted with or without padding.
func DecodeAudio(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, InputInvalid("audioBase64 data URL has no payload")
		}
		s = s[idx+1:]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, InputInvalid("audioBase64 must be a non-empty string")
	}

	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	if !strings.HasSuffix(s, "=") {
		enc = enc.WithPadding(base64.NoPadding)
	}
	audio, err := enc.DecodeString(s)
	if err != nil {
		return nil, &Error{Kind: KindInputInvalid, Stage: StageValidate, Message: "audioBase64 is not valid base64", Err: err}
	}
	if len(audio) == 0 {
		return nil, InputInvalid("audioBase64 decodes to empty audio")
	}
	return audio, nil
}
