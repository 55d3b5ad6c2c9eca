package reliability

import (
	"net/http"

	"github.com/ent0n29/voiceagent/internal/voice"
)

// StatusForKind maps a pipeline error kind to the HTTP status returned to clients.
func StatusForKind(kind voice.ErrorKind) int {
	switch kind {
	case voice.KindInputInvalid:
		return http.StatusBadRequest
	case voice.KindUpstreamTranscriptionFailed,
		voice.KindUpstreamGenerationFailed,
		voice.KindUpstreamGenerationBlocked,
		voice.KindUpstreamSynthesisFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CountsAgainstUpstream reports whether err reflects upstream health. Blocked
// generations, caller cancellation and local misconfiguration do not.
func CountsAgainstUpstream(err error) bool {
	if err == nil {
		return false
	}
	switch voice.KindOf(err) {
	case voice.KindUpstreamGenerationBlocked, voice.KindConfigMissing, voice.KindInputInvalid:
		return false
	}
	return !isCanceled(err)
}
