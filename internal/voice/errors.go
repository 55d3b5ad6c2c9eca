package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind tags every failure the pipeline can surface to a caller.
type ErrorKind string

const (
	KindInputInvalid                ErrorKind = "input_invalid"
	KindConfigMissing               ErrorKind = "config_missing"
	KindUpstreamTranscriptionFailed ErrorKind = "upstream_transcription_failed"
	KindUpstreamGenerationFailed    ErrorKind = "upstream_generation_failed"
	KindUpstreamGenerationBlocked   ErrorKind = "upstream_generation_blocked"
	KindUpstreamSynthesisFailed     ErrorKind = "upstream_synthesis_failed"
	KindResponseShapeInvalid        ErrorKind = "response_shape_invalid"
)

// Stage names the pipeline step a failure came from.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageTranscribe Stage = "transcribe"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
	StageRespond    Stage = "respond"
)

// Error is the uniform failure shape produced by adapters and the pipeline.
type Error struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the tagged kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

func InputInvalid(format string, args ...any) *Error {
	return &Error{Kind: KindInputInvalid, Stage: StageValidate, Message: fmt.Sprintf(format, args...)}
}

func ConfigMissing(stage Stage, format string, args ...any) *Error {
	return &Error{Kind: KindConfigMissing, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

func ResponseShapeInvalid(format string, args ...any) *Error {
	return &Error{Kind: KindResponseShapeInvalid, Stage: StageRespond, Message: fmt.Sprintf(format, args...)}
}

// upstreamFailure wraps err as the failure kind owned by stage. A context
// deadline is reported as a timeout of that stage.
func upstreamFailure(stage Stage, err error) *Error {
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}
	kind := KindUpstreamGenerationFailed
	msg := "generation request failed"
	switch stage {
	case StageTranscribe:
		kind = KindUpstreamTranscriptionFailed
		msg = "transcription request failed"
	case StageSynthesize:
		kind = KindUpstreamSynthesisFailed
		msg = "synthesis request failed"
	}
	if errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
		msg = strings.Replace(msg, "request failed", "request timed out", 1)
	}
	return &Error{Kind: kind, Stage: stage, Message: msg, Err: err}
}

func generationBlocked(reason string) *Error {
	return &Error{
		Kind:    KindUpstreamGenerationBlocked,
		Stage:   StageGenerate,
		Message: fmt.Sprintf("generation blocked by safety policy (%s)", reason),
	}
}
