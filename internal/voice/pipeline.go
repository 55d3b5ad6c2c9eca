package voice

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/policy"
)

const defaultStageTimeout = 20 * time.Second

// Turn is the outcome of one voice request.
type Turn struct {
	Transcript string
	Emotion    string
	Reply      string
	Audio      []byte
	Strategy   string
	Timings    map[Stage]time.Duration
}

// Pipeline sequences validation, transcription, generation and synthesis for
// one request. Stages never overlap and no stage is retried.
type Pipeline struct {
	transcriber  Transcriber
	generator    Generator
	synthesizer  Synthesizer
	metrics      *observability.Metrics
	logger       *zap.Logger
	stageTimeout time.Duration
}

func NewPipeline(
	transcriber Transcriber,
	generator Generator,
	synthesizer Synthesizer,
	metrics *observability.Metrics,
	logger *zap.Logger,
	stageTimeout time.Duration,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stageTimeout <= 0 {
		stageTimeout = defaultStageTimeout
	}
	return &Pipeline{
		transcriber:  transcriber,
		generator:    generator,
		synthesizer:  synthesizer,
		metrics:      metrics,
		logger:       logger,
		stageTimeout: stageTimeout,
	}
}

// Respond runs a full turn for base64 audio. Every returned error is a *Error.
func (p *Pipeline) Respond(ctx context.Context, audioBase64 string) (Turn, error) {
	turn := Turn{Timings: make(map[Stage]time.Duration, 3)}

	audio, err := DecodeAudio(audioBase64)
	if err != nil {
		return turn, err
	}

	err = p.runStage(ctx, StageTranscribe, &turn, func(ctx context.Context) error {
		text, err := p.transcriber.Transcribe(ctx, audio)
		turn.Transcript = strings.TrimSpace(text)
		return err
	})
	if err != nil {
		return turn, err
	}
	if turn.Transcript == "" {
		p.metrics.ObserveSilence()
	}

	err = p.runStage(ctx, StageGenerate, &turn, func(ctx context.Context) error {
		ext, err := p.generator.Generate(ctx, turn.Transcript)
		turn.Emotion = ext.Reply.Emotion
		turn.Reply = ext.Reply.Reply
		turn.Strategy = ext.Strategy
		return err
	})
	if err != nil {
		return turn, err
	}
	if strings.TrimSpace(turn.Reply) == "" {
		return turn, p.fail(ResponseShapeInvalid("generated reply is empty"))
	}
	turn.Emotion = allowedEmotionOrNeutral(turn.Emotion)
	if turn.Strategy != "" {
		p.metrics.ObserveExtraction(turn.Strategy)
	}

	err = p.runStage(ctx, StageSynthesize, &turn, func(ctx context.Context) error {
		audio, err := p.synthesizer.Synthesize(ctx, turn.Reply, turn.Emotion)
		turn.Audio = audio
		return err
	})
	if err != nil {
		return turn, err
	}
	if len(turn.Audio) == 0 {
		return turn, p.fail(ResponseShapeInvalid("synthesized audio is empty"))
	}

	p.logger.Debug("voice turn completed",
		zap.String("transcript", policy.RedactForLog(turn.Transcript)),
		zap.String("reply", policy.RedactForLog(turn.Reply)),
		zap.String("emotion", turn.Emotion),
		zap.String("strategy", turn.Strategy),
		zap.Int("audio_bytes", len(turn.Audio)),
	)
	return turn, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, turn *Turn, fn func(ctx context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	start := time.Now()
	err := fn(stageCtx)
	elapsed := time.Since(start)
	turn.Timings[stage] = elapsed
	p.metrics.ObserveStage(string(stage), elapsed)
	if err == nil {
		return nil
	}
	var ve *Error
	if !errors.As(err, &ve) {
		ve = upstreamFailure(stage, err)
	}
	return p.fail(ve)
}

func (p *Pipeline) fail(err *Error) *Error {
	p.metrics.ObserveFailure(string(err.Stage), string(err.Kind))
	p.logger.Warn("voice turn failed",
		zap.String("stage", string(err.Stage)),
		zap.String("kind", string(err.Kind)),
		zap.Error(err),
	)
	return err
}
