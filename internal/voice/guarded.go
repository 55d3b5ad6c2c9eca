package voice

import (
	"context"
	"strings"
)

// WithGuards wraps each adapter so its upstream call runs through the given
// guard. A nil guard leaves that adapter untouched.
func WithGuards(
	t Transcriber, tg Guard,
	g Generator, gg Guard,
	s Synthesizer, sg Guard,
) (Transcriber, Generator, Synthesizer) {
	if tg != nil {
		t = &guardedTranscriber{inner: t, guard: tg}
	}
	if gg != nil {
		g = &guardedGenerator{inner: g, guard: gg}
	}
	if sg != nil {
		s = &guardedSynthesizer{inner: s, guard: sg}
	}
	return t, g, s
}

type guardedTranscriber struct {
	inner Transcriber
	guard Guard
}

func (t *guardedTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var text string
	err := t.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = t.inner.Transcribe(ctx, audio)
		return err
	})
	if err != nil {
		return "", upstreamFailure(StageTranscribe, err)
	}
	return text, nil
}

type guardedGenerator struct {
	inner Generator
	guard Guard
}

func (g *guardedGenerator) Generate(ctx context.Context, transcript string) (Extraction, error) {
	// Silence never reaches the upstream, so an open breaker must not fail it.
	if strings.TrimSpace(transcript) == "" {
		return g.inner.Generate(ctx, transcript)
	}
	var ext Extraction
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		ext, err = g.inner.Generate(ctx, transcript)
		return err
	})
	if err != nil {
		return Extraction{}, upstreamFailure(StageGenerate, err)
	}
	return ext, nil
}

type guardedSynthesizer struct {
	inner Synthesizer
	guard Guard
}

func (s *guardedSynthesizer) Synthesize(ctx context.Context, text, emotion string) ([]byte, error) {
	var audio []byte
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		audio, err = s.inner.Synthesize(ctx, text, emotion)
		return err
	})
	if err != nil {
		return nil, upstreamFailure(StageSynthesize, err)
	}
	return audio, nil
}
