package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubTranscriber struct {
	calls int
	text  string
	err   error
	block bool
}

func (s *stubTranscriber) Transcribe(ctx context.Context, _ []byte) (string, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

type stubGenerator struct {
	calls      int
	transcript string
	ext        Extraction
	err        error
}

func (s *stubGenerator) Generate(_ context.Context, transcript string) (Extraction, error) {
	s.calls++
	s.transcript = transcript
	return s.ext, s.err
}

type stubSynthesizer struct {
	calls   int
	text    string
	emotion string
	audio   []byte
	err     error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text, emotion string) ([]byte, error) {
	s.calls++
	s.text = text
	s.emotion = emotion
	return s.audio, s.err
}

var testAudio = base64.StdEncoding.EncodeToString([]byte("webm-bytes"))

func TestPipelineRespondSuccess(t *testing.T) {
	tr := &stubTranscriber{text: "  I got the job!  "}
	gen := &stubGenerator{ext: Extraction{Reply: StructuredReply{Emotion: "joy", Reply: "Congratulations!"}, Strategy: StrategyStrict}}
	syn := &stubSynthesizer{audio: []byte("mp3")}
	p := NewPipeline(tr, gen, syn, nil, nil, time.Second)

	turn, err := p.Respond(context.Background(), testAudio)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if turn.Transcript != "I got the job!" {
		t.Fatalf("Transcript = %q", turn.Transcript)
	}
	if gen.transcript != "I got the job!" {
		t.Fatalf("generator saw %q, want trimmed transcript", gen.transcript)
	}
	if turn.Emotion != "joy" || turn.Reply != "Congratulations!" || string(turn.Audio) != "mp3" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if syn.text != "Congratulations!" || syn.emotion != "joy" {
		t.Fatalf("synthesizer got (%q, %q)", syn.text, syn.emotion)
	}
	for _, stage := range []Stage{StageTranscribe, StageGenerate, StageSynthesize} {
		if _, ok := turn.Timings[stage]; !ok {
			t.Fatalf("missing timing for %s", stage)
		}
	}
}

func TestPipelineSilenceStillProducesReply(t *testing.T) {
	tr := &stubTranscriber{text: "   "}
	syn := &stubSynthesizer{audio: []byte("mp3")}
	p := NewPipeline(tr, NewMockProvider(), syn, nil, nil, time.Second)

	turn, err := p.Respond(context.Background(), testAudio)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if turn.Transcript != "" {
		t.Fatalf("Transcript = %q, want empty", turn.Transcript)
	}
	if turn.Strategy != StrategySilence || turn.Reply != silenceReply || turn.Emotion != EmotionNeutral {
		t.Fatalf("unexpected silent turn: %+v", turn)
	}
}

func TestPipelineInvalidAudioSkipsUpstreams(t *testing.T) {
	tr := &stubTranscriber{text: "hi"}
	gen := &stubGenerator{}
	syn := &stubSynthesizer{}
	p := NewPipeline(tr, gen, syn, nil, nil, time.Second)

	for _, in := range []string{"", "   ", "%%%"} {
		_, err := p.Respond(context.Background(), in)
		if KindOf(err) != KindInputInvalid {
			t.Fatalf("Respond(%q) kind = %q, want %q", in, KindOf(err), KindInputInvalid)
		}
	}
	if tr.calls+gen.calls+syn.calls != 0 {
		t.Fatalf("upstreams called %d/%d/%d times, want none", tr.calls, gen.calls, syn.calls)
	}
}

func TestPipelineTranscriptionFailureStopsTurn(t *testing.T) {
	tr := &stubTranscriber{err: errors.New("rpc error: code = InvalidArgument desc = bad encoding")}
	gen := &stubGenerator{}
	syn := &stubSynthesizer{}
	p := NewPipeline(tr, gen, syn, nil, nil, time.Second)

	_, err := p.Respond(context.Background(), testAudio)
	if KindOf(err) != KindUpstreamTranscriptionFailed {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindUpstreamTranscriptionFailed)
	}
	if !strings.Contains(err.Error(), "bad encoding") {
		t.Fatalf("error %q lost upstream detail", err)
	}
	if gen.calls != 0 || syn.calls != 0 {
		t.Fatalf("later stages ran after transcription failure")
	}
}

func TestPipelineGenerationErrorKeepsKind(t *testing.T) {
	gen := &stubGenerator{err: generationBlocked("SAFETY")}
	syn := &stubSynthesizer{}
	p := NewPipeline(&stubTranscriber{text: "hi"}, gen, syn, nil, nil, time.Second)

	_, err := p.Respond(context.Background(), testAudio)
	if KindOf(err) != KindUpstreamGenerationBlocked {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindUpstreamGenerationBlocked)
	}
	if syn.calls != 0 {
		t.Fatalf("synthesis ran after blocked generation")
	}
}

func TestPipelineRejectsEmptyOutputs(t *testing.T) {
	p := NewPipeline(
		&stubTranscriber{text: "hi"},
		&stubGenerator{ext: Extraction{Reply: StructuredReply{Emotion: "calm", Reply: " "}}},
		&stubSynthesizer{audio: []byte("x")},
		nil, nil, time.Second,
	)
	if _, err := p.Respond(context.Background(), testAudio); KindOf(err) != KindResponseShapeInvalid {
		t.Fatalf("empty reply kind = %q, want %q", KindOf(err), KindResponseShapeInvalid)
	}

	p = NewPipeline(
		&stubTranscriber{text: "hi"},
		&stubGenerator{ext: Extraction{Reply: StructuredReply{Reply: "ok"}}},
		&stubSynthesizer{},
		nil, nil, time.Second,
	)
	if _, err := p.Respond(context.Background(), testAudio); KindOf(err) != KindResponseShapeInvalid {
		t.Fatalf("empty audio kind = %q, want %q", KindOf(err), KindResponseShapeInvalid)
	}
}

func TestPipelineDefaultsEmptyEmotionToNeutral(t *testing.T) {
	syn := &stubSynthesizer{audio: []byte("x")}
	p := NewPipeline(
		&stubTranscriber{text: "hi"},
		&stubGenerator{ext: Extraction{Reply: StructuredReply{Reply: "hello"}}},
		syn, nil, nil, time.Second,
	)
	turn, err := p.Respond(context.Background(), testAudio)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if turn.Emotion != EmotionNeutral || syn.emotion != EmotionNeutral {
		t.Fatalf("emotion = %q / %q, want neutral", turn.Emotion, syn.emotion)
	}
}

func TestPipelineCoercesUnknownEmotionToNeutral(t *testing.T) {
	syn := &stubSynthesizer{audio: []byte("x")}
	p := NewPipeline(
		&stubTranscriber{text: "hi"},
		&stubGenerator{ext: Extraction{Reply: StructuredReply{Emotion: "Ecstatic", Reply: "hello"}}},
		syn, nil, nil, time.Second,
	)
	turn, err := p.Respond(context.Background(), testAudio)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if turn.Emotion != EmotionNeutral || syn.emotion != EmotionNeutral {
		t.Fatalf("emotion = %q / %q, want neutral", turn.Emotion, syn.emotion)
	}
}

func TestPipelineStageTimeout(t *testing.T) {
	gen := &stubGenerator{}
	p := NewPipeline(&stubTranscriber{block: true}, gen, &stubSynthesizer{}, nil, nil, 20*time.Millisecond)

	_, err := p.Respond(context.Background(), testAudio)
	if KindOf(err) != KindUpstreamTranscriptionFailed {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindUpstreamTranscriptionFailed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error %v does not wrap deadline", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("error %q should mention the timeout", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator ran after timeout")
	}
}
