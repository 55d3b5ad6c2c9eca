package voice

import "context"

// Transcriber recovers text from encoded audio. An empty transcript means
// silence and is not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator produces a structured reply for a transcript.
type Generator interface {
	Generate(ctx context.Context, transcript string) (Extraction, error)
}

// Synthesizer renders reply text as encoded audio styled for emotion.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, emotion string) ([]byte, error)
}

// Guard runs a single upstream attempt, possibly refusing it outright.
type Guard interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
