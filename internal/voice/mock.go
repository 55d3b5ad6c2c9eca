package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockProvider stands in for all three upstreams when no cloud credentials
// are configured. Its "audio" is the SSML it would have sent, as bytes.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", nil
	}
	return "simulated voice input", nil
}

func (p *MockProvider) Generate(ctx context.Context, transcript string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Extraction{
			Reply:    StructuredReply{Emotion: EmotionNeutral, Reply: silenceReply},
			Strategy: StrategySilence,
		}, nil
	}
	raw, err := json.Marshal(StructuredReply{
		Emotion: EmotionCalm,
		Reply:   fmt.Sprintf("I heard you: %s", transcript),
	})
	if err != nil {
		return Extraction{}, err
	}
	return ExtractReply(string(raw)), nil
}

func (p *MockProvider) Synthesize(ctx context.Context, text, emotion string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(BuildSSML(text, VoiceParamsForEmotion(emotion))), nil
}
