package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/voice"
)

type voiceSetup struct {
	transcriber          voice.Transcriber
	generator            voice.Generator
	synthesizer          voice.Synthesizer
	resolvedProvider     string
	generationConfigured bool
	detail               string
	cleanup              func() error
}

func resolveVoiceProviders(ctx context.Context, cfg config.Config) (voiceSetup, error) {
	switch cfg.VoiceProvider {
	case config.ProviderMock:
		p := voice.NewMockProvider()
		return voiceSetup{
			transcriber:          p,
			generator:            p,
			synthesizer:          p,
			resolvedProvider:     config.ProviderMock,
			generationConfigured: true,
			detail:               "mock",
		}, nil
	case config.ProviderGoogle:
		return googleVoiceProviders(ctx, cfg)
	default:
		return voiceSetup{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected google|mock)", cfg.VoiceProvider)
	}
}

func googleVoiceProviders(ctx context.Context, cfg config.Config) (voiceSetup, error) {
	opts, source, err := clientOptions(cfg)
	if err != nil {
		return voiceSetup{}, err
	}

	stt, err := voice.NewGoogleTranscriber(ctx, voice.GoogleSTTConfig{
		Encoding:     cfg.STTEncoding,
		SampleRateHz: cfg.STTSampleRateHz,
		LanguageCode: cfg.STTLanguageCode,
	}, opts...)
	if err != nil {
		return voiceSetup{}, fmt.Errorf("speech-to-text init failed: %w", err)
	}

	tts, err := voice.NewGoogleSynthesizer(ctx, voice.GoogleTTSConfig{
		LanguageCode:  cfg.TTSLanguageCode,
		AudioEncoding: cfg.TTSAudioEncoding,
		Voices: map[voice.VoiceIdentity]string{
			voice.VoiceFemaleA: cfg.TTSVoiceFemaleA,
			voice.VoiceMaleA:   cfg.TTSVoiceMaleA,
			voice.VoiceMaleB:   cfg.TTSVoiceMaleB,
		},
	}, opts...)
	if err != nil {
		_ = stt.Close()
		return voiceSetup{}, fmt.Errorf("text-to-speech init failed: %w", err)
	}

	gen, err := voice.NewGeminiGenerator(ctx, voice.GeminiConfig{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GeminiModel,
		Temperature:     cfg.GeminiTemperature,
		TopP:            cfg.GeminiTopP,
		TopK:            cfg.GeminiTopK,
		MaxOutputTokens: cfg.GeminiMaxOutputTokens,
	})
	if err != nil {
		_ = stt.Close()
		_ = tts.Close()
		return voiceSetup{}, fmt.Errorf("gemini init failed: %w", err)
	}

	detail := fmt.Sprintf("google speech + %s (credentials: %s)", cfg.GeminiModel, source)
	if !gen.Configured() {
		detail += "; GEMINI_API_KEY missing"
	}
	return voiceSetup{
		transcriber:          stt,
		generator:            gen,
		synthesizer:          tts,
		resolvedProvider:     config.ProviderGoogle,
		generationConfigured: gen.Configured(),
		detail:               detail,
		cleanup: func() error {
			return errors.Join(stt.Close(), tts.Close())
		},
	}, nil
}
