package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/httpapi"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/reliability"
	"github.com/ent0n29/voiceagent/internal/voice"
)

type VoiceInfo struct {
	Provider             string
	Detail               string
	GenerationConfigured bool
}

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Pipeline *voice.Pipeline
	Metrics  *observability.Metrics
	Breakers []*reliability.Breaker
	Voice    VoiceInfo

	// Cleanup should be called on shutdown to release upstream client connections.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	setup, err := resolveVoiceProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	breakerCfg := reliability.BreakerConfig{
		Enabled:          cfg.BreakerEnabled,
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}
	breakerLogger := logger.Named("breaker")
	sttBreaker := reliability.NewBreaker("speech-to-text", breakerCfg, breakerLogger, metrics.SetBreakerState)
	genBreaker := reliability.NewBreaker("gemini", breakerCfg, breakerLogger, metrics.SetBreakerState)
	ttsBreaker := reliability.NewBreaker("text-to-speech", breakerCfg, breakerLogger, metrics.SetBreakerState)
	breakers := []*reliability.Breaker{sttBreaker, genBreaker, ttsBreaker}
	for _, b := range breakers {
		metrics.SetBreakerState(b.Name(), 0)
	}

	transcriber, generator, synthesizer := voice.WithGuards(
		setup.transcriber, sttBreaker,
		setup.generator, genBreaker,
		setup.synthesizer, ttsBreaker,
	)
	pipeline := voice.NewPipeline(
		transcriber,
		generator,
		synthesizer,
		metrics,
		logger.Named("pipeline"),
		cfg.StageTimeout,
	)

	upstreams := make([]httpapi.Upstream, 0, len(breakers))
	for _, b := range breakers {
		upstreams = append(upstreams, b)
	}
	api := httpapi.New(cfg, pipeline, metrics, logger.Named("http"), httpapi.Readiness{
		Provider:             setup.resolvedProvider,
		GenerationConfigured: setup.generationConfigured,
		Upstreams:            upstreams,
	})

	cleanup := func() error {
		if setup.cleanup == nil {
			return nil
		}
		if err := setup.cleanup(); err != nil {
			return fmt.Errorf("close voice providers: %w", err)
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Pipeline: pipeline,
		Metrics:  metrics,
		Breakers: breakers,
		Voice: VoiceInfo{
			Provider:             setup.resolvedProvider,
			Detail:               setup.detail,
			GenerationConfigured: setup.generationConfigured,
		},
		Cleanup: cleanup,
	}, nil
}
