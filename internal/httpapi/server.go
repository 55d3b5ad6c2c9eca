package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/protocol"
	"github.com/ent0n29/voiceagent/internal/reliability"
	"github.com/ent0n29/voiceagent/internal/voice"
)

const requestIDHeader = "X-Request-ID"

type Responder interface {
	Respond(ctx context.Context, audioBase64 string) (voice.Turn, error)
}

// Upstream exposes the circuit state of one upstream dependency.
type Upstream interface {
	Name() string
	State() string
}

// Readiness describes what /readyz reports.
type Readiness struct {
	Provider             string
	GenerationConfigured bool
	Upstreams            []Upstream
}

type Server struct {
	cfg       config.Config
	responder Responder
	metrics   *observability.Metrics
	logger    *zap.Logger
	readiness Readiness
}

func New(cfg config.Config, responder Responder, metrics *observability.Metrics, logger *zap.Logger, readiness Readiness) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	return &Server{
		cfg:       cfg,
		responder: responder,
		metrics:   metrics,
		logger:    logger,
		readiness: readiness,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(middleware.Recoverer)

	// The voice endpoint answers every method so non-POST requests get a 405
	// with an Allow header instead of chi's bare default.
	r.HandleFunc("/", s.handleVoiceTurn)
	r.HandleFunc("/v1/voice/turn", s.handleVoiceTurn)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"voice_provider": s.readiness.Provider,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	upstreams := make(map[string]string, len(s.readiness.Upstreams))
	for _, u := range s.readiness.Upstreams {
		upstreams[u.Name()] = u.State()
	}
	status, code := "ready", http.StatusOK
	if !s.readiness.GenerationConfigured {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status":                status,
		"voice_provider":        s.readiness.Provider,
		"generation_configured": s.readiness.GenerationConfigured,
		"upstreams":             upstreams,
	})
}

func (s *Server) handleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.respondFailure(w, r, start, http.StatusMethodNotAllowed, "method not allowed; use POST", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondFailure(w, r, start, http.StatusBadRequest, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
			return
		}
		s.respondFailure(w, r, start, http.StatusBadRequest, "could not read request body", err)
		return
	}
	req, err := protocol.ParseVoiceRequest(body)
	if err != nil {
		s.respondFailure(w, r, start, http.StatusBadRequest, err.Error(), err)
		return
	}

	turn, err := s.responder.Respond(r.Context(), req.AudioBase64)
	if err != nil {
		s.respondFailure(w, r, start, reliability.StatusForKind(voice.KindOf(err)), err.Error(), err)
		return
	}

	respondJSON(w, http.StatusOK, protocol.VoiceResponse{
		Transcript:  turn.Transcript,
		Emotion:     turn.Emotion,
		Reply:       turn.Reply,
		AudioBase64: base64.StdEncoding.EncodeToString(turn.Audio),
	})
	elapsed := time.Since(start)
	s.metrics.ObserveTurn(fmt.Sprint(http.StatusOK), elapsed)
	s.logger.Info("voice turn served",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", http.StatusOK),
		zap.Duration("duration", elapsed),
		zap.Duration("transcribe", turn.Timings[voice.StageTranscribe]),
		zap.Duration("generate", turn.Timings[voice.StageGenerate]),
		zap.Duration("synthesize", turn.Timings[voice.StageSynthesize]),
		zap.String("emotion", turn.Emotion),
		zap.String("strategy", turn.Strategy),
	)
}

func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, start time.Time, status int, message string, err error) {
	respondJSON(w, status, protocol.ErrorResponse{Message: message})
	elapsed := time.Since(start)
	s.metrics.ObserveTurn(fmt.Sprint(status), elapsed)

	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
	}
	if kind := voice.KindOf(err); kind != "" {
		fields = append(fields, zap.String("kind", string(kind)))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("voice turn failed", fields...)
		return
	}
	s.logger.Info("voice turn rejected", fields...)
}

// withRequestID echoes the caller's X-Request-ID or mints a UUID, and stores
// it where middleware.GetReqID finds it.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
