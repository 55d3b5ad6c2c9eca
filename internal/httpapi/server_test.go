package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/voice"
)

var metricsSeq atomic.Int64

type stubTranscriber struct {
	calls int
	text  string
	err   error
}

func (s *stubTranscriber) Transcribe(context.Context, []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(context.Context, string, string) ([]byte, error) {
	return []byte("fake-mp3"), nil
}

type stubGenerator struct {
	err error
}

func (g stubGenerator) Generate(context.Context, string) (voice.Extraction, error) {
	if g.err != nil {
		return voice.Extraction{}, g.err
	}
	return voice.ExtractReply(`{"emotion":"joy","reply":"That is great news!"}`), nil
}

func newTestServer(t *testing.T, tr voice.Transcriber, gen voice.Generator) *httptest.Server {
	t.Helper()
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d_%d", time.Now().UnixNano(), metricsSeq.Add(1)))
	pipeline := voice.NewPipeline(tr, gen, stubSynthesizer{}, metrics, nil, time.Second)
	srv := New(config.Config{MaxBodyBytes: 1024}, pipeline, metrics, nil, Readiness{Provider: "mock", GenerationConfigured: true})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postTurn(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer res.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res, payload
}

func audioBody(raw string) string {
	return `{"audioBase64":"` + base64.StdEncoding.EncodeToString([]byte(raw)) + `"}`
}

func TestVoiceTurnSuccess(t *testing.T) {
	ts := newTestServer(t, &stubTranscriber{text: "I passed my exam"}, stubGenerator{})

	for _, path := range []string{"/", "/v1/voice/turn"} {
		res, payload := postTurn(t, ts.URL+path, audioBody("webm"))
		if res.StatusCode != http.StatusOK {
			t.Fatalf("POST %s status = %d, want %d (%v)", path, res.StatusCode, http.StatusOK, payload)
		}
		if payload["transcript"] != "I passed my exam" {
			t.Fatalf("transcript = %v", payload["transcript"])
		}
		if payload["emotion"] != "joy" || payload["reply"] != "That is great news!" {
			t.Fatalf("unexpected reply: %v", payload)
		}
		if payload["audioBase64"] != base64.StdEncoding.EncodeToString([]byte("fake-mp3")) {
			t.Fatalf("audioBase64 = %v", payload["audioBase64"])
		}
		if res.Header.Get(requestIDHeader) == "" {
			t.Fatalf("missing %s header", requestIDHeader)
		}
	}
}

func TestVoiceTurnRejectsOtherMethods(t *testing.T) {
	ts := newTestServer(t, &stubTranscriber{}, stubGenerator{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req, _ := http.NewRequest(method, ts.URL+"/", nil)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s / error = %v", method, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s / status = %d, want %d", method, res.StatusCode, http.StatusMethodNotAllowed)
		}
		if got := res.Header.Get("Allow"); got != http.MethodPost {
			t.Fatalf("%s / Allow = %q, want %q", method, got, http.MethodPost)
		}
	}
}

func TestVoiceTurnBadRequests(t *testing.T) {
	tr := &stubTranscriber{text: "hi"}
	ts := newTestServer(t, tr, stubGenerator{})

	cases := map[string]string{
		"empty":        ``,
		"not json":     `audio please`,
		"missing":      `{}`,
		"not string":   `{"audioBase64": 42}`,
		"blank":        `{"audioBase64": "   "}`,
		"not base64":   `{"audioBase64": "%%%"}`,
		"body too big": `{"audioBase64":"` + strings.Repeat("A", 2048) + `"}`,
	}
	for name, body := range cases {
		res, payload := postTurn(t, ts.URL+"/", body)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", name, res.StatusCode, http.StatusBadRequest)
		}
		if msg, _ := payload["message"].(string); msg == "" {
			t.Fatalf("%s: missing message in %v", name, payload)
		}
	}
	if tr.calls != 0 {
		t.Fatalf("transcriber called %d times for bad input", tr.calls)
	}
}

func TestVoiceTurnUpstreamFailureIs502(t *testing.T) {
	ts := newTestServer(t, &stubTranscriber{err: context.DeadlineExceeded}, stubGenerator{})

	res, payload := postTurn(t, ts.URL+"/", audioBody("webm"))
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}
	msg, _ := payload["message"].(string)
	if !strings.Contains(msg, "transcri") {
		t.Fatalf("message %q lacks transcription context", msg)
	}
}

func TestVoiceTurnConfigMissingIs500(t *testing.T) {
	gen := stubGenerator{err: voice.ConfigMissing(voice.StageGenerate, "GEMINI_API_KEY is not configured")}
	ts := newTestServer(t, &stubTranscriber{text: "hello"}, gen)

	res, payload := postTurn(t, ts.URL+"/", audioBody("webm"))
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
	if msg, _ := payload["message"].(string); !strings.Contains(msg, "GEMINI_API_KEY") {
		t.Fatalf("message = %q", msg)
	}
}

func TestVoiceTurnEchoesRequestID(t *testing.T) {
	ts := newTestServer(t, &stubTranscriber{text: "hi"}, stubGenerator{})

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/", strings.NewReader(audioBody("x")))
	req.Header.Set(requestIDHeader, "req-123")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	res.Body.Close()
	if got := res.Header.Get(requestIDHeader); got != "req-123" {
		t.Fatalf("%s = %q, want %q", requestIDHeader, got, "req-123")
	}
}

func TestReadyReportsGenerationConfig(t *testing.T) {
	srv := New(config.Config{}, nil, nil, nil, Readiness{Provider: "google"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["generation_configured"] != false || payload["voice_provider"] != "google" {
		t.Fatalf("unexpected readiness payload: %v", payload)
	}
}

func TestPerfLatencyReportsStages(t *testing.T) {
	ts := newTestServer(t, &stubTranscriber{text: "hi"}, stubGenerator{})
	postTurn(t, ts.URL+"/", audioBody("x"))

	res, err := http.Get(ts.URL + "/v1/perf/latency")
	if err != nil {
		t.Fatalf("GET /v1/perf/latency error = %v", err)
	}
	defer res.Body.Close()
	var snap observability.StageSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(snap.Stages) == 0 {
		t.Fatalf("expected stage samples after a turn")
	}
}
