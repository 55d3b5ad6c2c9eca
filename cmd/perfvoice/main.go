package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ent0n29/voiceagent/internal/audio"
	"github.com/ent0n29/voiceagent/internal/protocol"
)

type options struct {
	baseURL        string
	turns          int
	audioFiles     []string
	toneHz         float64
	toneDuration   time.Duration
	sampleRate     int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	verbose        bool
}

type clip struct {
	Name   string
	Base64 string
}

type turnResult struct {
	Status  int
	Latency time.Duration
	Emotion string
	Message string
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfvoice: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perfvoice: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var filesRaw string
	var toneMS, interTurnMS, turnTimeoutMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "voice agent base URL")
	flag.IntVar(&cfg.turns, "turns", 10, "number of turns to replay")
	flag.StringVar(&filesRaw, "audio", "", "audio files to replay, separated by ',' (default: synthetic WAV tone)")
	flag.Float64Var(&cfg.toneHz, "tone-hz", 220, "frequency of the synthetic tone")
	flag.IntVar(&toneMS, "tone-ms", 1200, "duration of the synthetic tone in milliseconds")
	flag.IntVar(&cfg.sampleRate, "sample-rate", 16000, "sample rate of the synthetic tone")
	flag.IntVar(&interTurnMS, "inter-turn-ms", 200, "delay between turns in milliseconds")
	flag.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "per-turn HTTP timeout in milliseconds")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if toneMS < 100 || toneMS > 60000 {
		return options{}, fmt.Errorf("tone-ms must be in [100,60000]")
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.toneDuration = time.Duration(toneMS) * time.Millisecond
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond
	for _, part := range strings.Split(filesRaw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			cfg.audioFiles = append(cfg.audioFiles, p)
		}
	}
	return cfg, nil
}

func run(cfg options) error {
	clips, err := loadClips(cfg)
	if err != nil {
		return fmt.Errorf("prepare audio: %w", err)
	}

	client := &http.Client{Timeout: cfg.turnTimeout}
	results := make([]turnResult, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		c := clips[i%len(clips)]
		res := postTurn(context.Background(), client, cfg.baseURL, c)
		results = append(results, res)
		if cfg.verbose {
			fmt.Printf("perfvoice: turn %d/%d clip=%s status=%d latency=%s emotion=%s %s\n",
				i+1, cfg.turns, c.Name, res.Status, res.Latency.Round(time.Millisecond), res.Emotion, res.Message)
		}
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	fmt.Println(summarize(results))

	if snap, err := fetchServerLatency(client, cfg.baseURL); err == nil {
		fmt.Printf("perfvoice: server window\n%s\n", snap)
	} else if cfg.verbose {
		fmt.Printf("perfvoice: server latency unavailable: %v\n", err)
	}
	return nil
}

func loadClips(cfg options) ([]clip, error) {
	if len(cfg.audioFiles) == 0 {
		pcm := audio.TonePCM16LE(cfg.toneHz, cfg.toneDuration, cfg.sampleRate, 0.3)
		wav, err := audio.EncodeWAVPCM16LE(pcm, cfg.sampleRate)
		if err != nil {
			return nil, err
		}
		return []clip{{
			Name:   fmt.Sprintf("tone-%.0fHz", cfg.toneHz),
			Base64: base64.StdEncoding.EncodeToString(wav),
		}}, nil
	}
	out := make([]clip, 0, len(cfg.audioFiles))
	for _, path := range cfg.audioFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, clip{Name: path, Base64: base64.StdEncoding.EncodeToString(data)})
	}
	return out, nil
}

func postTurn(ctx context.Context, client *http.Client, baseURL string, c clip) turnResult {
	body, _ := json.Marshal(protocol.VoiceRequest{AudioBase64: c.Base64})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/voice/turn", bytes.NewReader(body))
	if err != nil {
		return turnResult{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		return turnResult{Latency: time.Since(start), Message: err.Error()}
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	out := turnResult{Status: res.StatusCode, Latency: time.Since(start)}

	if res.StatusCode == http.StatusOK {
		var vr protocol.VoiceResponse
		if err := json.Unmarshal(raw, &vr); err != nil {
			out.Message = "invalid response body"
			return out
		}
		out.Emotion = vr.Emotion
		return out
	}
	var er protocol.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		out.Message = er.Message
	}
	return out
}

func summarize(results []turnResult) string {
	statuses := map[int]int{}
	latencies := make([]float64, 0, len(results))
	for _, r := range results {
		statuses[r.Status]++
		if r.Status == http.StatusOK {
			latencies = append(latencies, float64(r.Latency.Microseconds())/1000)
		}
	}
	codes := make([]int, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	var b strings.Builder
	fmt.Fprintf(&b, "perfvoice: turns=%d ok=%d", len(results), len(latencies))
	for _, code := range codes {
		fmt.Fprintf(&b, " status_%d=%d", code, statuses[code])
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		fmt.Fprintf(&b, " p50_ms=%.1f p95_ms=%.1f max_ms=%.1f",
			percentile(latencies, 0.50), percentile(latencies, 0.95), latencies[len(latencies)-1])
	}
	return b.String()
}

// percentile expects sorted input and interpolates between neighbours.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func fetchServerLatency(client *http.Client, baseURL string) (string, error) {
	res, err := client.Get(baseURL + "/v1/perf/latency")
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", res.StatusCode)
	}
	var v any
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		return "", err
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}
