package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// pipelineStages lists the stages a voice turn passes through, in order, with
// the p95 each one is expected to stay under.
var pipelineStages = []struct {
	name        string
	targetP95MS float64
}{
	{"transcribe", 1500},
	{"generate", 2500},
	{"synthesize", 1200},
	{"turn_total", 5000},
}

type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// stageWindow holds the most recent durations per stage, oldest first.
type stageWindow struct {
	mu         sync.Mutex
	size       int
	samples    map[string][]float64
	indicators map[string]int
}

func newStageWindow(size int) *stageWindow {
	if size <= 0 {
		size = 256
	}
	return &stageWindow{
		size:       size,
		samples:    make(map[string][]float64),
		indicators: make(map[string]int),
	}
}

func (w *stageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	s := append(w.samples[stage], ms)
	if len(s) > w.size {
		s = s[len(s)-w.size:]
	}
	w.samples[stage] = s
}

func (w *stageWindow) ObserveIndicator(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

// Snapshot reports pipeline stages in turn order, then any other observed
// stage alphabetically. Stages without samples are omitted.
func (w *stageWindow) Snapshot() StageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := StageSnapshot{GeneratedAt: time.Now().UTC(), WindowSize: w.size, Stages: []StageStats{}}
	known := make(map[string]bool, len(pipelineStages))
	for _, ps := range pipelineStages {
		known[ps.name] = true
		if s, ok := summarizeStage(ps.name, w.samples[ps.name]); ok {
			s.TargetP95MS = ps.targetP95MS
			snap.Stages = append(snap.Stages, s)
		}
	}

	var extra []string
	for name := range w.samples {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		if s, ok := summarizeStage(name, w.samples[name]); ok {
			snap.Stages = append(snap.Stages, s)
		}
	}

	for name, count := range w.indicators {
		snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: count})
	}
	sort.Slice(snap.Indicators, func(i, j int) bool {
		return snap.Indicators[i].Name < snap.Indicators[j].Name
	})
	return snap
}

func summarizeStage(name string, window []float64) (StageStats, bool) {
	if len(window) == 0 {
		return StageStats{}, false
	}
	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return StageStats{
		Stage:   name,
		Samples: len(sorted),
		LastMS:  round2(window[len(window)-1]),
		AvgMS:   round2(sum / float64(len(sorted))),
		P50MS:   round2(nearestRank(sorted, 0.50)),
		P95MS:   round2(nearestRank(sorted, 0.95)),
	}, true
}

// nearestRank returns the smallest sample with at least q of the window at or below it.
func nearestRank(sorted []float64, q float64) float64 {
	rank := int(math.Ceil(q * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
