package voice

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig controls the generation request.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator asks a Gemini model for an {emotion, reply} object and
// normalizes whatever comes back with ExtractReply.
type GeminiGenerator struct {
	models contentGenerator
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiGenerator builds the generator. Without an API key it still returns
// a generator; non-silent turns then fail with KindConfigMissing.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	g := newGeminiGenerator(nil, cfg)
	if strings.TrimSpace(cfg.APIKey) == "" {
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.models = client.Models
	return g, nil
}

func newGeminiGenerator(models contentGenerator, cfg GeminiConfig) *GeminiGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{
		models: models,
		model:  model,
		config: generationConfig(cfg),
	}
}

// Configured reports whether an upstream client is available.
func (g *GeminiGenerator) Configured() bool {
	return g.models != nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, transcript string) (Extraction, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Extraction{
			Reply:    StructuredReply{Emotion: EmotionNeutral, Reply: silenceReply},
			Strategy: StrategySilence,
		}, nil
	}
	if g.models == nil {
		return Extraction{}, ConfigMissing(StageGenerate, "GEMINI_API_KEY is not configured")
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(transcript)), g.config)
	if err != nil {
		return Extraction{}, upstreamFailure(StageGenerate, err)
	}
	text, err := candidateText(resp)
	if err != nil {
		return Extraction{}, err
	}
	return ExtractReply(text), nil
}

// candidateText returns the first candidate's text. Any finish reason other
// than a normal stop discards the partial text.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &Error{Kind: KindUpstreamGenerationFailed, Stage: StageGenerate, Message: "empty generation response"}
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", generationBlocked(string(fb.BlockReason))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", &Error{Kind: KindUpstreamGenerationFailed, Stage: StageGenerate, Message: "generation returned no candidates"}
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
	case genai.FinishReasonSafety,
		genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII,
		genai.FinishReasonImageSafety:
		return "", generationBlocked(string(cand.FinishReason))
	default:
		return "", &Error{
			Kind:    KindUpstreamGenerationFailed,
			Stage:   StageGenerate,
			Message: fmt.Sprintf("generation stopped early (%s)", cand.FinishReason),
		}
	}

	var b strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func generationConfig(cfg GeminiConfig) *genai.GenerateContentConfig {
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	out := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		MaxOutputTokens: maxTokens,
		CandidateCount:  1,
		SafetySettings:  safetySettings(),
	}
	if cfg.TopP > 0 {
		out.TopP = genai.Ptr(cfg.TopP)
	}
	if cfg.TopK > 0 {
		out.TopK = genai.Ptr(cfg.TopK)
	}
	return out
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	out := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return out
}

func buildPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("You are a warm, attentive voice companion. The user just said the following out loud:\n\n")
	b.WriteString("\"\"\"\n")
	b.WriteString(transcript)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("Reply the way a caring friend would in conversation: one to three short sentences, ")
	b.WriteString("plain spoken language, no lists, no markdown, no emoji.\n")
	b.WriteString("Pick the emotion that best fits how your reply should sound, using exactly one of: ")
	b.WriteString(strings.Join(AllowedEmotions, ", "))
	b.WriteString(".\n\n")
	b.WriteString("Respond with ONLY a JSON object and nothing else, in this exact shape:\n")
	b.WriteString(`{"emotion": "<one of the labels above>", "reply": "<what you say back>"}`)
	b.WriteString("\n")
	return b.String()
}
