package voice

import (
	"encoding/json"
	"regexp"
	"strings"
)

// StructuredReply is the well-formed {emotion, reply} pair handed to synthesis.
type StructuredReply struct {
	Emotion string `json:"emotion"`
	Reply   string `json:"reply"`
}

const (
	StrategyStrict   = "strict"
	StrategyFenced   = "fenced"
	StrategyFallback = "fallback"
	StrategySilence  = "silence"
)

const (
	fallbackApology = "Sorry, I couldn't put a reply together just now. Could you try again?"
	silenceReply    = "I didn't quite catch that. Could you say it again?"
)

var fencedBlockPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// Extraction is the outcome of ExtractReply along with the strategy that produced it.
type Extraction struct {
	Reply    StructuredReply
	Strategy string
}

type extractionStrategy struct {
	name  string
	match func(text string) (StructuredReply, bool)
}

// Order matters: the first strategy that matches wins.
var extractionStrategies = []extractionStrategy{
	{name: StrategyStrict, match: parseStructuredReply},
	{name: StrategyFenced, match: parseFencedReply},
}

// ExtractReply turns raw generated text into a StructuredReply. It never fails:
// when no strategy matches, the trimmed text itself becomes a neutral reply.
func ExtractReply(raw string) Extraction {
	text := strings.TrimSpace(raw)
	for _, s := range extractionStrategies {
		if reply, ok := s.match(text); ok {
			return Extraction{Reply: reply, Strategy: s.name}
		}
	}
	if text == "" {
		text = fallbackApology
	}
	return Extraction{
		Reply:    StructuredReply{Emotion: EmotionNeutral, Reply: text},
		Strategy: StrategyFallback,
	}
}

func parseStructuredReply(text string) (StructuredReply, bool) {
	if text == "" {
		return StructuredReply{}, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return StructuredReply{}, false
	}
	emotion, ok := obj["emotion"].(string)
	if !ok {
		return StructuredReply{}, false
	}
	reply, ok := obj["reply"].(string)
	if !ok {
		return StructuredReply{}, false
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return StructuredReply{}, false
	}
	return StructuredReply{Emotion: allowedEmotionOrNeutral(emotion), Reply: reply}, true
}

// allowedEmotionOrNeutral keeps the label inside the closed set; anything the
// model invents outside it is spoken and reported as neutral.
func allowedEmotionOrNeutral(raw string) string {
	emotion := normalizeEmotion(raw)
	for _, allowed := range AllowedEmotions {
		if emotion == allowed {
			return emotion
		}
	}
	return EmotionNeutral
}

func parseFencedReply(text string) (StructuredReply, bool) {
	m := fencedBlockPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return StructuredReply{}, false
	}
	return parseStructuredReply(strings.TrimSpace(m[1]))
}
