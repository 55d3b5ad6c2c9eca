package voice

import "strings"

// Emotion labels the generator is allowed to choose from.
const (
	EmotionJoy      = "joy"
	EmotionLove     = "love"
	EmotionSadness  = "sadness"
	EmotionAnxiety  = "anxiety"
	EmotionFear     = "fear"
	EmotionAnger    = "anger"
	EmotionSurprise = "surprise"
	EmotionCalm     = "calm"
	EmotionNeutral  = "neutral"
)

// AllowedEmotions is the closed label set advertised in the generation prompt.
var AllowedEmotions = []string{
	EmotionJoy,
	EmotionLove,
	EmotionSadness,
	EmotionAnxiety,
	EmotionFear,
	EmotionAnger,
	EmotionSurprise,
	EmotionCalm,
	EmotionNeutral,
}

// VoiceIdentity selects the synthesis voice (gender and style).
type VoiceIdentity string

const (
	VoiceFemaleA VoiceIdentity = "female-A"
	VoiceMaleA   VoiceIdentity = "male-A"
	VoiceMaleB   VoiceIdentity = "male-B"
)

// VoiceParams controls synthesized speech style.
type VoiceParams struct {
	Rate           float64
	PitchSemitones float64
	Identity       VoiceIdentity
}

var defaultVoiceParams = VoiceParams{Rate: 1.0, PitchSemitones: 0, Identity: VoiceFemaleA}

var emotionVoiceParams = map[string]VoiceParams{
	EmotionSadness:  {Rate: 0.90, PitchSemitones: -2.5, Identity: VoiceFemaleA},
	EmotionJoy:      {Rate: 1.10, PitchSemitones: 1.5, Identity: VoiceMaleA},
	EmotionLove:     {Rate: 1.10, PitchSemitones: 1.5, Identity: VoiceMaleA},
	EmotionAnxiety:  {Rate: 1.05, PitchSemitones: 0.5, Identity: VoiceFemaleA},
	EmotionFear:     {Rate: 1.05, PitchSemitones: 0.5, Identity: VoiceFemaleA},
	EmotionAnger:    {Rate: 1.00, PitchSemitones: -1.0, Identity: VoiceMaleB},
	EmotionSurprise: {Rate: 1.10, PitchSemitones: 1.0, Identity: VoiceFemaleA},
	EmotionCalm:     defaultVoiceParams,
	EmotionNeutral:  defaultVoiceParams,
}

// VoiceParamsForEmotion maps an emotion label to synthesis parameters.
// Lookup is case-insensitive; unknown or empty labels get the neutral row.
func VoiceParamsForEmotion(emotion string) VoiceParams {
	if p, ok := emotionVoiceParams[normalizeEmotion(emotion)]; ok {
		return p
	}
	return defaultVoiceParams
}

func normalizeEmotion(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
