package voice

import "testing"

func TestVoiceParamsForEmotionTable(t *testing.T) {
	cases := []struct {
		label string
		want  VoiceParams
	}{
		{"sadness", VoiceParams{Rate: 0.90, PitchSemitones: -2.5, Identity: VoiceFemaleA}},
		{"joy", VoiceParams{Rate: 1.10, PitchSemitones: 1.5, Identity: VoiceMaleA}},
		{"love", VoiceParams{Rate: 1.10, PitchSemitones: 1.5, Identity: VoiceMaleA}},
		{"anxiety", VoiceParams{Rate: 1.05, PitchSemitones: 0.5, Identity: VoiceFemaleA}},
		{"fear", VoiceParams{Rate: 1.05, PitchSemitones: 0.5, Identity: VoiceFemaleA}},
		{"anger", VoiceParams{Rate: 1.00, PitchSemitones: -1.0, Identity: VoiceMaleB}},
		{"surprise", VoiceParams{Rate: 1.10, PitchSemitones: 1.0, Identity: VoiceFemaleA}},
		{"calm", VoiceParams{Rate: 1.00, PitchSemitones: 0, Identity: VoiceFemaleA}},
		{"neutral", VoiceParams{Rate: 1.00, PitchSemitones: 0, Identity: VoiceFemaleA}},
	}
	for _, tc := range cases {
		if got := VoiceParamsForEmotion(tc.label); got != tc.want {
			t.Fatalf("VoiceParamsForEmotion(%q) = %+v, want %+v", tc.label, got, tc.want)
		}
	}
}

func TestVoiceParamsForEmotionIsCaseInsensitive(t *testing.T) {
	for _, label := range []string{"JOY", "Joy", "  joy  ", "jOy"} {
		if got := VoiceParamsForEmotion(label); got.Identity != VoiceMaleA || got.Rate != 1.10 {
			t.Fatalf("VoiceParamsForEmotion(%q) = %+v, want joy row", label, got)
		}
	}
}

func TestVoiceParamsForEmotionDefaultsUnknown(t *testing.T) {
	want := VoiceParams{Rate: 1.0, PitchSemitones: 0, Identity: VoiceFemaleA}
	for _, label := range []string{"", "   ", "melancholy", "happy", "joy!", "sadness anger"} {
		if got := VoiceParamsForEmotion(label); got != want {
			t.Fatalf("VoiceParamsForEmotion(%q) = %+v, want default %+v", label, got, want)
		}
	}
}

func TestEveryAllowedEmotionHasVoiceParams(t *testing.T) {
	for _, label := range AllowedEmotions {
		if _, ok := emotionVoiceParams[label]; !ok {
			t.Fatalf("emotion %q missing from voice params table", label)
		}
	}
}
