package voice

import (
	"fmt"
	"math"
	"strings"
)

// strings.Replacer makes a single pass, so emitted entities are never re-escaped.
var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeSSML escapes the five reserved markup characters in text.
func EscapeSSML(text string) string {
	return ssmlEscaper.Replace(text)
}

// BuildSSML wraps text in a speak/prosody directive carrying p's rate and pitch.
func BuildSSML(text string, p VoiceParams) string {
	return fmt.Sprintf(
		`<speak><prosody rate="%s" pitch="%s">%s</prosody></speak>`,
		formatRate(p.Rate),
		formatPitch(p.PitchSemitones),
		EscapeSSML(text),
	)
}

func formatRate(rate float64) string {
	if rate <= 0 {
		rate = 1
	}
	return fmt.Sprintf("%d%%", int(math.Round(rate*100)))
}

func formatPitch(semitones float64) string {
	if semitones == 0 {
		return "+0.0st"
	}
	return fmt.Sprintf("%+.1fst", semitones)
}
