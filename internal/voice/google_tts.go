package voice

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// GoogleTTSConfig selects output encoding, language and the concrete voice
// behind each VoiceIdentity.
type GoogleTTSConfig struct {
	LanguageCode  string
	AudioEncoding string
	Voices        map[VoiceIdentity]string
}

var defaultGoogleVoices = map[VoiceIdentity]string{
	VoiceFemaleA: "en-US-Neural2-F",
	VoiceMaleA:   "en-US-Neural2-D",
	VoiceMaleB:   "en-US-Neural2-J",
}

type speechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleSynthesizer renders SSML with Cloud Text-to-Speech.
type GoogleSynthesizer struct {
	client   speechSynthesizer
	language string
	encoding texttospeechpb.AudioEncoding
	voices   map[VoiceIdentity]string
}

func NewGoogleSynthesizer(ctx context.Context, cfg GoogleTTSConfig, opts ...option.ClientOption) (*GoogleSynthesizer, error) {
	s, err := newGoogleSynthesizer(nil, cfg)
	if err != nil {
		return nil, err
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	s.client = client
	return s, nil
}

func newGoogleSynthesizer(client speechSynthesizer, cfg GoogleTTSConfig) (*GoogleSynthesizer, error) {
	enc, err := ParseTTSEncoding(cfg.AudioEncoding)
	if err != nil {
		return nil, err
	}
	lang := strings.TrimSpace(cfg.LanguageCode)
	if lang == "" {
		lang = "en-US"
	}
	voices := make(map[VoiceIdentity]string, len(defaultGoogleVoices))
	for id, name := range defaultGoogleVoices {
		voices[id] = name
	}
	for id, name := range cfg.Voices {
		if strings.TrimSpace(name) != "" {
			voices[id] = strings.TrimSpace(name)
		}
	}
	return &GoogleSynthesizer{client: client, language: lang, encoding: enc, voices: voices}, nil
}

func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text, emotion string) ([]byte, error) {
	params := VoiceParamsForEmotion(emotion)
	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: BuildSSML(text, params)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: s.language,
			Name:         s.voices[params.Identity],
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: s.encoding,
		},
	})
	if err != nil {
		return nil, upstreamFailure(StageSynthesize, err)
	}
	return resp.GetAudioContent(), nil
}

func (s *GoogleSynthesizer) Close() error {
	return s.client.Close()
}

// ParseTTSEncoding resolves an output encoding name such as "MP3" or "OGG_OPUS".
func ParseTTSEncoding(name string) (texttospeechpb.AudioEncoding, error) {
	v, ok := texttospeechpb.AudioEncoding_value[strings.ToUpper(strings.TrimSpace(name))]
	if !ok || v == int32(texttospeechpb.AudioEncoding_AUDIO_ENCODING_UNSPECIFIED) {
		return 0, fmt.Errorf("unsupported text-to-speech encoding %q", name)
	}
	return texttospeechpb.AudioEncoding(v), nil
}
