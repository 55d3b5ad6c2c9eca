package voice

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// GoogleSTTConfig is the fixed decoding configuration sent with every recognition request.
type GoogleSTTConfig struct {
	Encoding     string
	SampleRateHz int32
	LanguageCode string
}

type speechRecognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleTranscriber transcribes a whole utterance with one synchronous
// Cloud Speech-to-Text request.
type GoogleTranscriber struct {
	client speechRecognizer
	config *speechpb.RecognitionConfig
}

func NewGoogleTranscriber(ctx context.Context, cfg GoogleSTTConfig, opts ...option.ClientOption) (*GoogleTranscriber, error) {
	rc, err := recognitionConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleTranscriber{client: client, config: rc}, nil
}

func (t *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: t.config,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", upstreamFailure(StageTranscribe, err)
	}
	return joinTranscripts(resp.GetResults()), nil
}

func (t *GoogleTranscriber) Close() error {
	return t.client.Close()
}

// joinTranscripts keeps the best alternative of each result, one per line.
func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		lines = append(lines, alts[0].GetTranscript())
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseSpeechEncoding resolves a RecognitionConfig encoding name such as "WEBM_OPUS".
func ParseSpeechEncoding(name string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	v, ok := speechpb.RecognitionConfig_AudioEncoding_value[strings.ToUpper(strings.TrimSpace(name))]
	if !ok || v == int32(speechpb.RecognitionConfig_ENCODING_UNSPECIFIED) {
		return 0, fmt.Errorf("unsupported speech encoding %q", name)
	}
	return speechpb.RecognitionConfig_AudioEncoding(v), nil
}

func recognitionConfig(cfg GoogleSTTConfig) (*speechpb.RecognitionConfig, error) {
	enc, err := ParseSpeechEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	lang := strings.TrimSpace(cfg.LanguageCode)
	if lang == "" {
		lang = "en-US"
	}
	rc := &speechpb.RecognitionConfig{
		Encoding:                   enc,
		LanguageCode:               lang,
		EnableAutomaticPunctuation: true,
	}
	if cfg.SampleRateHz > 0 {
		rc.SampleRateHertz = cfg.SampleRateHz
	}
	return rc, nil
}
