package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/ent0n29/voiceagent/internal/voice"
)

// Config contains all runtime settings for the voice agent service.
type Config struct {
	BindAddr         string
	Env              string
	LogLevel         zapcore.Level
	MetricsNamespace string
	ShutdownTimeout  time.Duration
	MaxBodyBytes     int64
	StageTimeout     time.Duration

	VoiceProvider string

	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     float32
	GeminiTopP            float32
	GeminiTopK            float32
	GeminiMaxOutputTokens int32

	STTEncoding     string
	STTSampleRateHz int32
	STTLanguageCode string

	TTSLanguageCode  string
	TTSAudioEncoding string
	TTSVoiceFemaleA  string
	TTSVoiceMaleA    string
	TTSVoiceMaleB    string

	BreakerEnabled          bool
	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
}

const (
	ProviderGoogle = "google"
	ProviderMock   = "mock"
)

// Development reports whether APP_ENV selects developer-friendly logging.
func (c Config) Development() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

var defaults = map[string]any{
	"APP_BIND_ADDR":             ":8080",
	"APP_ENV":                   "production",
	"LOG_LEVEL":                 "info",
	"APP_METRICS_NAMESPACE":     "voiceagent",
	"APP_SHUTDOWN_TIMEOUT":      "15s",
	"APP_MAX_BODY_BYTES":        "10485760",
	"APP_STAGE_TIMEOUT":         "20s",
	"VOICE_PROVIDER":            ProviderGoogle,
	"GEMINI_MODEL":              "gemini-2.0-flash",
	"GEMINI_TEMPERATURE":        "0.4",
	"GEMINI_TOP_P":              "0.9",
	"GEMINI_TOP_K":              "32",
	"GEMINI_MAX_OUTPUT_TOKENS":  "256",
	"STT_ENCODING":              "WEBM_OPUS",
	"STT_SAMPLE_RATE_HZ":        "48000",
	"STT_LANGUAGE_CODE":         "en-US",
	"TTS_LANGUAGE_CODE":         "en-US",
	"TTS_AUDIO_ENCODING":        "MP3",
	"TTS_VOICE_FEMALE_A":        "en-US-Neural2-F",
	"TTS_VOICE_MALE_A":          "en-US-Neural2-D",
	"TTS_VOICE_MALE_B":          "en-US-Neural2-J",
	"BREAKER_ENABLED":           "true",
	"BREAKER_FAILURE_THRESHOLD": "5",
	"BREAKER_OPEN_TIMEOUT":      "30s",
}

// Environment aliases checked after the primary key.
var aliases = map[string][]string{
	"APP_BIND_ADDR":  {"PORT"},
	"GEMINI_API_KEY": {"GOOGLE_API_KEY"},
}

// Load reads environment variables (and an optional config.yaml) and applies
// safe defaults.
func Load() (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BindAddr:              bindAddr(v),
		Env:                   setting(v, "APP_ENV"),
		MetricsNamespace:      setting(v, "APP_METRICS_NAMESPACE"),
		VoiceProvider:         strings.ToLower(setting(v, "VOICE_PROVIDER")),
		GoogleCredentialsJSON: setting(v, "GOOGLE_CREDENTIALS_JSON"),
		GoogleCredentialsFile: setting(v, "GOOGLE_APPLICATION_CREDENTIALS"),
		GeminiAPIKey:          setting(v, "GEMINI_API_KEY"),
		GeminiModel:           setting(v, "GEMINI_MODEL"),
		STTEncoding:           strings.ToUpper(setting(v, "STT_ENCODING")),
		STTLanguageCode:       setting(v, "STT_LANGUAGE_CODE"),
		TTSLanguageCode:       setting(v, "TTS_LANGUAGE_CODE"),
		TTSAudioEncoding:      strings.ToUpper(setting(v, "TTS_AUDIO_ENCODING")),
		TTSVoiceFemaleA:       setting(v, "TTS_VOICE_FEMALE_A"),
		TTSVoiceMaleA:         setting(v, "TTS_VOICE_MALE_A"),
		TTSVoiceMaleB:         setting(v, "TTS_VOICE_MALE_B"),
	}

	cfg.LogLevel, err = zapcore.ParseLevel(setting(v, "LOG_LEVEL"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL parse error: %w", err)
	}
	if cfg.ShutdownTimeout, err = durationSetting(v, "APP_SHUTDOWN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.StageTimeout, err = durationSetting(v, "APP_STAGE_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.BreakerOpenTimeout, err = durationSetting(v, "BREAKER_OPEN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.MaxBodyBytes, err = intSetting(v, "APP_MAX_BODY_BYTES", 64); err != nil {
		return Config{}, err
	}
	var n int64
	if n, err = intSetting(v, "GEMINI_MAX_OUTPUT_TOKENS", 32); err != nil {
		return Config{}, err
	}
	cfg.GeminiMaxOutputTokens = int32(n)
	if n, err = intSetting(v, "STT_SAMPLE_RATE_HZ", 32); err != nil {
		return Config{}, err
	}
	cfg.STTSampleRateHz = int32(n)
	if n, err = intSetting(v, "BREAKER_FAILURE_THRESHOLD", 32); err != nil {
		return Config{}, err
	}
	if n <= 0 {
		return Config{}, fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive")
	}
	cfg.BreakerFailureThreshold = uint32(n)
	if cfg.GeminiTemperature, err = floatSetting(v, "GEMINI_TEMPERATURE"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiTopP, err = floatSetting(v, "GEMINI_TOP_P"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiTopK, err = floatSetting(v, "GEMINI_TOP_K"); err != nil {
		return Config{}, err
	}
	if cfg.BreakerEnabled, err = boolSetting(v, "BREAKER_ENABLED"); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.VoiceProvider {
	case ProviderGoogle, ProviderMock:
	default:
		return fmt.Errorf("VOICE_PROVIDER must be %q or %q", ProviderGoogle, ProviderMock)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be at least 1s")
	}
	if c.StageTimeout < time.Second {
		return fmt.Errorf("APP_STAGE_TIMEOUT must be at least 1s")
	}
	if c.BreakerOpenTimeout < time.Second {
		return fmt.Errorf("BREAKER_OPEN_TIMEOUT must be at least 1s")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("APP_MAX_BODY_BYTES must be positive")
	}
	if c.STTSampleRateHz <= 0 {
		return fmt.Errorf("STT_SAMPLE_RATE_HZ must be positive")
	}
	if c.GeminiTemperature < 0 || c.GeminiTemperature > 2 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be within [0, 2]")
	}
	if c.GeminiTopP <= 0 || c.GeminiTopP > 1 {
		return fmt.Errorf("GEMINI_TOP_P must be within (0, 1]")
	}
	if c.GeminiTopK < 0 {
		return fmt.Errorf("GEMINI_TOP_K must be >= 0")
	}
	if c.GeminiMaxOutputTokens <= 0 {
		return fmt.Errorf("GEMINI_MAX_OUTPUT_TOKENS must be positive")
	}
	if _, err := voice.ParseSpeechEncoding(c.STTEncoding); err != nil {
		return fmt.Errorf("STT_ENCODING: %w", err)
	}
	if _, err := voice.ParseTTSEncoding(c.TTSAudioEncoding); err != nil {
		return fmt.Errorf("TTS_AUDIO_ENCODING: %w", err)
	}
	return nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key, key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// bindAddr accepts a bare port (as PaaS platforms set PORT) or a host:port.
func bindAddr(v *viper.Viper) string {
	addr := setting(v, "APP_BIND_ADDR")
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func setting(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(setting(v, key))
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intSetting(v *viper.Viper, key string, bits int) (int64, error) {
	n, err := strconv.ParseInt(setting(v, key), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatSetting(v *viper.Viper, key string) (float32, error) {
	f, err := strconv.ParseFloat(setting(v, key), 32)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return float32(f), nil
}

func boolSetting(v *viper.Viper, key string) (bool, error) {
	switch strings.ToLower(setting(v, key)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
