package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the tutor backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	AllowedOrigins []string

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	CurriculumPath string
	UploadDir      string
	MaxUploadBytes int64

	UpstreamTimeout time.Duration

	AIProvider string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIChatModel   string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	STTModel    string
	STTLanguage string

	TTSModel  string
	TTSVoice  string
	TTSSpeed  float64
	TTSFormat string

	RealtimeModel string
	RealtimeVoice string

	DatabaseURL string
}

// Load reads an optional .env file, then environment variables, and applies safe defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":3000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "vocabtutor"),
		AllowedOrigins:   listFromEnv("APP_ALLOWED_ORIGINS"),
		CurriculumPath:   stringsTrimSpace("CURRICULUM_PATH"),
		UploadDir:        envOrDefault("UPLOAD_DIR", "uploads"),
		AIProvider:       envOrDefault("AI_PROVIDER", "auto"),
		OpenAIAPIKey:     stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIChatModel:  envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		STTModel:         envOrDefault("STT_MODEL", "whisper-1"),
		// The exercise targets a single language; recognition is pinned to it.
		STTLanguage:   envOrDefault("STT_LANGUAGE", "es"),
		TTSModel:      envOrDefault("TTS_MODEL", "tts-1"),
		TTSVoice:      envOrDefault("TTS_VOICE", "nova"),
		TTSFormat:     envOrDefault("TTS_FORMAT", "mp3"),
		RealtimeModel: envOrDefault("REALTIME_MODEL", "gpt-realtime"),
		RealtimeVoice: envOrDefault("REALTIME_VOICE", "marin"),
		DatabaseURL:   stringsTrimSpace("DATABASE_URL"),

		ShutdownTimeout:      15 * time.Second,
		SessionTTL:           time.Hour,
		SessionSweepInterval: time.Hour,
		MaxUploadBytes:       10 << 20,
		UpstreamTimeout:      60 * time.Second,
		OpenAIMaxTokens:      150,
		OpenAITemperature:    0.7,
		// Slightly slower than natural speech for learners.
		TTSSpeed: 0.9,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionSweepInterval, err = durationFromEnv("SESSION_SWEEP_INTERVAL", cfg.SessionSweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.UpstreamTimeout, err = durationFromEnv("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAIMaxTokens, err = intFromEnv("OPENAI_MAX_TOKENS", cfg.OpenAIMaxTokens)
	if err != nil {
		return Config{}, err
	}
	maxUpload, err := intFromEnv("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSSpeed, err = floatFromEnv("TTS_SPEED", cfg.TTSSpeed)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.OpenAIMaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive")
	}
	if c.TTSSpeed < 0.25 || c.TTSSpeed > 4 {
		return fmt.Errorf("TTS_SPEED must be within [0.25, 4]")
	}
	switch strings.ToLower(strings.TrimSpace(c.AIProvider)) {
	case "auto", "openai", "mock":
	default:
		return fmt.Errorf("invalid AI_PROVIDER: %q (expected auto|openai|mock)", c.AIProvider)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func listFromEnv(key string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
