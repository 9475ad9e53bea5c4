package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chambers backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	OpenAIAPIKey       string
	RealtimeBaseURL    string
	RealtimeModel      string
	DefaultVoice       string
	SystemInstructions string

	SessionTimeout     time.Duration
	ConnectTimeout     time.Duration
	RateLimitPerSecond int

	AuthJWTSecret string
	DatabaseURL   string
}

const defaultInstructions = "You are a calm, supportive reflection companion for judges. " +
	"Listen carefully, ask gentle open questions, and never give legal advice or " +
	"reference specific cases. Keep responses brief and conversational."

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "chambers"),
		AllowAnyOrigin:     false,
		RealtimeBaseURL:    envOrDefault("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		RealtimeModel:      envOrDefault("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01"),
		DefaultVoice:       envOrDefault("REFLECT_DEFAULT_VOICE", "alloy"),
		SystemInstructions: envOrDefault("REFLECT_SYSTEM_PROMPT", defaultInstructions),
		OpenAIAPIKey:       stringsTrimSpace("OPENAI_API_KEY"),
		AuthJWTSecret:      stringsTrimSpace("AUTH_JWT_SECRET"),
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:    15 * time.Second,
		// The session timer is absolute: a reflection conversation is force-ended
		// this long after session.start regardless of activity.
		SessionTimeout:     10 * time.Minute,
		ConnectTimeout:     10 * time.Second,
		RateLimitPerSecond: 10,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTimeout, err = durationFromEnv("REFLECT_SESSION_TIMEOUT", cfg.SessionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ConnectTimeout, err = durationFromEnv("REFLECT_CONNECT_TIMEOUT", cfg.ConnectTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitPerSecond, err = intFromEnv("REFLECT_RATE_LIMIT", cfg.RateLimitPerSecond)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTimeout < 10*time.Second {
		return Config{}, fmt.Errorf("REFLECT_SESSION_TIMEOUT must be at least 10s")
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("REFLECT_CONNECT_TIMEOUT must be positive")
	}
	if cfg.RateLimitPerSecond <= 0 {
		return Config{}, fmt.Errorf("REFLECT_RATE_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
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
