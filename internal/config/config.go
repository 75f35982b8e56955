// Package config reads the extraction service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the extract Lambda needs at startup.
type Config struct {
	LLMProvider     string
	ExtractModel    string
	VerifyModel     string
	LLMTimeout      time.Duration
	LLMMaxTokens    int
	Language        string
	Bucket          string
	MaxImageBytes   int
	MaxImageDim     int
	DBSecretARN     string
	LLMSecretARN    string
	AuditQueueURL   string
	QuotaWindowDays int
	RetryConfidence float64
}

// Load reads the configuration, falling back to defaults for unset or
// unparsable values.
func Load() Config {
	provider := strings.ToLower(getenv("RADAR_LLM_PROVIDER", "openai"))
	return Config{
		LLMProvider:     provider,
		ExtractModel:    getenv("RADAR_EXTRACT_MODEL", defaultModel(provider)),
		VerifyModel:     getenv("RADAR_VERIFY_MODEL", getenv("RADAR_EXTRACT_MODEL", defaultModel(provider))),
		LLMTimeout:      getenvDuration("RADAR_LLM_TIMEOUT", 90*time.Second),
		LLMMaxTokens:    getenvInt("RADAR_LLM_MAX_TOKENS", 4096),
		Language:        getenv("RADAR_LANGUAGE", "fr"),
		Bucket:          os.Getenv("BUCKET_NAME"),
		MaxImageBytes:   getenvInt("RADAR_MAX_IMAGE_BYTES", 20<<20),
		MaxImageDim:     getenvInt("RADAR_MAX_IMAGE_DIM", 2048),
		DBSecretARN:     os.Getenv("DB_SECRET_ARN"),
		LLMSecretARN:    os.Getenv("LLM_SECRET_ARN"),
		AuditQueueURL:   os.Getenv("AUDIT_QUEUE_URL"),
		QuotaWindowDays: getenvInt("RADAR_QUOTA_WINDOW_DAYS", 30),
		RetryConfidence: getenvFloat("RADAR_VERIFY_RETRY_CONFIDENCE", 0.6),
	}
}

// DBCredentials returns inline database credentials when DB_HOST is set, for
// local runs against a plain Postgres.
func DBCredentials() (map[string]string, bool) {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return nil, false
	}
	return map[string]string{
		"host":     host,
		"port":     getenv("DB_PORT", "5432"),
		"dbname":   getenv("DB_NAME", "postgres"),
		"username": getenv("DB_USER", "postgres"),
		"password": getenv("DB_PASSWORD", "postgres"),
		"schema":   getenv("DB_SCHEMA", "radar"),
	}, true
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-5"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return "gpt-4o"
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getenvDuration accepts Go durations ("90s") or a bare number of seconds.
func getenvDuration(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
