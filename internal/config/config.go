package config

import (
	"os"
	"strconv"
	"strings"
)

// ThresholdPrefix starts every per-level pass threshold key.
const ThresholdPrefix = "PASS_THRESHOLD_"

// ApplyEnv overrides file settings with environment variables.
func ApplyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("AILEVELS_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("AILEVELS_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("AILEVELS_LOG_LEVEL", cfg.Daemon.LogLevel)
	cfg.Daemon.Locale = getEnv("AILEVELS_LOCALE", cfg.Daemon.Locale)
	cfg.Daemon.ModelRequestsPerMinute = getEnvInt("AILEVELS_MODEL_RPM", cfg.Daemon.ModelRequestsPerMinute)

	cfg.LLM.DefaultProvider = getEnv("AILEVELS_LLM_PROVIDER", cfg.LLM.DefaultProvider)
	cfg.LLM.Temperature = getEnvFloat("AILEVELS_LLM_TEMPERATURE", cfg.LLM.Temperature)

	cfg.Storage.Driver = getEnv("AILEVELS_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DatabaseURL = getEnv("AILEVELS_DATABASE_URL", cfg.Storage.DatabaseURL)
	cfg.Storage.RedisAddr = getEnv("AILEVELS_REDIS_ADDR", cfg.Storage.RedisAddr)

	cfg.Events.Enabled = getEnvBool("AILEVELS_EVENTS_ENABLED", cfg.Events.Enabled)
	cfg.Events.AMQPURL = getEnv("AILEVELS_AMQP_URL", cfg.Events.AMQPURL)

	for name, key := range map[string]string{
		"claude": "ANTHROPIC_API_KEY",
		"openai": "OPENAI_API_KEY",
		"gemini": "GEMINI_API_KEY",
	} {
		p, ok := cfg.LLM.Providers[name]
		if !ok {
			continue
		}
		if v := os.Getenv(key); v != "" {
			p.APIKey = v
			p.Enabled = true
		}
	}
}

// ThresholdValues snapshots the raw threshold settings: the file's
// thresholds section overlaid with PASS_THRESHOLD_* environment variables.
// The result is taken once at startup so request handling never reads the
// process environment.
func ThresholdValues(cfg *LocalConfig, environ []string) map[string]string {
	out := make(map[string]string, len(cfg.Thresholds))
	for k, v := range cfg.Thresholds {
		out[k] = v
	}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, ThresholdPrefix) {
			out[key] = value
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
