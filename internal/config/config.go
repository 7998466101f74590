// Package config loads runtime configuration from the environment,
// following the same getEnv/getEnvBool/getEnvInt pattern the rest of this
// codebase's ancestor used.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime tunables: server settings, slot counts and the
// CPU/memory soft ceilings, circuit breaker and retry parameters, the
// cache size and one TTL shared by every cache namespace, job retention,
// the upload size limit, and the external provider endpoints. There is no
// separate memory auto-cleanup ceiling, no per-namespace cache TTL, and no
// retry multiplier setting (backoff always doubles).
type Config struct {
	// Server
	Port         string
	BackendAPIKey string
	CORSOrigins  string

	// Storage
	DataDir  string
	RedisURL string // optional second cache tier

	// Resource governor
	MaxConcurrentJobs    int
	MaxConcurrentTTS     int
	MaxConcurrentVisual  int
	CPUCeilingPercent    float64
	MemCeilingPercent    float64

	// Circuit breaker
	BreakerFailureThreshold uint32
	BreakerCooldown         time.Duration
	BreakerHalfOpenMax      uint32

	// Retry
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// Cache
	CacheLRUSize  int
	CacheTTL      time.Duration

	// Retention
	JobMaxAge time.Duration

	// Upload
	MaxUploadBytes int64

	// LLM
	OpenAIKey string
	LLMModel  string

	// TTS
	TTSBaseURL string
	TTSAPIKey  string

	// Visual providers
	GeminiAPIKey   string
	DiagramBaseURL string
	ChartBaseURL   string
	FormulaBaseURL string
	CodeBaseURL    string

	// Compose
	FFmpegPath  string
	FFprobePath string
}

// Load reads .env (if present) then the process environment, applying
// defaults and validating required fields.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		BackendAPIKey: getEnv("BACKEND_API_KEY", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),

		DataDir:  getEnv("DATA_DIR", "./data"),
		RedisURL: getEnv("REDIS_URL", ""),

		MaxConcurrentJobs:   getEnvInt("MAX_CONCURRENT_JOBS", 3),
		MaxConcurrentTTS:    getEnvInt("MAX_CONCURRENT_TTS", 2),
		MaxConcurrentVisual: getEnvInt("MAX_CONCURRENT_VISUAL", 4),
		CPUCeilingPercent:   getEnvFloat("CPU_CEILING_PERCENT", 85.0),
		MemCeilingPercent:   getEnvFloat("MEM_CEILING_PERCENT", 85.0),

		BreakerFailureThreshold: uint32(getEnvInt("BREAKER_FAILURE_THRESHOLD", 3)),
		BreakerCooldown:         getEnvDuration("BREAKER_COOLDOWN", 30*time.Second),
		BreakerHalfOpenMax:      uint32(getEnvInt("BREAKER_HALF_OPEN_MAX", 1)),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 4),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),

		CacheLRUSize: getEnvInt("CACHE_LRU_SIZE", 500),
		CacheTTL:     getEnvDuration("CACHE_TTL", 24*time.Hour),

		JobMaxAge: getEnvDuration("JOB_MAX_AGE", 72*time.Hour),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 20*1024*1024)),

		OpenAIKey: getEnv("OPENAI_API_KEY", ""),
		LLMModel:  getEnv("LLM_MODEL", "gpt-4o-mini"),

		TTSBaseURL: getEnv("TTS_BASE_URL", ""),
		TTSAPIKey:  getEnv("TTS_API_KEY", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		DiagramBaseURL: getEnv("DIAGRAM_BASE_URL", ""),
		ChartBaseURL:   getEnv("CHART_BASE_URL", ""),
		FormulaBaseURL: getEnv("FORMULA_BASE_URL", ""),
		CodeBaseURL:    getEnv("CODE_BASE_URL", ""),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY is required")
	}
	if c.TTSBaseURL == "" {
		return fmt.Errorf("config: TTS_BASE_URL is required")
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("config: MAX_CONCURRENT_JOBS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
