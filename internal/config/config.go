package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/pipeline"
)

// Config centralizes runtime settings for the import service.
type Config struct {
	Port string

	AuthToken          string
	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	MaxConcurrentJobs      int
	RetryAttempts          int
	RetryDelayMS           int
	RetryBackoffMultiplier float64
	MaxRetryDelayMS        int
	StageTimeoutMS         int

	EnableDuplicateDetection        bool
	EnableQualityAssessment         bool
	EnableInteractiveTransformation bool
	EnableParallelProcessing        bool

	ProgressReportingIntervalMS  int
	CompletedJobRetentionMinutes int

	FetchRequestsPerHost float64
	FetchBurst           int
	FetchMaxBodyBytes    int64
	FetchUserAgent       string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:          getEnv("API_AUTH_TOKEN", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 15),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 30),

		MaxConcurrentJobs:      getEnvInt("PIPELINE_MAX_CONCURRENT_JOBS", 3),
		RetryAttempts:          getEnvInt("PIPELINE_RETRY_ATTEMPTS", 3),
		RetryDelayMS:           getEnvInt("PIPELINE_RETRY_DELAY_MS", 1000),
		RetryBackoffMultiplier: getEnvFloat("PIPELINE_RETRY_BACKOFF_MULTIPLIER", 2),
		MaxRetryDelayMS:        getEnvInt("PIPELINE_MAX_RETRY_DELAY_MS", 30000),
		StageTimeoutMS:         getEnvInt("PIPELINE_STAGE_TIMEOUT_MS", 30000),

		EnableDuplicateDetection:        getEnvBool("PIPELINE_DUPLICATE_DETECTION", true),
		EnableQualityAssessment:         getEnvBool("PIPELINE_QUALITY_ASSESSMENT", true),
		EnableInteractiveTransformation: getEnvBool("PIPELINE_INTERACTIVE_TRANSFORMATION", true),
		EnableParallelProcessing:        getEnvBool("PIPELINE_PARALLEL_PROCESSING", true),

		ProgressReportingIntervalMS:  getEnvInt("PIPELINE_PROGRESS_INTERVAL_MS", 10000),
		CompletedJobRetentionMinutes: getEnvInt("PIPELINE_JOB_RETENTION_MINUTES", 60),

		FetchRequestsPerHost: getEnvFloat("FETCH_REQUESTS_PER_HOST", 4),
		FetchBurst:           getEnvInt("FETCH_BURST", 2),
		FetchMaxBodyBytes:    int64(getEnvInt("FETCH_MAX_BODY_BYTES", 8<<20)),
		FetchUserAgent:       getEnv("FETCH_USER_AGENT", ""),
	}
}

// PipelineConfig translates the environment settings into the manager's
// runtime configuration.
func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		MaxConcurrentJobs:               c.MaxConcurrentJobs,
		RetryAttempts:                   c.RetryAttempts,
		RetryDelay:                      time.Duration(c.RetryDelayMS) * time.Millisecond,
		RetryBackoffMultiplier:          c.RetryBackoffMultiplier,
		MaxRetryDelay:                   time.Duration(c.MaxRetryDelayMS) * time.Millisecond,
		StageTimeout:                    time.Duration(c.StageTimeoutMS) * time.Millisecond,
		EnableDuplicateDetection:        c.EnableDuplicateDetection,
		EnableQualityAssessment:         c.EnableQualityAssessment,
		EnableInteractiveTransformation: c.EnableInteractiveTransformation,
		EnableParallelProcessing:        c.EnableParallelProcessing,
		ProgressReportingInterval:       time.Duration(c.ProgressReportingIntervalMS) * time.Millisecond,
		CompletedJobRetention:           time.Duration(c.CompletedJobRetentionMinutes) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
