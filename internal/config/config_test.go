package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("default port %q", cfg.Port)
	}
	if cfg.MaxConcurrentJobs != 3 || cfg.RetryAttempts != 3 {
		t.Fatalf("unexpected pipeline defaults %+v", cfg)
	}
	if !cfg.EnableDuplicateDetection || !cfg.EnableParallelProcessing {
		t.Fatalf("feature toggles must default on: %+v", cfg)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PIPELINE_MAX_CONCURRENT_JOBS", "7")
	t.Setenv("PIPELINE_RETRY_DELAY_MS", "250")
	t.Setenv("PIPELINE_DUPLICATE_DETECTION", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("RATE_LIMIT_RPS", "banana")

	cfg := Load()
	if cfg.Port != "9090" || cfg.MaxConcurrentJobs != 7 || cfg.RetryDelayMS != 250 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	if cfg.EnableDuplicateDetection {
		t.Fatal("boolean toggle not applied")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("origin list %v", cfg.CORSAllowedOrigins)
	}
	// Unparseable values fall back to defaults.
	if cfg.RateLimitRPS != 15 {
		t.Fatalf("rate limit %v, expected fallback 15", cfg.RateLimitRPS)
	}
}

func TestPipelineConfigConversion(t *testing.T) {
	cfg := Config{
		RetryDelayMS:                 250,
		MaxRetryDelayMS:              4000,
		StageTimeoutMS:               15000,
		ProgressReportingIntervalMS:  5000,
		CompletedJobRetentionMinutes: 30,
	}

	pc := cfg.PipelineConfig()
	if pc.RetryDelay != 250*time.Millisecond || pc.MaxRetryDelay != 4*time.Second {
		t.Fatalf("delay conversion wrong: %+v", pc)
	}
	if pc.StageTimeout != 15*time.Second || pc.ProgressReportingInterval != 5*time.Second {
		t.Fatalf("interval conversion wrong: %+v", pc)
	}
	if pc.CompletedJobRetention != 30*time.Minute {
		t.Fatalf("retention conversion wrong: %+v", pc)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\n" +
		"export NEW_DOTENV_KEY=plain\n" +
		"QUOTED_DOTENV_KEY=\"quoted value\"\n" +
		"COMMENTED_DOTENV_KEY=value # trailing note\n" +
		"EXISTING_DOTENV_KEY=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("EXISTING_DOTENV_KEY", "from-env")
	for _, key := range []string{"NEW_DOTENV_KEY", "QUOTED_DOTENV_KEY", "COMMENTED_DOTENV_KEY"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("NEW_DOTENV_KEY"); got != "plain" {
		t.Fatalf("NEW_DOTENV_KEY=%q", got)
	}
	if got := os.Getenv("QUOTED_DOTENV_KEY"); got != "quoted value" {
		t.Fatalf("QUOTED_DOTENV_KEY=%q", got)
	}
	if got := os.Getenv("COMMENTED_DOTENV_KEY"); got != "value" {
		t.Fatalf("COMMENTED_DOTENV_KEY=%q", got)
	}
	if got := os.Getenv("EXISTING_DOTENV_KEY"); got != "from-env" {
		t.Fatalf("existing environment lost precedence: %q", got)
	}
}
