package pipeline

import "time"

// Config is the manager's runtime configuration. It can be replaced while
// jobs are executing; in-flight jobs keep the snapshot captured at dispatch,
// so an update never retroactively changes an already-scheduled attempt's
// retry or timeout budget.
type Config struct {
	MaxConcurrentJobs      int
	RetryAttempts          int
	RetryDelay             time.Duration
	RetryBackoffMultiplier float64
	MaxRetryDelay          time.Duration
	StageTimeout           time.Duration

	EnableDuplicateDetection        bool
	EnableQualityAssessment         bool
	EnableInteractiveTransformation bool
	EnableParallelProcessing        bool

	ProgressReportingInterval time.Duration
	CompletedJobRetention     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs:               3,
		RetryAttempts:                   3,
		RetryDelay:                      time.Second,
		RetryBackoffMultiplier:          2,
		MaxRetryDelay:                   30 * time.Second,
		StageTimeout:                    30 * time.Second,
		EnableDuplicateDetection:        true,
		EnableQualityAssessment:         true,
		EnableInteractiveTransformation: true,
		EnableParallelProcessing:        true,
		ProgressReportingInterval:       10 * time.Second,
		CompletedJobRetention:           time.Hour,
	}
}

// normalized clamps values to their documented invariants,
// MaxConcurrentJobs >= 1 above all.
func (c Config) normalized() Config {
	if c.MaxConcurrentJobs < 1 {
		c.MaxConcurrentJobs = 1
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.RetryBackoffMultiplier < 1 {
		c.RetryBackoffMultiplier = 1
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = c.RetryDelay
	}
	return c
}

// ConfigUpdate is a partial configuration change; nil fields keep the
// current value.
type ConfigUpdate struct {
	MaxConcurrentJobs      *int
	RetryAttempts          *int
	RetryDelay             *time.Duration
	RetryBackoffMultiplier *float64
	MaxRetryDelay          *time.Duration
	StageTimeout           *time.Duration

	EnableDuplicateDetection        *bool
	EnableQualityAssessment         *bool
	EnableInteractiveTransformation *bool
	EnableParallelProcessing        *bool

	ProgressReportingInterval *time.Duration
	CompletedJobRetention     *time.Duration
}

func (c Config) apply(update ConfigUpdate) Config {
	if update.MaxConcurrentJobs != nil {
		c.MaxConcurrentJobs = *update.MaxConcurrentJobs
	}
	if update.RetryAttempts != nil {
		c.RetryAttempts = *update.RetryAttempts
	}
	if update.RetryDelay != nil {
		c.RetryDelay = *update.RetryDelay
	}
	if update.RetryBackoffMultiplier != nil {
		c.RetryBackoffMultiplier = *update.RetryBackoffMultiplier
	}
	if update.MaxRetryDelay != nil {
		c.MaxRetryDelay = *update.MaxRetryDelay
	}
	if update.StageTimeout != nil {
		c.StageTimeout = *update.StageTimeout
	}
	if update.EnableDuplicateDetection != nil {
		c.EnableDuplicateDetection = *update.EnableDuplicateDetection
	}
	if update.EnableQualityAssessment != nil {
		c.EnableQualityAssessment = *update.EnableQualityAssessment
	}
	if update.EnableInteractiveTransformation != nil {
		c.EnableInteractiveTransformation = *update.EnableInteractiveTransformation
	}
	if update.EnableParallelProcessing != nil {
		c.EnableParallelProcessing = *update.EnableParallelProcessing
	}
	if update.ProgressReportingInterval != nil {
		c.ProgressReportingInterval = *update.ProgressReportingInterval
	}
	if update.CompletedJobRetention != nil {
		c.CompletedJobRetention = *update.CompletedJobRetention
	}
	return c
}
