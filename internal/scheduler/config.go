package scheduler

import (
	"time"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	// StaleAttemptAfter is how long a payment attempt may stay pending
	// before it is closed as abandoned. It must exceed the payment timeout.
	StaleAttemptAfter time.Duration
	// SessionRetention keeps expired and revoked sessions around for this
	// long before they are purged.
	SessionRetention time.Duration
	// EnabledJobs limits the run to the named jobs. Empty runs all jobs.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:       time.Minute,
		BatchSize:         100,
		StaleAttemptAfter: 10 * time.Minute,
		SessionRetention:  24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.StaleAttemptAfter <= 0 {
		c.StaleAttemptAfter = defaults.StaleAttemptAfter
	}
	if c.SessionRetention <= 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	return c
}
