// Package ratelimit limits request rates per key. A redis token bucket is
// used when redis is configured, otherwise an in-process fixed window.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limiter admits at most limit requests per window for a key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

var (
	ErrEmptyKey      = errors.New("rate limiter key is empty")
	ErrInvalidLimit  = errors.New("rate limiter limit must be positive")
	ErrInvalidWindow = errors.New("rate limiter window must be positive")
)

func validate(key string, limit int, window time.Duration) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case limit <= 0:
		return ErrInvalidLimit
	case window <= 0:
		return ErrInvalidWindow
	}
	return nil
}
