// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Named retry policies.
const (
	PolicyFile     = "file"
	PolicyDatabase = "database"
	PolicyCloud    = "cloud"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Maximum number of retry attempts
	InitialInterval time.Duration                // Initial retry interval
	MaxInterval     time.Duration                // Maximum retry interval
	Multiplier      float64                      // Exponential backoff multiplier
	Jitter          bool                         // Add up to 25% random jitter
	OnRetry         func(attempt int, err error) // Optional callback invoked before each retry
}

// DefaultRetryConfig suits local file reads: a couple of quick retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// DatabaseRetryConfig covers dropped connections and lock timeouts.
func DatabaseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// CloudRetryConfig covers throttling and transient outages of object stores.
func CloudRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     16 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff executes an operation with exponential backoff and optional jitter.
// The delay before attempt n is: InitialInterval * Multiplier^(n-1), capped at MaxInterval.
// Only errors classified as retryable are retried.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := float64(config.InitialInterval)
			for i := 1; i < attempt; i++ {
				delay *= config.Multiplier
			}
			if config.Jitter {
				delay += delay * 0.25 * rand.Float64()
			}
			wait := time.Duration(delay)
			if config.MaxInterval > 0 {
				wait = min(wait, config.MaxInterval)
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ClassifyError(err).IsRetryable() {
			return err
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", config.MaxRetries+1, lastErr)
}

// RetryableFunc is a convenience type for retryable functions that return a value.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithResult executes a function that returns a result and error with retry logic.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn RetryableFunc[T]) (T, error) {
	var result T
	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeResourceNotFound:
		return "ResourceNotFound"
	case ErrorTypeConfiguration:
		return "Configuration"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// RetryManager holds retry policies by name. It is safe for concurrent use.
type RetryManager struct {
	mu      sync.RWMutex
	configs map[string]RetryConfig
}

// NewRetryManager returns a manager preloaded with the file, database and
// cloud policies.
func NewRetryManager() *RetryManager {
	return &RetryManager{configs: map[string]RetryConfig{
		PolicyFile:     DefaultRetryConfig(),
		PolicyDatabase: DatabaseRetryConfig(),
		PolicyCloud:    CloudRetryConfig(),
	}}
}

// SetConfig sets retry configuration for a named policy.
func (rm *RetryManager) SetConfig(name string, config RetryConfig) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.configs[name] = config
}

// GetConfig returns the named policy, falling back to defaults.
func (rm *RetryManager) GetConfig(name string) RetryConfig {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	if config, exists := rm.configs[name]; exists {
		return config
	}
	return DefaultRetryConfig()
}

// Retry executes an operation with the named policy.
func (rm *RetryManager) Retry(ctx context.Context, name string, operation RetryableOperation) error {
	return RetryWithBackoff(ctx, rm.GetConfig(name), operation)
}
