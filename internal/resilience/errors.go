// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // network blips, dropped connections
	ErrorTypePermanent                    // bad credentials, permissions
	ErrorTypeTimeout                      // request or query timeouts
	ErrorTypeRateLimit                    // throttled by a cloud API
	ErrorTypeServiceUnavailable           // 5xx style outages
	ErrorTypeInvalidInput                 // undecodable or malformed source data
	ErrorTypeResourceNotFound             // missing file, bucket, table
	ErrorTypeConfiguration                // aborts the run
)

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	switch {
	case e.Message != "" && e.Original != nil:
		return e.Message + ": " + e.Original.Error()
	case e.Message != "":
		return e.Message
	case e.Original != nil:
		return e.Original.Error()
	default:
		return e.Type.String()
	}
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for retry and reporting decisions.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent}
	case errors.Is(err, context.DeadlineExceeded) || isTimeoutError(err):
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Retryable: true}
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, sql.ErrNoRows):
		return &ClassifiedError{Original: err, Type: ErrorTypeResourceNotFound}
	case errors.Is(err, fs.ErrPermission):
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent}
	case errors.Is(err, sql.ErrConnDone) || isNetworkError(err):
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Retryable: true}
	}

	errStr := strings.ToLower(err.Error())

	// Cloud SDK and driver messages
	switch {
	case containsAny(errStr, "throttl", "slowdown", "slow down", "rate limit", "too many requests", "ratelimitexceeded"):
		return &ClassifiedError{Original: err, Type: ErrorTypeRateLimit, Retryable: true}
	case containsAny(errStr, "service unavailable", "internal server error", "internalerror", "status code: 503", "status code: 500", "bad gateway"):
		return &ClassifiedError{Original: err, Type: ErrorTypeServiceUnavailable, Retryable: true}
	case containsAny(errStr, "connection reset", "broken pipe", "connection refused", "bad connection", "driver: bad connection"):
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Retryable: true}
	case containsAny(errStr, "access denied", "accessdenied", "unauthorized", "forbidden", "authentication failed",
		"password authentication", "invalidaccesskeyid", "signaturedoesnotmatch", "authorizationfailure"):
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent}
	case containsAny(errStr, "not found", "does not exist", "nosuchkey", "nosuchbucket", "containernotfound", "blobnotfound", "no such table"):
		return &ClassifiedError{Original: err, Type: ErrorTypeResourceNotFound}
	case containsAny(errStr, "malformed", "invalid", "corrupt", "not a valid", "unexpected eof", "bad request"):
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput}
	}

	return &ClassifiedError{Original: err, Type: ErrorTypeUnknown}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original: cause,
		Type:     ErrorTypePermanent,
		Message:  message,
	}
}

// NewConfigError marks a problem with flags, connection parameters or the
// config file. Configuration errors end the run.
func NewConfigError(format string, args ...any) *ClassifiedError {
	return &ClassifiedError{
		Type:    ErrorTypeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfigError reports whether err (or anything it wraps) is a
// configuration error.
func IsConfigError(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Type == ErrorTypeConfiguration
}
