// Package provider defines the capability interface every language-model
// backend implements, plus the classified error type the availability manager
// reacts to.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Invoker is the single capability the pipeline depends on. Each configured
// provider implements it with its own endpoint and credentials.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, instruction string, text string) (string, error)
}

type Class string

const (
	ClassRateLimited    Class = "rate_limited"
	ClassQuotaExhausted Class = "quota_exhausted"
	ClassAuthFailure    Class = "auth_failure"
	ClassTransient      Class = "transient"
)

// Error is a provider call failure with enough classification for the
// availability manager to pick a cooldown tier.
type Error struct {
	Provider   string
	Class      Class
	Status     int
	RetryAfter time.Duration // provider-suggested delay, zero when absent
	Msg        string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Class, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Class, e.Msg)
}

// ClassOf maps any error from a provider call to a failure class. Unclassified
// errors (network failures, timeouts, decode errors) count as transient.
func ClassOf(err error) Class {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class
	}
	return ClassTransient
}

// RetryAfterOf returns the provider-suggested delay, if the error carries one.
func RetryAfterOf(err error) time.Duration {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.RetryAfter
	}
	return 0
}

var quotaMarkers = []string{"quota", "billing", "insufficient_quota", "exceeded your current"}

// classifyStatus maps an HTTP failure response to a classified error.
func classifyStatus(name string, status int, body string, retryAfter string) *Error {
	e := &Error{Provider: name, Status: status, Msg: truncate(body, 200)}
	lower := strings.ToLower(body)

	switch {
	case status == http.StatusTooManyRequests:
		e.Class = ClassRateLimited
		if containsAny(lower, quotaMarkers) {
			e.Class = ClassQuotaExhausted
		}
	case status == http.StatusPaymentRequired:
		e.Class = ClassQuotaExhausted
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Class = ClassAuthFailure
		if containsAny(lower, quotaMarkers) {
			e.Class = ClassQuotaExhausted
		}
	default:
		e.Class = ClassTransient
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
