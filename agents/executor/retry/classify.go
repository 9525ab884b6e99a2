/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// Class is the retry disposition of an error from the model layer.
type Class int

const (
	// Retryable errors (rate limits, timeouts, resets, 5xx) are retried with backoff.
	Retryable Class = iota
	// Billing errors (balance, quota, payment required) abort immediately.
	Billing
	// Fatal errors (auth, bad request, cancellation) are not retried.
	Fatal
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Billing:
		return "billing"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// HTTPError is the typed form provider adapters convert SDK errors into.
type HTTPError struct {
	StatusCode int
	// RetryAfter is the server-supplied delay hint, zero when absent.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("model API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model API error (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// billingMarkers are explicit balance/quota/payment-required signatures.
// Generic "quota exceeded" is absent on purpose: per-minute quotas are rate limits.
var billingMarkers = []string{
	"insufficient_balance",
	"insufficient balance",
	"insufficient_quota",
	"exceeded your current quota",
	"credit balance is too low",
	"payment required",
	"payment_required",
	"billing_hard_limit",
	"account balance",
	"余额不足",
	"欠费",
	"账户余额",
	"额度不足",
}

// IsBillingMessage reports whether s carries a balance/quota/payment marker.
func IsBillingMessage(s string) bool {
	s = strings.ToLower(s)
	for _, m := range billingMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// fatalMarkers identify errors that no amount of waiting fixes.
var fatalMarkers = []string{
	"invalid api key",
	"invalid_api_key",
	"invalid x-api-key",
	"authentication_error",
	"permission_denied",
	"invalid_request_error",
	"prompt is too long",
	"context_length_exceeded",
	"model not found",
}

// Classify decides how the review loop treats err.
// Unrecognized errors are retried; the attempt budget bounds them.
func Classify(err error) Class {
	if err == nil {
		return Retryable
	}
	if errors.Is(err, context.Canceled) {
		return Fatal
	}
	if IsBillingMessage(err.Error()) {
		return Billing
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return classifyStatus(httpErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return Retryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable
	}

	msg := strings.ToLower(err.Error())
	for _, m := range fatalMarkers {
		if strings.Contains(msg, m) {
			return Fatal
		}
	}
	return Retryable
}

func classifyStatus(code int) Class {
	switch {
	case code == http.StatusPaymentRequired:
		return Billing
	case RetryableStatus(code):
		return Retryable
	case code >= 400 && code < 500:
		return Fatal
	default:
		return Retryable
	}
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable,
		http.StatusGatewayTimeout, 529:
		return true
	}
	return false
}

// IsRetryable is Classify(err) == Retryable, for use with RetryWithBackoff.
func IsRetryable(err error) bool {
	return err != nil && Classify(err) == Retryable
}

// IsBilling is Classify(err) == Billing.
func IsBilling(err error) bool {
	return err != nil && Classify(err) == Billing
}
