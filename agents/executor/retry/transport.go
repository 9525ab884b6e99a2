/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chainguard-dev/clog"
)

// maxInspectBytes bounds how much of a 429 body is read to look for billing markers.
const maxInspectBytes = 64 << 10

// Transport is an http.RoundTripper that retries rate-limited, overloaded
// and failed requests with backoff, honoring retry-after headers.
//
// A 429 whose body carries an insufficient-balance marker is not a rate
// limit: it is rewritten into a 402 Payment Required response and returned
// immediately, so callers classify it as a billing failure.
type Transport struct {
	Base   http.RoundTripper
	Config RetryConfig
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, cfg RetryConfig) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Config: cfg}
}

// Client returns an *http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := clog.FromContext(ctx).With("url", req.URL.Redacted())

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		r := req
		if getBody != nil {
			r = req.Clone(ctx)
			if r.Body, err = getBody(); err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
		}

		resp, err := t.Base.RoundTrip(r)
		if err != nil {
			if attempt >= t.Config.MaxRetries || ctx.Err() != nil || Classify(err) != Retryable {
				return nil, err
			}
			delay := Backoff(t.Config, attempt, 0)
			log.With("attempt", attempt+1).With("backoff", delay).Warnf("Request failed, retrying: %v", err)
			if err := Sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			body, err := peekBody(resp)
			if err != nil {
				return nil, err
			}
			if IsBillingMessage(string(body)) {
				log.Warn("Rate limit response carries a balance marker, treating as payment required")
				return paymentRequired(resp, body), nil
			}
		}

		if !RetryableStatus(resp.StatusCode) || attempt >= t.Config.MaxRetries {
			return resp, nil
		}

		hint, _ := ParseRetryAfter(resp.Header)
		delay := Backoff(t.Config, attempt, hint)
		log.With("attempt", attempt+1).With("status", resp.StatusCode).With("backoff", delay).
			Warn("Retryable response status, retrying")
		drain(resp)
		if err := Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// replayableBody returns a function producing fresh copies of the request body.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

// peekBody reads up to maxInspectBytes of the body and restores it on resp.
func peekBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, maxInspectBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		resp.Body.Close()
		return nil, fmt.Errorf("reading rate limit response: %w", err)
	}
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), resp.Body), resp.Body}
	return head, nil
}

func paymentRequired(resp *http.Response, body []byte) *http.Response {
	resp.Body.Close()
	out := *resp
	out.StatusCode = http.StatusPaymentRequired
	out.Status = fmt.Sprintf("%d %s", http.StatusPaymentRequired, http.StatusText(http.StatusPaymentRequired))
	out.Header = resp.Header.Clone()
	out.Header.Del("Retry-After")
	out.Header.Del("Retry-After-Ms")
	out.Header.Del("Content-Length")
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	return &out
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxInspectBytes))
	resp.Body.Close()
}
