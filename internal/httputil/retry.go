// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components.
package httputil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Default backoff policy: waits of 2s, 4s, 8s before giving up, no single
// wait longer than 30s.
const (
	DefaultBaseDelay  = 2 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMaxRetries = 3
)

// Backoff is an exponential backoff policy for HTTP 429 responses.
// The wait before retry n (zero-based) is min(Base·2^n, Cap).
type Backoff struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int

	// Sleep waits for d or until ctx is done. Tests inject a recorder.
	// Nil uses SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, wait time.Duration)
}

// DefaultBackoff returns the 2s/30s/3-retry policy.
func DefaultBackoff() Backoff {
	return Backoff{Base: DefaultBaseDelay, Cap: DefaultMaxDelay, MaxRetries: DefaultMaxRetries}
}

// Delay returns the wait before retry attempt (zero-based).
func (b Backoff) Delay(attempt int) time.Duration {
	base, limit := b.Base, b.Cap
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if limit <= 0 {
		limit = DefaultMaxDelay
	}
	d := base
	for i := 0; i < attempt && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// Delays returns the full wait sequence the policy produces when every
// attempt is rate limited.
func (b Backoff) Delays() []time.Duration {
	out := make([]time.Duration, 0, b.retries())
	for i := 0; i < b.retries(); i++ {
		out = append(out, b.Delay(i))
	}
	return out
}

func (b Backoff) retries() int {
	if b.MaxRetries < 0 {
		return 0
	}
	return b.MaxRetries
}

func (b Backoff) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or returns ctx.Err() if the context ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) following policy. Any other response, or a transport error,
// ends the sequence immediately.
//
// attempt builds the context for a single try; it lets callers bound each
// network call separately (nil uses ctx unchanged). On each 429 the response
// body is drained and closed before waiting. If the context is cancelled
// during a wait the function returns ctx.Err(). After exhausting retries
// the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Backoff, attempt func(context.Context) (context.Context, context.CancelFunc)) (*http.Response, error) {
	for n := 0; ; n++ {
		resp, err := doOnce(ctx, client, req, attempt)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if n >= policy.retries() {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		wait := policy.Delay(n)
		if policy.OnRetry != nil {
			policy.OnRetry(n+1, wait)
		}
		if err := policy.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// doOnce issues one attempt. When a per-attempt context is used the body is
// buffered so cancelling that context does not cut off the caller's read.
func doOnce(ctx context.Context, client *http.Client, req *http.Request, attempt func(context.Context) (context.Context, context.CancelFunc)) (*http.Response, error) {
	if attempt == nil {
		return client.Do(req.Clone(ctx))
	}
	actx, cancel := attempt(ctx)
	defer cancel()

	resp, err := client.Do(req.Clone(actx))
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
