// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lookup queries the Semantic Scholar author search for reputation
// metrics. Results are cached per normalized name for the life of the
// process; HTTP 429 responses are retried with exponential backoff.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/conference-engine/internal/httputil"
	"github.com/pdiddy/conference-engine/internal/logging"
	"github.com/pdiddy/conference-engine/pkg/types"
)

const (
	DefaultBaseURL        = "https://api.semanticscholar.org/graph/v1"
	DefaultTimeout        = 10 * time.Second
	DefaultCandidateLimit = 20
	defaultUserAgent      = "conference-engine/0.1"

	authorFields = "name,hIndex,affiliations,authorId,citationCount"
)

// Candidate is one possible identity returned for a queried name.
type Candidate struct {
	ExternalID    string   `json:"external_id"`
	Name          string   `json:"name"`
	Metric        *int     `json:"h_index"`
	Affiliations  []string `json:"affiliations"`
	CitationCount *int     `json:"citation_count"`
}

// Result holds the candidates for one name. Zero candidates means the
// service knows no such author; that is a valid outcome, not an error.
type Result struct {
	Candidates []Candidate `json:"candidates"`
}

// Found reports whether at least one candidate was returned.
func (r Result) Found() bool { return len(r.Candidates) > 0 }

// Client resolves author names against the bibliographic service.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	agent   string
	limit   int
	timeout time.Duration
	backoff httputil.Backoff
	pacer   *rate.Limiter
	cache   Cache
	metrics *Metrics
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache injects the result cache. The default is a new MemoryCache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithSleep replaces the backoff wait, letting tests record delays.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.backoff.Sleep = sleep }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client from cfg, filling defaults for zero values.
func NewClient(cfg types.LookupConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		agent:   cfg.UserAgent,
		limit:   cfg.CandidateLimit,
		timeout: cfg.Timeout,
		backoff: httputil.Backoff{
			Base:       cfg.BaseDelay,
			Cap:        cfg.MaxDelay,
			MaxRetries: cfg.MaxRetries,
		},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.agent == "" {
		c.agent = defaultUserAgent
	}
	if c.limit <= 0 {
		c.limit = DefaultCandidateLimit
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.backoff.MaxRetries <= 0 {
		c.backoff.MaxRetries = httputil.DefaultMaxRetries
	}
	if cfg.RequestsPerSecond > 0 {
		c.pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.cache == nil {
		c.cache = NewMemoryCache()
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.With(c.logger, "lookup")
	c.backoff.OnRetry = func(attempt int, wait time.Duration) {
		c.metrics.retry()
		c.logger.Warn("rate limited, backing off",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.backoff.MaxRetries),
			slog.Duration("wait", wait))
	}
	return c
}

// ClearCache drops every cached result.
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.logger.Info("lookup cache cleared")
}

// CacheLen returns the number of cached names.
func (c *Client) CacheLen() int { return c.cache.Len() }

type noCacheKey struct{}

// NoCache returns a context under which ResolveAuthor skips the cache read
// and always queries the service. The fresh result still replaces the
// cached one.
func NoCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey{}).(bool)
	return v
}

// ResolveAuthor returns the candidates for name. Cached results are returned
// without touching the network. Failures are *Error values.
func (c *Client) ResolveAuthor(ctx context.Context, name string) (Result, error) {
	key := NormalizeName(name)
	if key == "" {
		return Result{}, nil
	}
	if r, ok := c.cache.Get(key); ok && !cacheBypassed(ctx) {
		c.metrics.cacheHit()
		c.logger.Debug("cache hit", slog.String("author", name))
		return r, nil
	}

	start := time.Now()
	r, err := c.fetch(ctx, name)
	if err != nil {
		var lerr *Error
		if errors.As(err, &lerr) {
			c.metrics.observe(string(lerr.Kind), start)
		}
		return Result{}, err
	}

	c.cache.Put(key, r)
	outcome := "found"
	if !r.Found() {
		outcome = "not_found"
	}
	c.metrics.observe(outcome, start)
	c.logger.Debug("author lookup complete",
		slog.String("author", name),
		slog.Int("candidates", len(r.Candidates)))
	return r, nil
}

func (c *Client) fetch(ctx context.Context, name string) (Result, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return Result{}, &Error{Kind: KindTransport, Name: name, Err: err}
		}
	}

	params := url.Values{
		"query":  {name},
		"fields": {authorFields},
		"limit":  {strconv.Itoa(c.limit)},
	}
	reqURL := c.baseURL + "/author/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Name: name, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", c.agent)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	perAttempt := func(ctx context.Context) (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, c.timeout)
	}
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.backoff, perAttempt)
	if err != nil {
		return Result{}, c.classify(ctx, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, &Error{Kind: KindRateLimited, Name: name,
			Err: fmt.Errorf("HTTP 429 after %d retries", c.backoff.MaxRetries)}
	case resp.StatusCode != http.StatusOK:
		return Result{}, &Error{Kind: KindTransport, Name: name,
			Err: fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)}
	}

	var sr authorSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Result{}, &Error{Kind: KindTransport, Name: name, Err: fmt.Errorf("parsing author search response: %w", err)}
	}

	var r Result
	for _, a := range sr.Data {
		r.Candidates = append(r.Candidates, Candidate{
			ExternalID:    a.AuthorID,
			Name:          a.Name,
			Metric:        a.HIndex,
			Affiliations:  a.Affiliations,
			CitationCount: a.CitationCount,
		})
	}
	return r, nil
}

// classify maps a request error to a lookup kind. A deadline that expired
// while the caller's own context is still live is a per-call timeout.
func (c *Client) classify(ctx context.Context, name string, err error) error {
	var nerr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout())
	if timedOut && ctx.Err() == nil {
		return &Error{Kind: KindTimeout, Name: name, Err: err}
	}
	return &Error{Kind: KindTransport, Name: name, Err: err}
}

// Semantic Scholar author search JSON structures.
type authorSearchResponse struct {
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Data   []authorRecord `json:"data"`
}

type authorRecord struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	HIndex        *int     `json:"hIndex"`
	Affiliations  []string `json:"affiliations"`
	CitationCount *int     `json:"citationCount"`
}
