// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/conference-engine/pkg/types"
)

const sampleAuthorSearchJSON = `{
  "total": 2,
  "offset": 0,
  "data": [
    {
      "authorId": "1741101",
      "name": "Ada Lovelace",
      "hIndex": 42,
      "affiliations": ["University of London"],
      "citationCount": 9001
    },
    {
      "authorId": "2093847",
      "name": "A. Lovelace",
      "hIndex": null,
      "affiliations": [],
      "citationCount": null
    }
  ]
}`

// sleepRecorder captures backoff waits without sleeping.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func testConfig(baseURL string) types.LookupConfig {
	return types.LookupConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 2 * time.Second, UserAgent: "test/0.1"},
		RetryConfig: types.RetryConfig{
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
			MaxRetries: 3,
		},
		BaseURL: baseURL,
	}
}

func newTestClient(t *testing.T, ts *httptest.Server, opts ...Option) (*Client, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	opts = append([]Option{WithHTTPClient(ts.Client()), WithSleep(rec.sleep)}, opts...)
	return NewClient(testConfig(ts.URL), opts...), rec
}

func jsonServer(calls *int32, status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestResolveAuthor_Found(t *testing.T) {
	var gotPath, gotQuery, gotFields, gotAgent, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotFields = r.URL.Query().Get("fields")
		gotAgent = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("x-api-key")
		fmt.Fprint(w, sampleAuthorSearchJSON)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.APIKey = "secret"
	c := NewClient(cfg, WithHTTPClient(ts.Client()))

	r, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.NoError(t, err)
	require.True(t, r.Found())
	require.Len(t, r.Candidates, 2)

	first := r.Candidates[0]
	assert.Equal(t, "1741101", first.ExternalID)
	assert.Equal(t, "Ada Lovelace", first.Name)
	require.NotNil(t, first.Metric)
	assert.Equal(t, 42, *first.Metric)
	assert.Equal(t, []string{"University of London"}, first.Affiliations)
	require.NotNil(t, first.CitationCount)
	assert.Equal(t, 9001, *first.CitationCount)

	assert.Nil(t, r.Candidates[1].Metric)
	assert.Nil(t, r.Candidates[1].CitationCount)

	assert.Equal(t, "/author/search", gotPath)
	assert.Equal(t, "Ada Lovelace", gotQuery)
	assert.Equal(t, authorFields, gotFields)
	assert.Equal(t, "test/0.1", gotAgent)
	assert.Equal(t, "secret", gotKey)
}

func TestResolveAuthor_NotFoundIsNotAnError(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, `{"total":0,"offset":0,"data":[]}`)
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	r, err := c.ResolveAuthor(context.Background(), "Nobody Atall")
	require.NoError(t, err)
	assert.False(t, r.Found())
	assert.Empty(t, r.Candidates)
}

func TestResolveAuthor_RateLimitedBackoffSequence(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusTooManyRequests, `{"message":"Too Many Requests"}`)
	defer ts.Close()

	c, rec := newTestClient(t, ts)
	_, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrTransport)
	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, KindRateLimited, lerr.Kind)

	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.waits)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_SuccessStopsBackoff(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleAuthorSearchJSON)
	}))
	defer ts.Close()

	c, rec := newTestClient(t, ts)
	r, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.NoError(t, err)
	assert.True(t, r.Found())
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		fmt.Fprint(w, sampleAuthorSearchJSON)
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.Timeout = 20 * time.Millisecond
	c := NewClient(cfg, WithHTTPClient(ts.Client()))

	_, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestResolveAuthor_TransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`},
		{"malformed json", http.StatusOK, `{"data": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := jsonServer(&calls, tt.status, tt.body)
			defer ts.Close()

			c, rec := newTestClient(t, ts)
			_, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)
			assert.NotErrorIs(t, err, ErrTimeout)
			assert.Empty(t, rec.waits)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestResolveAuthor_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewClient(testConfig(url))
	_, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestResolveAuthor_CacheSingleNetworkCall(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, sampleAuthorSearchJSON)
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	ctx := context.Background()

	first, err := c.ResolveAuthor(ctx, "Ada Lovelace")
	require.NoError(t, err)
	second, err := c.ResolveAuthor(ctx, "Ada Lovelace")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)

	// Normalized variants share the cache entry.
	_, err = c.ResolveAuthor(ctx, "  ADA   lovelace ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.CacheLen())

	c.ClearCache()
	assert.Equal(t, 0, c.CacheLen())
	_, err = c.ResolveAuthor(ctx, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_CachesNotFound(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, `{"data":[]}`)
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	for i := 0; i < 3; i++ {
		_, err := c.ResolveAuthor(context.Background(), "Nobody")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_ErrorsAreNotCached(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, sampleAuthorSearchJSON)
	}))
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	_, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.Error(t, err)

	r, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.NoError(t, err)
	assert.True(t, r.Found())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_SharedCacheAcrossClients(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, sampleAuthorSearchJSON)
	defer ts.Close()

	cache := NewMemoryCache()
	a, _ := newTestClient(t, ts, WithCache(cache))
	b, _ := newTestClient(t, ts, WithCache(cache))

	_, err := a.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.NoError(t, err)
	_, err = b.ResolveAuthor(context.Background(), "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_ConcurrentCallers(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, sampleAuthorSearchJSON)
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	names := []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "Edsger Dijkstra"}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := c.ResolveAuthor(context.Background(), name)
			assert.NoError(t, err)
		}(names[i%len(names)])
	}
	wg.Wait()

	assert.Equal(t, len(names), c.CacheLen())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(len(names)))

	// Everything is cached now.
	before := atomic.LoadInt32(&calls)
	for _, n := range names {
		_, err := c.ResolveAuthor(context.Background(), n)
		require.NoError(t, err)
	}
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestResolveAuthor_BlankNameSkipsNetwork(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, sampleAuthorSearchJSON)
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	r, err := c.ResolveAuthor(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, r.Found())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestResolveAuthor_Metrics(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleAuthorSearchJSON)
	}))
	defer ts.Close()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c, _ := newTestClient(t, ts, WithMetrics(m))

	for i := 0; i < 2; i++ {
		_, err := c.ResolveAuthor(context.Background(), "Ada Lovelace")
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(types.LookupConfig{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultCandidateLimit, c.limit)
	assert.Equal(t, 3, c.backoff.MaxRetries)
	assert.Nil(t, c.pacer)

	paced := NewClient(types.LookupConfig{RequestsPerSecond: 5})
	assert.NotNil(t, paced.pacer)
}

func TestResolveAuthor_NoCacheRefreshesEntry(t *testing.T) {
	var calls int32
	ts := jsonServer(&calls, http.StatusOK, sampleAuthorSearchJSON)
	defer ts.Close()

	c, _ := newTestClient(t, ts)
	ctx := context.Background()

	_, err := c.ResolveAuthor(ctx, "Ada Lovelace")
	require.NoError(t, err)
	_, err = c.ResolveAuthor(NoCache(ctx), "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = c.ResolveAuthor(ctx, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.CacheLen())
}
