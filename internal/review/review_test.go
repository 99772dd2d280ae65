// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/conference-engine/internal/enrich"
	"github.com/pdiddy/conference-engine/internal/lookup"
	"github.com/pdiddy/conference-engine/internal/resolve"
	"github.com/pdiddy/conference-engine/internal/store"
	"github.com/pdiddy/conference-engine/pkg/types"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type harness struct {
	svc     *Service
	store   *store.Store
	reg     *prometheus.Registry
	hopper    atomic.Int32
	hopperExt atomic.Value
	lookups   atomic.Int32
}

// newHarness wires the real pipeline against a fake bibliographic service
// that knows one author, Grace Hopper, whose metric is hopper's value.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{reg: prometheus.NewRegistry()}
	h.hopper.Store(100)
	h.hopperExt.Store("GH1")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.lookups.Add(1)
		if r.URL.Query().Get("query") == "Grace Hopper" {
			fmt.Fprintf(w, `{"data":[{"authorId":"%s","name":"Grace Hopper","hIndex":%d,"affiliations":["Yale"]}]}`,
				h.hopperExt.Load().(string), h.hopper.Load())
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	t.Cleanup(ts.Close)

	st, err := store.Open(context.Background(), types.StoreConfig{DSN: filepath.Join(t.TempDir(), "review.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	h.store = st

	client := lookup.NewClient(types.LookupConfig{BaseURL: ts.URL}, lookup.WithHTTPClient(ts.Client()))
	resolver := resolve.New(client)
	h.svc = NewService(enrich.New(resolver), resolver, st,
		WithClock(func() time.Time { return fixedNow }),
		WithRegisterer(h.reg))
	return h
}

func submission() types.RawSubmission {
	return types.RawSubmission{
		Name:       "NeurIPS 2024",
		Organizers: "NeurIPS Foundation",
		Location:   "Vancouver",
		Papers: []types.RawPaper{
			{Title: "Deep Learning Methods", Authors: []string{"Grace Hopper", "Nobody Known"}},
		},
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, p.Status)
	assert.True(t, p.SubmittedAt.Equal(fixedNow))

	stored, err := h.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	authors := stored.Payload.Papers[0].Authors
	require.Len(t, authors, 2)
	require.NotNil(t, authors[0].Metric)
	assert.Equal(t, 100, *authors[0].Metric)
	assert.Nil(t, authors[1].Metric)
	assert.NotEmpty(t, authors[1].Error)
	assert.Equal(t, "Machine Learning", stored.Payload.Classification.Primary)

	pending, err := h.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.svc.submitted.WithLabelValues("new_conference")))
}

func TestSubmitDefaultsAndValidatesKind(t *testing.T) {
	h := newHarness(t)
	p, err := h.svc.Submit(context.Background(), "", submission())
	require.NoError(t, err)
	assert.Equal(t, types.KindNewConference, p.Kind)

	_, err = h.svc.Submit(context.Background(), "merger", submission())
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestSubmitSucceedsWhenEveryLookupFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	st, err := store.Open(context.Background(), types.StoreConfig{DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	defer st.Close()

	resolver := resolve.New(lookup.NewClient(types.LookupConfig{BaseURL: ts.URL}, lookup.WithHTTPClient(ts.Client())))
	svc := NewService(enrich.New(resolver), resolver, st)

	p, err := svc.Submit(context.Background(), types.KindNewConference, submission())
	require.NoError(t, err)
	for _, a := range p.Payload.Papers[0].Authors {
		assert.Nil(t, a.Metric)
		assert.NotEmpty(t, a.Error)
	}
}

func TestApproveAndRejectTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)
	b, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)

	res, err := h.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.NotZero(t, res.ConferenceID)
	require.Len(t, res.Authors, 2)
	assert.True(t, res.Authors[0].Created)

	_, err = h.svc.Approve(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = h.svc.Reject(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	rejected, err := h.svc.Reject(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, rejected.Status)

	_, err = h.svc.Approve(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := h.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.svc.transitions.WithLabelValues("approved", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.svc.transitions.WithLabelValues("approved", "invalid_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.svc.transitions.WithLabelValues("approved", "not_found")))
}

func TestUpdatePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)

	payload := p.Payload
	payload.Name = "Compiler Construction Symposium 2026"
	edited, err := h.svc.UpdatePending(ctx, p.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, "Compiler Construction Symposium 2026", edited.Payload.Name)
	assert.Equal(t, types.StatusPending, edited.Status)

	res, err := h.svc.Approve(ctx, p.ID)
	require.NoError(t, err)
	conf, err := h.store.GetConference(ctx, res.ConferenceID)
	require.NoError(t, err)
	assert.Equal(t, "Compiler Construction Symposium 2026", conf.Name)

	_, err = h.svc.UpdatePending(ctx, p.ID, p.Payload)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = h.svc.UpdatePending(ctx, 404, p.Payload)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSecondApprovalReusesAuthors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)
	r1, err := h.svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	second, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)
	r2, err := h.svc.Approve(ctx, second.ID)
	require.NoError(t, err)

	assert.Equal(t, r1.Authors[0].AuthorID, r2.Authors[0].AuthorID)
	assert.False(t, r2.Authors[0].Created)
	assert.Equal(t, r1.Authors[1].AuthorID, r2.Authors[1].AuthorID)

	authors, err := h.store.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Len(t, authors, 2)
}

func TestRefreshAuthor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)
	res, err := h.svc.Approve(ctx, p.ID)
	require.NoError(t, err)
	hopperID, nobodyID := res.Authors[0].AuthorID, res.Authors[1].AuthorID

	// Refresh bypasses the lookup cache.
	h.hopper.Store(150)
	before := h.lookups.Load()
	a, err := h.svc.RefreshAuthor(ctx, hopperID)
	require.NoError(t, err)
	require.NotNil(t, a.Metric)
	assert.Equal(t, 150, *a.Metric)
	assert.True(t, a.LastRefreshed.Equal(fixedNow))
	assert.Equal(t, before+1, h.lookups.Load())

	stored, err := h.store.GetAuthor(ctx, nobodyID)
	require.NoError(t, err)
	current, err := h.svc.RefreshAuthor(ctx, nobodyID)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, stored, current)
	after, err := h.store.GetAuthor(ctx, nobodyID)
	require.NoError(t, err)
	assert.Equal(t, stored, after)

	_, err = h.svc.RefreshAuthor(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshAuthorRefusesDifferentIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.Submit(ctx, types.KindNewConference, submission())
	require.NoError(t, err)
	res, err := h.svc.Approve(ctx, p.ID)
	require.NoError(t, err)
	hopperID := res.Authors[0].AuthorID

	stored, err := h.store.GetAuthor(ctx, hopperID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExternalID)
	assert.Equal(t, "GH1", *stored.ExternalID)

	// The service now ranks a different person first for the same name.
	h.hopperExt.Store("GH2")
	h.hopper.Store(3)

	current, err := h.svc.RefreshAuthor(ctx, hopperID)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, store.ErrIdentityMismatch)
	assert.Equal(t, stored, current)

	after, err := h.store.GetAuthor(ctx, hopperID)
	require.NoError(t, err)
	assert.Equal(t, stored, after)
}
