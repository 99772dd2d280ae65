// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich turns a raw submission into an enriched payload by
// resolving every distinct author once and classifying the conference.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdiddy/conference-engine/internal/classify"
	"github.com/pdiddy/conference-engine/internal/logging"
	"github.com/pdiddy/conference-engine/pkg/types"
)

// AuthorResolver resolves one author name. Failures are reported in the
// returned author's Error field.
type AuthorResolver interface {
	Resolve(ctx context.Context, name string) types.EnrichedAuthor
}

// ClassifyFunc classifies a conference from its name and paper titles.
type ClassifyFunc func(conferenceName string, paperTitles []string) types.Classification

// Orchestrator runs the enrichment steps for one submission at a time.
// It holds no per-submission state and is safe for concurrent use when
// its resolver is.
type Orchestrator struct {
	resolver AuthorResolver
	classify ClassifyFunc
	logger   *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier replaces classify.Classify.
func WithClassifier(fn ClassifyFunc) Option {
	return func(o *Orchestrator) { o.classify = fn }
}

// WithLogger sets the logger used for per-author warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an Orchestrator.
func New(resolver AuthorResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{resolver: resolver, classify: classify.Classify}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.With(o.logger, "enrich")
	return o
}

// Enrich resolves the submission's authors and classifies it. It never
// fails: lookup and classification problems are recorded in the payload.
func (o *Orchestrator) Enrich(ctx context.Context, raw types.RawSubmission) types.EnrichedPayload {
	resolved := o.resolveAuthors(ctx, raw)

	payload := types.EnrichedPayload{
		Name:              raw.Name,
		Organizers:        raw.Organizers,
		Location:          raw.Location,
		FeaturedWorkshops: raw.FeaturedWorkshops,
		Papers:            make([]types.EnrichedPaper, 0, len(raw.Papers)),
	}
	for _, p := range raw.Papers {
		ep := types.EnrichedPaper{Title: p.Title, Authors: make([]types.EnrichedAuthor, 0, len(p.Authors))}
		for _, name := range p.Authors {
			ep.Authors = append(ep.Authors, resolved[name])
		}
		payload.Papers = append(payload.Papers, ep)
	}

	payload.Classification = o.safeClassify(raw.Name, raw.PaperTitles())
	payload.Ranking = classify.Rank(raw.Name, payload.Classification, payload.Papers)

	o.logger.Info("submission enriched",
		slog.String("conference", raw.Name),
		slog.Int("papers", len(payload.Papers)),
		slog.Int("authors", len(resolved)),
		slog.String("field", payload.Classification.Primary),
		slog.String("rank", string(payload.Ranking.Rank)))
	return payload
}

// resolveAuthors resolves each distinct name once, in first-seen order.
func (o *Orchestrator) resolveAuthors(ctx context.Context, raw types.RawSubmission) map[string]types.EnrichedAuthor {
	resolved := make(map[string]types.EnrichedAuthor)
	for _, p := range raw.Papers {
		for _, name := range p.Authors {
			if _, ok := resolved[name]; ok {
				continue
			}
			a := o.resolver.Resolve(ctx, name)
			if a.Error != "" {
				o.logger.Warn("author enrichment failed",
					slog.String("author", name),
					slog.String("error", a.Error))
			}
			resolved[name] = a
		}
	}
	return resolved
}

func (o *Orchestrator) safeClassify(name string, titles []string) (c types.Classification) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("classifier panicked", slog.String("conference", name), slog.Any("panic", r))
			c = types.Classification{
				Secondary: []string{},
				Error:     fmt.Sprintf("%s: %v", classify.ErrUnavailable, r),
			}
		}
	}()
	c = o.classify(name, titles)
	if c.Error != "" {
		o.logger.Warn("classification unavailable", slog.String("conference", name), slog.String("error", c.Error))
	}
	return c
}
