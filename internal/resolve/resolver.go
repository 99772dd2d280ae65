// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns a submitted author name into an EnrichedAuthor by
// ranking the lookup candidates on name similarity and reputation metric.
package resolve

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/conference-engine/internal/lookup"
	"github.com/pdiddy/conference-engine/pkg/types"
)

// Ranking weights. They sum to 1 so scores stay in [0,1].
const (
	SimilarityWeight = 0.7
	MetricWeight     = 0.3
)

// AuthorLookup is the part of the lookup client the resolver needs.
type AuthorLookup interface {
	ResolveAuthor(ctx context.Context, name string) (lookup.Result, error)
}

// Resolver picks the best candidate for a name.
type Resolver struct {
	lookup AuthorLookup
}

// New creates a Resolver backed by l.
func New(l AuthorLookup) *Resolver {
	return &Resolver{lookup: l}
}

// Resolve looks name up and returns the winning candidate's data. Failures
// are soft: the returned author has nil metric and identity and a non-empty
// Error. Resolve never returns an error.
func (r *Resolver) Resolve(ctx context.Context, name string) types.EnrichedAuthor {
	out := types.EnrichedAuthor{Name: name}

	res, err := r.lookup.ResolveAuthor(ctx, name)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if !res.Found() {
		out.Error = fmt.Sprintf("not found: no candidates for %q", name)
		return out
	}

	best, score := Best(name, res.Candidates)
	c := res.Candidates[best]

	if c.ExternalID != "" {
		id := c.ExternalID
		out.ExternalID = &id
	}
	if c.Metric != nil {
		m := metricOf(c)
		out.Metric = &m
	}
	if len(c.Affiliations) > 0 && c.Affiliations[0] != "" {
		aff := c.Affiliations[0]
		out.Affiliation = &aff
	}
	if c.CitationCount != nil {
		cc := *c.CitationCount
		out.CitationCount = &cc
	}
	out.MatchedName = c.Name
	out.Confidence = score
	return out
}

// Best returns the index and score of the highest-scoring candidate.
// Ties go to the earliest candidate. candidates must be non-empty.
func Best(name string, candidates []lookup.Candidate) (int, float64) {
	maxMetric, uniform := metricSpread(candidates)

	best, bestScore := 0, -1.0
	for i, c := range candidates {
		norm := 0.0
		if len(candidates) > 1 && !uniform && maxMetric > 0 {
			norm = float64(metricOf(c)) / float64(maxMetric)
		}
		score := SimilarityWeight*Similarity(name, c.Name) + MetricWeight*norm
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// Similarity is 1 minus the edit distance between the normalized names,
// divided by the longer name's rune count. Two blank names are identical.
func Similarity(a, b string) float64 {
	a, b = lookup.NormalizeName(a), lookup.NormalizeName(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func metricOf(c lookup.Candidate) int {
	if c.Metric == nil || *c.Metric < 0 {
		return 0
	}
	return *c.Metric
}

func metricSpread(candidates []lookup.Candidate) (maxMetric int, uniform bool) {
	uniform = true
	for i, c := range candidates {
		m := metricOf(c)
		if i > 0 && m != metricOf(candidates[0]) {
			uniform = false
		}
		maxMetric = max(maxMetric, m)
	}
	return maxMetric, uniform
}
