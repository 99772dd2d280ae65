// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SubmissionKind identifies what a pending submission asks an administrator to do.
type SubmissionKind string

const (
	KindNewConference SubmissionKind = "new_conference"
	KindModification  SubmissionKind = "modification"
	KindCancellation  SubmissionKind = "cancellation"
)

// Valid reports whether k is one of the known submission kinds.
func (k SubmissionKind) Valid() bool {
	switch k {
	case KindNewConference, KindModification, KindCancellation:
		return true
	}
	return false
}

// SubmissionStatus is the lifecycle state of a pending submission.
// Transitions are pending → approved and pending → rejected only.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// RawPaper is a paper as typed by the submitter.
type RawPaper struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
}

// RawSubmission is the transient user input for a conference record.
// It is never persisted as-is; enrichment turns it into an EnrichedPayload.
type RawSubmission struct {
	Name              string     `json:"name" yaml:"name"`
	Organizers        string     `json:"organizers" yaml:"organizers"`
	Location          string     `json:"location" yaml:"location"`
	FeaturedWorkshops string     `json:"featured_workshops,omitempty" yaml:"featured_workshops,omitempty"`
	Papers            []RawPaper `json:"papers" yaml:"papers"`
}

// PaperTitles returns the title of every paper in submission order.
func (r RawSubmission) PaperTitles() []string {
	titles := make([]string, 0, len(r.Papers))
	for _, p := range r.Papers {
		titles = append(titles, p.Title)
	}
	return titles
}

// EnrichedAuthor is the outcome of resolving one submitted author name
// against the bibliographic service.
type EnrichedAuthor struct {
	// Name is the author name exactly as submitted.
	Name string `json:"name"`

	// ExternalID is the bibliographic service's author identifier.
	ExternalID *string `json:"external_id"`

	// Metric is the author's h-index. Nil when resolution failed.
	Metric *int `json:"h_index"`

	// Affiliation is the first affiliation reported for the matched author.
	Affiliation *string `json:"affiliation"`

	// CitationCount is the matched author's total citation count.
	CitationCount *int `json:"citation_count,omitempty"`

	// MatchedName is the candidate name that won the ranking.
	MatchedName string `json:"matched_name,omitempty"`

	// Confidence is the winning candidate's weighted score in [0,1].
	Confidence float64 `json:"match_confidence"`

	// Error records why resolution failed. Empty on success.
	Error string `json:"error,omitempty"`
}

// Resolved reports whether the author was matched to an external identity.
func (a EnrichedAuthor) Resolved() bool {
	return a.Error == "" && a.ExternalID != nil
}

// Classification is the research field assigned to a conference.
type Classification struct {
	// Primary is the best-matching field. Empty means unclassified.
	Primary string `json:"primary"`

	// Secondary lists the other matching fields, strongest first.
	Secondary []string `json:"secondary"`

	// Confidence is the primary field's share of all keyword matches.
	Confidence float64 `json:"confidence"`

	// Error records why classification was unavailable. Empty on success.
	Error string `json:"error,omitempty"`
}

// Classified reports whether a primary field was assigned.
func (c Classification) Classified() bool { return c.Primary != "" }

// ConferenceRank is a coarse tier for a conference.
type ConferenceRank string

const (
	RankA ConferenceRank = "A"
	RankB ConferenceRank = "B"
	RankC ConferenceRank = "C"
)

// Ranking is the tier estimate attached to an enriched payload.
type Ranking struct {
	Rank    ConferenceRank `json:"rank"`
	Score   int            `json:"score"`
	Method  string         `json:"method"`
	Factors []string       `json:"factors"`
}

// EnrichedPaper is a submitted paper with its authors resolved.
type EnrichedPaper struct {
	Title   string           `json:"title"`
	Authors []EnrichedAuthor `json:"enriched_authors"`
}

// EnrichedPayload is the conference record stored on a pending submission.
type EnrichedPayload struct {
	Name              string          `json:"name"`
	Organizers        string          `json:"organizers"`
	Location          string          `json:"location"`
	FeaturedWorkshops string          `json:"featured_workshops,omitempty"`
	Papers            []EnrichedPaper `json:"papers"`
	Classification    Classification  `json:"classification"`
	Ranking           Ranking         `json:"ranking"`
}

// PendingSubmission is a submission awaiting, or past, administrator review.
type PendingSubmission struct {
	ID          int64            `json:"id"`
	Kind        SubmissionKind   `json:"type"`
	Payload     EnrichedPayload  `json:"payload"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
}

// MergedAuthor reports how one enriched author was reconciled on approval.
type MergedAuthor struct {
	AuthorID int64  `json:"author_id"`
	Name     string `json:"name"`
	Created  bool   `json:"created"`
}

// MergeResult summarizes the permanent rows written by an approval.
type MergeResult struct {
	SubmissionID int64          `json:"submission_id"`
	ConferenceID int64          `json:"conference_id,omitempty"`
	PaperIDs     []int64        `json:"paper_ids,omitempty"`
	Authors      []MergedAuthor `json:"authors_processed,omitempty"`
}
