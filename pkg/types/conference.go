// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Author is a permanent author record. Rows are created or updated only by
// an approval merge or an explicit refresh.
type Author struct {
	ID int64 `json:"id" yaml:"id"`

	// Name is the author name as first submitted.
	Name string `json:"name" yaml:"name"`

	// Metric is the most recently enriched h-index.
	Metric *int `json:"h_index" yaml:"h_index"`

	// ExternalID is the bibliographic service identifier; unique when set.
	ExternalID *string `json:"external_id" yaml:"external_id"`

	// Affiliation is the most recently enriched institution.
	Affiliation *string `json:"affiliation" yaml:"affiliation"`

	// LastRefreshed is when Metric and Affiliation were last written.
	LastRefreshed time.Time `json:"last_refreshed" yaml:"last_refreshed"`
}

// Conference is a permanent conference record created on approval.
type Conference struct {
	ID                int64          `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Organizers        string         `json:"organizers" yaml:"organizers"`
	Location          string         `json:"location" yaml:"location"`
	FeaturedWorkshops string         `json:"featured_workshops,omitempty" yaml:"featured_workshops,omitempty"`
	Classification    Classification `json:"classification" yaml:"classification"`
	Ranking           Ranking        `json:"ranking" yaml:"ranking"`
	CreatedAt         time.Time      `json:"created_at" yaml:"created_at"`
}

// Paper is a permanent paper record linked to a conference and its authors.
type Paper struct {
	ID           int64   `json:"id" yaml:"id"`
	Title        string  `json:"title" yaml:"title"`
	ConferenceID int64   `json:"conference_id" yaml:"conference_id"`
	AuthorIDs    []int64 `json:"author_ids" yaml:"author_ids"`
}
