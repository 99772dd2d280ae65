// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a research field to a conference from the words in
// its name and paper titles, and estimates a coarse A/B/C rank.
package classify

import (
	"errors"
	"sort"
	"strings"

	"github.com/pdiddy/conference-engine/pkg/types"
)

// ErrUnavailable is recorded when there is no text to classify.
var ErrUnavailable = errors.New("classification unavailable")

// Field is one entry of the classification vocabulary.
type Field struct {
	Name     string
	Keywords []string
}

// Field names.
const (
	MachineLearning   = "Machine Learning"
	NLP               = "Natural Language Processing"
	ComputerVision    = "Computer Vision"
	Robotics          = "Robotics"
	HCI               = "Human-Computer Interaction"
	SoftwareEng       = "Software Engineering"
	Security          = "Security"
	DatabaseSystems   = "Database Systems"
	DistributedSystem = "Distributed Systems"
	WebTechnology     = "Web Technology"
	Bioinformatics    = "Bioinformatics"
	DataScience       = "Data Science"
	Theory            = "Theory"
)

// fields is the ordered vocabulary. Order breaks score ties. Keywords are
// lowercase and matched as substrings.
var fields = []Field{
	{MachineLearning, []string{"machine learning", "deep learning", "neural network", "neural", "ai",
		"artificial intelligence", "learning", "algorithm", "model", "prediction"}},
	{NLP, []string{"nlp", "language", "text", "translation", "semantic",
		"natural language", "linguistic", "corpus"}},
	{ComputerVision, []string{"vision", "image", "visual", "video", "detection", "recognition", "segmentation",
		"convolutional", "cnn", "object", "scene"}},
	{Robotics, []string{"robot", "robotic", "autonomous", "control", "manipulation", "motion", "navigation"}},
	{HCI, []string{"hci", "interaction", "interface", "user experience", "ux", "ui",
		"usability", "user study", "interaction design"}},
	{SoftwareEng, []string{"software", "testing", "development", "programming", "architecture",
		"code", "refactoring", "debugging", "devops", "agile"}},
	{Security, []string{"security", "cryptography", "encryption", "malware", "attack", "vulnerability",
		"privacy", "authentication", "authorization"}},
	{DatabaseSystems, []string{"database", "sql", "query", "transaction", "data management", "indexing",
		"distributed database", "nosql"}},
	{DistributedSystem, []string{"distributed", "concurrency", "parallel", "cluster", "consensus",
		"byzantine", "replication", "blockchain"}},
	{WebTechnology, []string{"web", "http", "browser", "javascript", "html", "css", "web framework",
		"web service", "api", "rest"}},
	{Bioinformatics, []string{"bioinformatics", "genetics", "protein", "sequence", "biology", "dna",
		"genomics", "computational biology", "medical"}},
	{DataScience, []string{"data", "analytics", "big data", "data mining", "visualization", "statistics",
		"data processing", "data warehouse"}},
	{Theory, []string{"theory", "complexity", "algorithm", "formal", "proof", "computational complexity",
		"decidability", "p vs np"}},
}

// Fields returns a copy of the vocabulary in declared order.
func Fields() []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Keywords: append([]string(nil), f.Keywords...)}
	}
	return out
}

type fieldScore struct {
	index int
	score int
}

// Classify scores every field against the conference name and paper
// titles. Each distinct keyword found counts once. No match yields an
// unclassified result with zero confidence.
func Classify(conferenceName string, paperTitles []string) types.Classification {
	blob := strings.ToLower(strings.Join(append([]string{conferenceName}, paperTitles...), " "))
	if strings.TrimSpace(blob) == "" {
		return types.Classification{Secondary: []string{}, Error: ErrUnavailable.Error() + ": no conference name or paper titles"}
	}

	var scores []fieldScore
	total := 0
	for i, f := range fields {
		n := distinctMatches(blob, f.Keywords)
		if n > 0 {
			scores = append(scores, fieldScore{index: i, score: n})
			total += n
		}
	}
	if len(scores) == 0 {
		return types.Classification{Secondary: []string{}}
	}

	// Stable sort keeps declared order among equal scores.
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	c := types.Classification{
		Primary:    fields[scores[0].index].Name,
		Secondary:  make([]string, 0, len(scores)-1),
		Confidence: float64(scores[0].score) / float64(total),
	}
	for _, s := range scores[1:] {
		c.Secondary = append(c.Secondary, fields[s.index].Name)
	}
	return c
}

func distinctMatches(blob string, keywords []string) int {
	seen := make(map[string]bool, len(keywords))
	n := 0
	for _, kw := range keywords {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		if strings.Contains(blob, kw) {
			n++
		}
	}
	return n
}
