// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"strings"

	"github.com/pdiddy/conference-engine/pkg/types"
)

// Rank methods.
const (
	MethodKnownList   = "known_list"
	MethodAlgorithmic = "algorithmic"
	MethodDefault     = "default"
)

// knownVenues maps an upper-cased venue acronym to its community rank.
var knownVenues = map[string]types.ConferenceRank{
	// Machine learning
	"NEURIPS": types.RankA, "NIPS": types.RankA, "ICML": types.RankA, "ICLR": types.RankA,
	"AAAI": types.RankB, "IJCAI": types.RankB, "KDD": types.RankB,
	// Language
	"ACL": types.RankA, "EMNLP": types.RankA, "NAACL": types.RankA,
	// Vision
	"CVPR": types.RankA, "ICCV": types.RankA, "ECCV": types.RankA,
	// Security
	"CCS": types.RankA, "USENIX": types.RankA, "IEEE S&P": types.RankA,
	// Systems and databases
	"OSDI": types.RankA, "SOSP": types.RankA, "NSDI": types.RankB,
	"SIGMOD": types.RankB, "VLDB": types.RankB, "PODS": types.RankB,
	// Software engineering
	"ICSE": types.RankB, "FSE": types.RankB, "ASE": types.RankB,
	// Theory
	"STOC": types.RankA, "FOCS": types.RankA, "SODA": types.RankA,
	// Robotics
	"ICRA": types.RankB, "IROS": types.RankB, "RSS": types.RankB,
}

const knownVenueScore = 85

var (
	topTierFields = map[string]bool{MachineLearning: true, NLP: true, ComputerVision: true, Security: true}
	midTierFields = map[string]bool{Robotics: true, DistributedSystem: true, SoftwareEng: true, Theory: true}
)

// Rank estimates a conference tier. Venues on the known list take their
// listed rank; everything else is scored from the classification, the
// number of papers, and the authors' average metric.
func Rank(conferenceName string, c types.Classification, papers []types.EnrichedPaper) types.Ranking {
	if !c.Classified() {
		return types.Ranking{Rank: types.RankC, Score: 50, Method: MethodDefault, Factors: []string{"insufficient_data"}}
	}

	if acr, rank, ok := knownVenue(conferenceName); ok {
		return types.Ranking{
			Rank:    rank,
			Score:   knownVenueScore,
			Method:  MethodKnownList,
			Factors: []string{"known_conference_" + acr},
		}
	}

	score := 50
	var factors []string

	switch {
	case topTierFields[c.Primary]:
		score += 20
		factors = append(factors, "top_tier_field")
	case midTierFields[c.Primary]:
		score += 10
		factors = append(factors, "mid_tier_field")
	default:
		factors = append(factors, "specialized_field")
	}

	switch {
	case c.Confidence >= 0.85:
		score += 10
		factors = append(factors, "high_confidence_classification")
	case c.Confidence >= 0.70:
		score += 5
		factors = append(factors, "moderate_confidence_classification")
	}

	switch n := len(papers); {
	case n >= 100:
		score += 15
		factors = append(factors, "large_conference")
	case n >= 50:
		score += 10
		factors = append(factors, "medium_conference")
	case n >= 20:
		score += 5
		factors = append(factors, "small_conference")
	}

	if avg, ok := averageMetric(papers); ok {
		switch {
		case avg >= 30:
			score += 15
			factors = append(factors, "high_h_index")
		case avg >= 15:
			score += 10
			factors = append(factors, "moderate_h_index")
		case avg >= 5:
			score += 5
			factors = append(factors, "low_h_index")
		}
	}

	if len(c.Secondary) >= 2 {
		score += 5
		factors = append(factors, "interdisciplinary")
	}

	score = min(score, 100)
	return types.Ranking{Rank: tier(score), Score: score, Method: MethodAlgorithmic, Factors: factors}
}

func tier(score int) types.ConferenceRank {
	switch {
	case score >= 85:
		return types.RankA
	case score >= 65:
		return types.RankB
	default:
		return types.RankC
	}
}

// knownVenue matches the first word of name, or a multi-word entry that
// prefixes it, against the known list.
func knownVenue(name string) (string, types.ConferenceRank, bool) {
	upper := strings.ToUpper(strings.Join(strings.Fields(name), " "))
	if upper == "" {
		return "", "", false
	}
	first := strings.Fields(upper)[0]
	if r, ok := knownVenues[first]; ok {
		return first, r, true
	}
	for acr, r := range knownVenues {
		if strings.Contains(acr, " ") && (upper == acr || strings.HasPrefix(upper, acr+" ")) {
			return acr, r, true
		}
	}
	return "", "", false
}

func averageMetric(papers []types.EnrichedPaper) (float64, bool) {
	sum, n := 0, 0
	for _, p := range papers {
		for _, a := range p.Authors {
			if a.Metric != nil {
				sum += *a.Metric
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}
