// Package match holds the value types produced by embedding comparison.
package match

import (
	"encoding/json"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// DistanceResult is the outcome of comparing two embeddings.
// Similarity is derived from Distance, never computed independently.
type DistanceResult struct {
	Distance   float64
	Similarity float64
	IsMatch    bool
}

// NewDistanceResult applies the match rule distance <= threshold.
func NewDistanceResult(distance, threshold float64) DistanceResult {
	return DistanceResult{
		Distance:   distance,
		Similarity: 1.0 - distance,
		IsMatch:    IsMatch(distance, threshold),
	}
}

// IsMatch reports whether a distance is within the threshold.
func IsMatch(distance, threshold float64) bool {
	return distance <= threshold
}

// Candidate is a stored embedding the query is compared against.
type Candidate struct {
	Name      string
	Embedding domain.Embedding
	// Metadata is caller data echoed back untouched.
	Metadata json.RawMessage
}

// RankedMatch is a candidate's comparison result plus its input position.
type RankedMatch struct {
	DistanceResult
	Index    int
	Name     string
	Metadata json.RawMessage
}

// Outcome is the ranked comparison set, best similarity first.
type Outcome struct {
	Matches []RankedMatch
	// Skipped lists input positions dropped because their comparison failed.
	Skipped []int
}

// Best returns the head of the ranking. ok is false when nothing survived comparison.
func (o Outcome) Best() (RankedMatch, bool) {
	if len(o.Matches) == 0 {
		return RankedMatch{}, false
	}
	return o.Matches[0], true
}

// ConfidenceGap is the similarity margin between the best and second-best match.
// With a single match the gap is its similarity; with none it is 0.
func (o Outcome) ConfidenceGap() float64 {
	switch len(o.Matches) {
	case 0:
		return 0
	case 1:
		return o.Matches[0].Similarity
	default:
		return o.Matches[0].Similarity - o.Matches[1].Similarity
	}
}
