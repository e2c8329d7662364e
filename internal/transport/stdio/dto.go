package stdio

import (
	"encoding/json"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/domain/match"
)

// Operation names accepted in the request envelope.
const (
	OpExtractEmbedding  = "extract_embedding"
	OpCalculateDistance = "calculate_distance"
	OpCompareFaces      = "compare_faces"
)

// Request is the input envelope.
type Request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type extractData struct {
	Image *string `json:"image"`
}

// vector decodes a JSON number array; null elements stay nil so they can be rejected.
type vector []*float64

// embedding converts v, reporting false when any component is null.
func (v vector) embedding() (domain.Embedding, bool) {
	out := make([]float64, len(v))
	for i, f := range v {
		if f == nil {
			return nil, false
		}
		out[i] = *f
	}
	return domain.EmbeddingFromFloat64(out), true
}

type distanceData struct {
	Embedding1 vector `json:"embedding1"`
	Embedding2 vector `json:"embedding2"`
}

type compareData struct {
	Image      *string           `json:"image"`
	Embeddings []json.RawMessage `json:"embeddings"`
}

type candidateData struct {
	Embedding vector          `json:"embedding"`
	Name      string          `json:"name"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Envelope is embedded in every response.
type Envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// FailureResponse is written for every failed request.
type FailureResponse struct {
	Envelope
}

// ExtractResponse answers extract_embedding.
type ExtractResponse struct {
	Envelope
	Embedding domain.Embedding     `json:"embedding"`
	Dimension int                  `json:"dimension"`
	FaceCount int                  `json:"face_count"`
	Region    domain.Region        `json:"facial_area"`
	Quality   domain.QualityReport `json:"quality"`
	Model     string               `json:"model"`
	Detector  string               `json:"detector"`
}

// DistanceResponse answers calculate_distance.
type DistanceResponse struct {
	Envelope
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	IsMatch    bool    `json:"is_match"`
}

// MatchDTO is one ranked candidate.
type MatchDTO struct {
	Index      int             `json:"index"`
	Name       string          `json:"name"`
	Distance   float64         `json:"distance"`
	Similarity float64         `json:"similarity"`
	IsMatch    bool            `json:"is_match"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// CompareResponse answers compare_faces. BestMatch is null when nothing survived.
type CompareResponse struct {
	Envelope
	QueryEmbedding domain.Embedding     `json:"query_embedding"`
	Matches        []MatchDTO           `json:"matches"`
	BestMatch      *MatchDTO            `json:"best_match"`
	Threshold      float64              `json:"threshold"`
	ConfidenceGap  float64              `json:"confidence_gap"`
	Skipped        []int                `json:"skipped"`
	Quality        domain.QualityReport `json:"quality"`
	Model          string               `json:"model"`
	Detector       string               `json:"detector"`
}

func ok() Envelope { return Envelope{Success: true} }

func matchToDTO(m match.RankedMatch) MatchDTO {
	return MatchDTO{
		Index:      m.Index,
		Name:       m.Name,
		Distance:   m.Distance,
		Similarity: m.Similarity,
		IsMatch:    m.IsMatch,
		Metadata:   m.Metadata,
	}
}

func outcomeToDTO(o match.Outcome) (matches []MatchDTO, best *MatchDTO, skipped []int) {
	matches = make([]MatchDTO, len(o.Matches))
	for i, m := range o.Matches {
		matches[i] = matchToDTO(m)
	}
	if b, found := o.Best(); found {
		dto := matchToDTO(b)
		best = &dto
	}
	skipped = o.Skipped
	if skipped == nil {
		skipped = []int{}
	}
	return matches, best, skipped
}
