package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
)

// Embedding is a fixed-length face descriptor produced by a model.
// Its dimension is a property of the model, never of the matching logic.
type Embedding []float32

// Dim returns the number of components.
func (e Embedding) Dim() int { return len(e) }

// Finite reports whether every component is a finite number.
func (e Embedding) Finite() bool {
	for _, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// EmbeddingFromFloat64 converts a decoded JSON vector into an Embedding.
func EmbeddingFromFloat64(v []float64) Embedding {
	out := make(Embedding, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// Extractor is the face-embedding capability contract between layers.
// Implementations return every face they detected; choosing one is the caller's job.
type Extractor interface {
	Extract(ctx context.Context, img Image) (ExtractionResult, error)
}

// HealthChecker verifies extractor backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ExtractionResult carries the faces found by a backend, in backend order.
type ExtractionResult struct {
	Faces []Face
}

// Image is a decoded picture normalised to a canonical 3-channel form.
type Image struct {
	// Format is the sniffed source format (jpeg, png, gif, webp, bmp, tiff).
	Format string
	Width  int
	Height int
	// Encoded holds the normalised image re-encoded as PNG.
	Encoded []byte
}

// MIMEType returns the media type of Encoded.
func (i Image) MIMEType() string { return "image/png" }

// Base64 returns Encoded as standard base64.
func (i Image) Base64() string { return base64.StdEncoding.EncodeToString(i.Encoded) }

// DataURL returns Encoded as a data URI.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType(), i.Base64())
}
