package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/imaging"
	logpkg "github.com/kailas-cloud/facematch/internal/logger"
)

// Result is one selected face embedding plus what was learned about the input.
type Result struct {
	Embedding     domain.Embedding
	Face          domain.Face
	FaceIndex     int
	FacesDetected int
	Quality       domain.QualityReport
	Format        string
	Width         int
	Height        int
}

// Config holds extraction settings.
type Config struct {
	Backend    string
	Policy     domain.SelectionPolicy
	Dimensions int
	// MinQuality rejects images scoring below it; 0 disables the gate.
	MinQuality float64
}

// Service turns an encoded image payload into exactly one embedding.
type Service struct {
	decoder   *imaging.Decoder
	extractor domain.Extractor
	cfg       Config
}

// New creates an extraction service.
func New(decoder *imaging.Decoder, extractor domain.Extractor, cfg Config) *Service {
	if cfg.Policy == "" {
		cfg.Policy = domain.DefaultSelectionPolicy
	}
	return &Service{decoder: decoder, extractor: extractor, cfg: cfg}
}

// Extract decodes payload, checks quality, calls the backend and selects one face.
//
// Outcomes stay distinguishable: domain.ErrInvalidImageData for undecodable input,
// domain.ErrImageQuality for gated images, domain.ErrNoFaceDetected when the backend
// found nothing, domain.ErrExtractorFailure for backend faults or unusable vectors.
func (s *Service) Extract(ctx context.Context, payload string) (Result, error) {
	log := logpkg.FromContext(ctx)

	pic, err := s.decoder.Decode(payload)
	if err != nil {
		return Result{}, err
	}

	quality := imaging.Quality(pic.RGBA)
	if s.cfg.MinQuality > 0 && quality.Score < s.cfg.MinQuality {
		return Result{}, &domain.QualityError{Report: quality, Min: s.cfg.MinQuality}
	}

	img, err := pic.Normalize()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrInvalidImageData, err)
	}

	extracted, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return Result{}, err
	}

	face, idx, ok := s.cfg.Policy.Select(extracted.Faces)
	if !ok {
		return Result{}, domain.ErrNoFaceDetected
	}
	domain.InvocationFromContext(ctx).RecordFaces(s.cfg.Backend, len(extracted.Faces), idx)

	if len(extracted.Faces) > 1 {
		log.Info("Multiple faces detected, selected one",
			zap.Int("faces", len(extracted.Faces)),
			zap.Int("selected", idx),
			zap.String("policy", string(s.cfg.Policy)),
		)
	}

	if err := s.validate(face.Embedding); err != nil {
		return Result{}, err
	}

	return Result{
		Embedding:     face.Embedding,
		Face:          face,
		FaceIndex:     idx,
		FacesDetected: len(extracted.Faces),
		Quality:       quality,
		Format:        img.Format,
		Width:         img.Width,
		Height:        img.Height,
	}, nil
}

// HealthCheck probes the backend when it supports it.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.extractor.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *Service) validate(e domain.Embedding) error {
	if e.Dim() == 0 {
		return fmt.Errorf("%w: backend returned an empty embedding", domain.ErrExtractorFailure)
	}
	if s.cfg.Dimensions > 0 && e.Dim() != s.cfg.Dimensions {
		return fmt.Errorf("%w: %w", domain.ErrExtractorFailure, domain.NewDimensionMismatch(s.cfg.Dimensions, e.Dim()))
	}
	if !e.Finite() {
		return fmt.Errorf("%w: backend returned non-finite values", domain.ErrExtractorFailure)
	}
	return nil
}
