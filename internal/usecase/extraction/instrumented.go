package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/metrics"
)

// InstrumentedExtractor wraps an Extractor with metrics and logging.
// Transports stay free of observability; this layer owns it.
type InstrumentedExtractor struct {
	inner   domain.Extractor
	backend string
	model   string
	logger  *zap.Logger
}

// NewInstrumentedExtractor wraps an extractor with observability.
func NewInstrumentedExtractor(inner domain.Extractor, backend, model string, logger *zap.Logger) *InstrumentedExtractor {
	return &InstrumentedExtractor{
		inner:   inner,
		backend: backend,
		model:   model,
		logger:  logger,
	}
}

// Extract delegates to the inner extractor and records the call.
func (p *InstrumentedExtractor) Extract(ctx context.Context, img domain.Image) (domain.ExtractionResult, error) {
	start := time.Now()

	result, err := p.inner.Extract(ctx, img)

	duration := time.Since(start)
	metrics.ExtractorRequestDuration.WithLabelValues(p.backend, p.model).Observe(duration.Seconds())

	if err != nil {
		errType := errorType(err)
		if errType == "no_face" {
			// Expected outcome, not a backend fault.
			metrics.ExtractorRequestsTotal.WithLabelValues(p.backend, p.model, "no_face").Inc()
			metrics.FacesDetected.Observe(0)
			p.logger.Info("No face detected",
				zap.String("backend", p.backend),
				zap.String("model", p.model),
				zap.Duration("duration", duration),
			)
		} else {
			metrics.ExtractorRequestsTotal.WithLabelValues(p.backend, p.model, "error").Inc()
			metrics.ExtractorErrorsTotal.WithLabelValues(p.backend, p.model, errType).Inc()
			p.logger.Error("Extraction request failed",
				zap.String("backend", p.backend),
				zap.String("model", p.model),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		}
		return domain.ExtractionResult{}, fmt.Errorf("extract: %w", err)
	}

	metrics.ExtractorRequestsTotal.WithLabelValues(p.backend, p.model, "success").Inc()
	metrics.FacesDetected.Observe(float64(len(result.Faces)))

	p.logger.Debug("Extraction request completed",
		zap.String("backend", p.backend),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("faces", len(result.Faces)),
		zap.Int("image_width", img.Width),
		zap.Int("image_height", img.Height),
	)

	return result, nil
}

// HealthCheck forwards to the inner extractor when it supports health checks.
func (p *InstrumentedExtractor) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check: %w", p.backend, err)
		}
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, domain.ErrInvalidImageData):
		return "invalid_image"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "backend_error"
	}
}
