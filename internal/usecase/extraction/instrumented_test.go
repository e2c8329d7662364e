package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/metrics"
)

func TestInstrumentedExtractor_Success(t *testing.T) {
	inner := &mockExtractor{result: domain.ExtractionResult{Faces: []domain.Face{faceOf(4, 10, 10, 1)}}}
	ext := NewInstrumentedExtractor(inner, "test-ok", "m", zap.NewNop())

	before := testutil.ToFloat64(metrics.ExtractorRequestsTotal.WithLabelValues("test-ok", "m", "success"))
	res, err := ext.Extract(context.Background(), domain.Image{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(res.Faces))
	}
	after := testutil.ToFloat64(metrics.ExtractorRequestsTotal.WithLabelValues("test-ok", "m", "success"))
	if after-before != 1 {
		t.Errorf("expected success counter +1, got %f", after-before)
	}
}

func TestInstrumentedExtractor_NoFaceIsNotAnError(t *testing.T) {
	inner := &mockExtractor{err: domain.ErrNoFaceDetected}
	ext := NewInstrumentedExtractor(inner, "test-noface", "m", zap.NewNop())

	_, err := ext.Extract(context.Background(), domain.Image{})
	if !errors.Is(err, domain.ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
	if v := testutil.ToFloat64(metrics.ExtractorRequestsTotal.WithLabelValues("test-noface", "m", "no_face")); v != 1 {
		t.Errorf("expected no_face counter 1, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ExtractorErrorsTotal.WithLabelValues("test-noface", "m", "no_face")); v != 0 {
		t.Errorf("no_face must not count as an error, got %f", v)
	}
}

func TestInstrumentedExtractor_BackendError(t *testing.T) {
	inner := &mockExtractor{err: fmt.Errorf("boom: %w", domain.ErrExtractorFailure)}
	ext := NewInstrumentedExtractor(inner, "test-err", "m", zap.NewNop())

	_, err := ext.Extract(context.Background(), domain.Image{})
	if !errors.Is(err, domain.ErrExtractorFailure) {
		t.Fatalf("expected ErrExtractorFailure, got %v", err)
	}
	if v := testutil.ToFloat64(metrics.ExtractorErrorsTotal.WithLabelValues("test-err", "m", "backend_error")); v != 1 {
		t.Errorf("expected backend_error counter 1, got %f", v)
	}
}

func TestInstrumentedExtractor_HealthCheck(t *testing.T) {
	inner := &mockExtractor{healthErr: errors.New("down")}
	ext := NewInstrumentedExtractor(inner, "deepface", "m", zap.NewNop())
	if err := ext.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error")
	}

	inner.healthErr = nil
	if err := ext.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorType(t *testing.T) {
	tests := map[error]string{
		domain.ErrNoFaceDetected:   "no_face",
		domain.ErrInvalidImageData: "invalid_image",
		context.DeadlineExceeded:   "timeout",
		context.Canceled:           "canceled",
		errors.New("x"):            "backend_error",
	}
	for err, want := range tests {
		if got := errorType(fmt.Errorf("wrap: %w", err)); got != want {
			t.Errorf("errorType(%v) = %q, want %q", err, got, want)
		}
	}
}
