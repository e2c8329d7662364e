// Package deepface talks to a DeepFace REST server (deepface/api) over HTTP.
package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// noFaceMarker is the substring DeepFace puts in errors raised by enforce_detection.
const noFaceMarker = "face could not be detected"

// maxErrorBody bounds how much of an error response is read into messages.
const maxErrorBody = 4 << 10

// Config holds the DeepFace server settings.
type Config struct {
	BaseURL          string
	Model            string
	Detector         string
	EnforceDetection bool
	Align            bool
	Timeout          time.Duration
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

// Extractor calls POST /represent.
type Extractor struct {
	baseURL  string
	model    string
	detector string
	enforce  bool
	align    bool
	client   *http.Client
	logger   *zap.Logger
}

// NewExtractor creates a DeepFace-backed extractor.
func NewExtractor(cfg *Config) *Extractor {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		detector: cfg.Detector,
		enforce:  cfg.EnforceDetection,
		align:    cfg.Align,
		client:   client,
		logger:   logger,
	}
}

type representRequest struct {
	Img              string `json:"img"`
	ModelName        string `json:"model_name"`
	DetectorBackend  string `json:"detector_backend"`
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

type facialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type representResult struct {
	Embedding      []float32  `json:"embedding"`
	FaceEmbedding  []float32  `json:"face_embedding"`
	FacialArea     facialArea `json:"facial_area"`
	FaceConfidence float64    `json:"face_confidence"`
}

type representResponse struct {
	Results []representResult `json:"results"`
	Error   string            `json:"error"`
}

// Extract implements domain.Extractor.
func (e *Extractor) Extract(ctx context.Context, img domain.Image) (domain.ExtractionResult, error) {
	body, err := json.Marshal(representRequest{
		Img:              img.DataURL(),
		ModelName:        e.model,
		DetectorBackend:  e.detector,
		EnforceDetection: e.enforce,
		Align:            e.align,
	})
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("marshal represent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/represent", bytes.NewReader(body))
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("build represent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("deepface request failed: %v: %w", err, domain.ErrExtractorFailure)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.ExtractionResult{}, parseAPIError(resp)
	}

	var parsed representResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("decode represent response: %v: %w", err, domain.ErrExtractorFailure)
	}

	faces := make([]domain.Face, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		vec := r.Embedding
		if len(vec) == 0 {
			vec = r.FaceEmbedding
		}
		if len(vec) == 0 {
			continue
		}
		faces = append(faces, domain.Face{
			Embedding:  domain.Embedding(vec),
			Region:     domain.Region{X: r.FacialArea.X, Y: r.FacialArea.Y, W: r.FacialArea.W, H: r.FacialArea.H},
			Confidence: r.FaceConfidence,
		})
	}
	e.logger.Debug("DeepFace represent completed",
		zap.String("model", e.model),
		zap.String("detector", e.detector),
		zap.Int("results", len(parsed.Results)),
		zap.Int("faces", len(faces)),
	)
	if len(faces) == 0 {
		return domain.ExtractionResult{}, domain.ErrNoFaceDetected
	}

	return domain.ExtractionResult{Faces: faces}, nil
}

// HealthCheck verifies the server answers on its root route.
func (e *Extractor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("deepface health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("deepface health: status %d", resp.StatusCode)
	}
	return nil
}

// parseAPIError maps a non-200 response. Detection failures become
// domain.ErrNoFaceDetected, everything else domain.ErrExtractorFailure.
func parseAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(raw))
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		detail = parsed.Error
	}

	if strings.Contains(strings.ToLower(detail), noFaceMarker) {
		return fmt.Errorf("deepface: %s: %w", detail, domain.ErrNoFaceDetected)
	}
	return fmt.Errorf("deepface API error %d: %s: %w", resp.StatusCode, detail, domain.ErrExtractorFailure)
}
