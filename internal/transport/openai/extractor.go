package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// Extractor is a face-embedding backend served through an OpenAI-compatible
// /embeddings endpoint that accepts image data URIs as input. Such servers embed
// one aligned face per image and report no geometry.
type Extractor struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	logger     *zap.Logger
}

// Config holds the embedding server settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Logger     *zap.Logger
}

// NewExtractor creates an OpenAI-compatible face-embedding backend.
func NewExtractor(cfg *Config) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		logger:     logger,
	}
}

// Extract implements domain.Extractor. The single returned vector is treated as the only face.
func (e *Extractor) Extract(ctx context.Context, img domain.Image) (domain.ExtractionResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{img.DataURL()},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return domain.ExtractionResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrNoFaceDetected)
	}

	e.logger.Debug("Image embedding completed",
		zap.String("model", string(e.model)),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return domain.ExtractionResult{Faces: []domain.Face{{
		Embedding:  domain.Embedding(resp.Data[0].Embedding),
		Region:     domain.Region{W: img.Width, H: img.Height},
		Confidence: 1,
	}}}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Errors mentioning a missing face map to domain.ErrNoFaceDetected,
// everything else to domain.ErrExtractorFailure.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return classify(reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrExtractorFailure)
}

func classify(status int, detail string) error {
	if strings.Contains(strings.ToLower(detail), "no face") ||
		strings.Contains(strings.ToLower(detail), "face could not be detected") {
		return fmt.Errorf("embedding API error %d: %s: %w", status, detail, domain.ErrNoFaceDetected)
	}
	return fmt.Errorf("embedding API error %d: %s: %w", status, detail, domain.ErrExtractorFailure)
}

// extractDetail extracts the "detail" field from a JSON error body (FastAPI error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
