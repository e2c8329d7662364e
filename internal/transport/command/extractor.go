// Package command runs a local worker process per extraction. The worker reads a
// JSON request on stdin and writes one JSON response on stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// codeNoFace is the worker error_code for images without a detectable face.
const codeNoFace = "no_face"

// maxStderr bounds how much worker stderr ends up in error messages.
const maxStderr = 2 << 10

// Config holds the worker settings.
type Config struct {
	Command          string
	Args             []string
	Env              []string
	Model            string
	Detector         string
	EnforceDetection bool
	Timeout          time.Duration
	Logger           *zap.Logger
}

// Extractor spawns Command once per Extract call.
type Extractor struct {
	command  string
	args     []string
	env      []string
	model    string
	detector string
	enforce  bool
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExtractor creates a subprocess-backed extractor.
func NewExtractor(cfg *Config) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		command:  cfg.Command,
		args:     cfg.Args,
		env:      cfg.Env,
		model:    cfg.Model,
		detector: cfg.Detector,
		enforce:  cfg.EnforceDetection,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

type workerRequest struct {
	Image            string `json:"image"`
	Format           string `json:"format"`
	Model            string `json:"model"`
	Detector         string `json:"detector"`
	EnforceDetection bool   `json:"enforce_detection"`
}

type workerFace struct {
	Embedding  []float64     `json:"embedding"`
	FacialArea domain.Region `json:"facial_area"`
	Confidence float64       `json:"confidence"`
}

type workerResponse struct {
	Faces     []workerFace `json:"faces"`
	Error     string       `json:"error"`
	ErrorCode string       `json:"error_code"`
}

// Extract implements domain.Extractor.
func (e *Extractor) Extract(ctx context.Context, img domain.Image) (domain.ExtractionResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(workerRequest{
		Image:            img.Base64(),
		Format:           img.MIMEType(),
		Model:            e.model,
		Detector:         e.detector,
		EnforceDetection: e.enforce,
	})
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("marshal worker request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	if len(e.env) > 0 {
		cmd.Env = append(cmd.Environ(), e.env...)
	}
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.logger.Debug("Worker finished",
		zap.String("command", e.command),
		zap.Duration("duration", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Error(runErr),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ExtractionResult{}, fmt.Errorf("worker %s: %w: %w", e.command, ctxErr, domain.ErrExtractorFailure)
	}

	// A worker may report a structured error and still exit non-zero.
	var resp workerResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		if runErr != nil {
			return domain.ExtractionResult{}, fmt.Errorf("worker %s: %v: %s: %w",
				e.command, runErr, tail(stderr.String()), domain.ErrExtractorFailure)
		}
		return domain.ExtractionResult{}, fmt.Errorf("decode worker output: %v: %w", err, domain.ErrExtractorFailure)
	}

	if resp.ErrorCode == codeNoFace {
		return domain.ExtractionResult{}, fmt.Errorf("worker: %s: %w", resp.Error, domain.ErrNoFaceDetected)
	}
	if resp.Error != "" {
		return domain.ExtractionResult{}, fmt.Errorf("worker: %s: %w", resp.Error, domain.ErrExtractorFailure)
	}
	if runErr != nil {
		return domain.ExtractionResult{}, fmt.Errorf("worker %s: %v: %s: %w",
			e.command, runErr, tail(stderr.String()), domain.ErrExtractorFailure)
	}
	if len(resp.Faces) == 0 {
		return domain.ExtractionResult{}, domain.ErrNoFaceDetected
	}

	faces := make([]domain.Face, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		faces = append(faces, domain.Face{
			Embedding:  domain.EmbeddingFromFloat64(f.Embedding),
			Region:     f.FacialArea,
			Confidence: f.Confidence,
		})
	}
	return domain.ExtractionResult{Faces: faces}, nil
}

// HealthCheck verifies the worker binary resolves on PATH.
func (e *Extractor) HealthCheck(_ context.Context) error {
	if e.command == "" {
		return errors.New("worker command not configured")
	}
	if _, err := exec.LookPath(e.command); err != nil {
		return fmt.Errorf("worker %s: %w", e.command, err)
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[len(s)-maxStderr:]
	}
	return s
}
