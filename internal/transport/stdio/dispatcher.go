// Package stdio is the single-shot request dispatcher: one JSON request in,
// exactly one JSON response out.
package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/domain/match"
	logpkg "github.com/kailas-cloud/facematch/internal/logger"
	"github.com/kailas-cloud/facematch/internal/metrics"
	"github.com/kailas-cloud/facematch/internal/usecase/extraction"
	"github.com/kailas-cloud/facematch/internal/usecase/matching"
)

// MaxRequestBytes caps how much of the input stream is read.
const MaxRequestBytes = 64 << 20

// Caller-facing messages for a missing face, per operation.
var noFaceMessages = map[string]string{
	OpExtractEmbedding: "No face detected or embedding extraction failed",
	OpCompareFaces:     "No face detected in query image",
}

// Extractor turns an encoded image payload into one embedding.
type Extractor interface {
	Extract(ctx context.Context, payload string) (extraction.Result, error)
}

type handlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

// Dispatcher routes requests by operation name.
type Dispatcher struct {
	extractor Extractor
	engine    *matching.Engine
	cfg       domain.MatchConfig
	logger    *zap.Logger
	handlers  map[string]handlerFunc
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(extractor Extractor, engine *matching.Engine, cfg domain.MatchConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		extractor: extractor,
		engine:    engine,
		cfg:       cfg,
		logger:    logger,
	}
	d.handlers = map[string]handlerFunc{
		OpExtractEmbedding:  d.extractEmbedding,
		OpCalculateDistance: d.calculateDistance,
		OpCompareFaces:      d.compareFaces,
	}
	return d
}

// Serve reads one request from r and writes one response line to w.
// The returned error is non-nil only when the response could not be written.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(io.LimitReader(r, MaxRequestBytes))
	var resp any
	if err != nil {
		resp = Failure(fmt.Errorf("%w: read input: %v", domain.ErrInvalidRequest, err))
	} else {
		resp = d.Dispatch(ctx, raw)
	}
	return WriteResponse(w, resp)
}

// Dispatch handles one raw request and always returns a response value.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) any {
	start := time.Now()
	ctx, requestID := logpkg.NewRequestContext(ctx, d.logger)
	ctx, inv := domain.NewContextWithInvocation(ctx)
	log := logpkg.FromContext(ctx)

	opType := "unknown"
	resp, err := func() (resp any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Recovered from panic",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				resp, err = nil, fmt.Errorf("%w: %v", domain.ErrUnhandledFault, rec)
			}
		}()

		req, err := parseRequest(raw)
		if err != nil {
			return nil, err
		}
		h, found := d.handlers[req.Type]
		if !found {
			return nil, &domain.UnknownOperationError{Type: req.Type}
		}
		opType = req.Type
		return h(ctx, req.Data)
	}()

	status, code := "ok", ""
	if err != nil {
		failure := Failure(err)
		if errors.Is(err, domain.ErrNoFaceDetected) {
			if msg, found := noFaceMessages[opType]; found {
				failure.Error = msg
			}
		}
		status, code = "error", failure.ErrorCode
		resp = failure
	}

	elapsed := time.Since(start)
	metrics.RequestsTotal.WithLabelValues(opType, status).Inc()
	metrics.RequestDuration.WithLabelValues(opType).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("type", opType),
		zap.Bool("success", err == nil),
		zap.Duration("latency", elapsed),
	}
	if inv.Backend != "" {
		fields = append(fields,
			zap.String("backend", inv.Backend),
			zap.Int("faces_detected", inv.FacesDetected),
			zap.Int("selected_face", inv.SelectedFace),
		)
	}
	if inv.Candidates > 0 {
		fields = append(fields,
			zap.Int("candidates", inv.Candidates),
			zap.Int("candidates_skipped", inv.CandidatesSkipped),
		)
	}
	switch {
	case err == nil:
		d.logger.Info("Request handled", fields...)
	case code == CodeInternalError:
		d.logger.Error("Request failed", append(fields, zap.String("error_code", code), zap.Error(err))...)
	default:
		d.logger.Warn("Request failed", append(fields, zap.String("error_code", code), zap.Error(err))...)
	}

	return resp
}

// WriteResponse encodes v as one JSON line.
func WriteResponse(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(Failure(fmt.Errorf("%w: encode response: %v", domain.ErrUnhandledFault, err)))
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func parseRequest(raw []byte) (Request, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Request{}, fmt.Errorf("%w: empty request", domain.ErrInvalidRequest)
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("%w: malformed JSON: %v", domain.ErrInvalidRequest, err)
	}
	if req.Type == "" {
		return Request{}, fmt.Errorf("%w: missing field: type", domain.ErrInvalidRequest)
	}
	return req, nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: missing field: data", domain.ErrInvalidRequest)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed data: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing field: %s", domain.ErrInvalidRequest, field)
}

func requireVector(field string, v vector) (domain.Embedding, error) {
	if len(v) == 0 {
		return nil, missing(field)
	}
	e, valid := v.embedding()
	if !valid {
		return nil, fmt.Errorf("%w: invalid vector component in %s", domain.ErrInvalidRequest, field)
	}
	return e, nil
}

func (d *Dispatcher) extractEmbedding(ctx context.Context, data json.RawMessage) (any, error) {
	var in extractData
	if err := decodeData(data, &in); err != nil {
		return nil, err
	}
	if in.Image == nil || *in.Image == "" {
		return nil, missing("image")
	}

	res, err := d.extractor.Extract(ctx, *in.Image)
	if err != nil {
		return nil, err
	}

	return ExtractResponse{
		Envelope:  ok(),
		Embedding: res.Embedding,
		Dimension: res.Embedding.Dim(),
		FaceCount: res.FacesDetected,
		Region:    res.Face.Region,
		Quality:   res.Quality,
		Model:     d.cfg.Model,
		Detector:  d.cfg.Detector,
	}, nil
}

func (d *Dispatcher) calculateDistance(_ context.Context, data json.RawMessage) (any, error) {
	var in distanceData
	if err := decodeData(data, &in); err != nil {
		return nil, err
	}
	e1, err := requireVector("embedding1", in.Embedding1)
	if err != nil {
		return nil, err
	}
	e2, err := requireVector("embedding2", in.Embedding2)
	if err != nil {
		return nil, err
	}

	res, err := d.engine.Compare(e1, e2)
	if err != nil {
		return nil, err
	}

	return DistanceResponse{
		Envelope:   ok(),
		Distance:   res.Distance,
		Similarity: res.Similarity,
		Threshold:  d.engine.Threshold(),
		IsMatch:    res.IsMatch,
	}, nil
}

func (d *Dispatcher) compareFaces(ctx context.Context, data json.RawMessage) (any, error) {
	var in compareData
	if err := decodeData(data, &in); err != nil {
		return nil, err
	}
	if in.Image == nil || *in.Image == "" {
		return nil, missing("image")
	}
	if in.Embeddings == nil {
		return nil, missing("embeddings")
	}

	candidates := d.candidates(ctx, in.Embeddings)

	res, err := d.extractor.Extract(ctx, *in.Image)
	if err != nil {
		return nil, err
	}

	outcome := d.engine.Rank(ctx, res.Embedding, candidates)
	matches, best, skipped := outcomeToDTO(outcome)

	return CompareResponse{
		Envelope:       ok(),
		QueryEmbedding: res.Embedding,
		Matches:        matches,
		BestMatch:      best,
		Threshold:      d.engine.Threshold(),
		ConfidenceGap:  outcome.ConfidenceGap(),
		Skipped:        skipped,
		Quality:        res.Quality,
		Model:          d.cfg.Model,
		Detector:       d.cfg.Detector,
	}, nil
}

// candidates decodes each entry on its own. A malformed entry keeps its position
// with no embedding, so ranking skips it instead of failing the request.
func (d *Dispatcher) candidates(ctx context.Context, raw []json.RawMessage) []match.Candidate {
	log := logpkg.FromContext(ctx)
	out := make([]match.Candidate, len(raw))
	for i, item := range raw {
		out[i] = match.Candidate{Name: fmt.Sprintf("User_%d", i)}

		var c candidateData
		if err := json.Unmarshal(item, &c); err != nil {
			log.Warn("Malformed candidate", zap.Int("index", i), zap.Error(err))
			continue
		}
		if c.Name != "" {
			out[i].Name = c.Name
		}
		out[i].Metadata = c.Metadata

		emb, valid := c.Embedding.embedding()
		if !valid {
			log.Warn("Malformed candidate", zap.Int("index", i), zap.String("reason", "null vector component"))
			continue
		}
		if len(emb) > 0 {
			out[i].Embedding = emb
		}
	}
	return out
}
