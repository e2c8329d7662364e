package matching

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/domain/match"
	logpkg "github.com/kailas-cloud/facematch/internal/logger"
	"github.com/kailas-cloud/facematch/internal/metrics"
)

// DegenerateDistance is reported when a comparison cannot be computed from finite numbers.
const DegenerateDistance = 1.0

// Engine computes normalized cosine distances and ranks candidates.
// It is stateless apart from the immutable MatchConfig it was built with.
type Engine struct {
	cfg    domain.MatchConfig
	logger *zap.Logger
}

// New creates an engine bound to cfg.
func New(cfg domain.MatchConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Threshold returns the configured match threshold.
func (e *Engine) Threshold() float64 { return e.cfg.Threshold }

// Distance returns 1 - cos(a, b) after L2-normalizing both vectors.
// Mismatched dimensions are an error; non-finite arithmetic yields DegenerateDistance.
func (e *Engine) Distance(a, b domain.Embedding) (float64, error) {
	if a.Dim() != b.Dim() {
		return 0, domain.NewDimensionMismatch(a.Dim(), b.Dim())
	}

	d, ok := cosineDistance(a, b, e.cfg.Epsilon)
	if !ok {
		metrics.DegenerateComparisonsTotal.Inc()
		e.logger.Warn("Degenerate comparison, reporting maximal distance",
			zap.Int("dimension", a.Dim()),
			zap.Bool("query_finite", a.Finite()),
			zap.Bool("candidate_finite", b.Finite()),
		)
		return DegenerateDistance, nil
	}
	return d, nil
}

// Compare computes the distance and the match decision against the configured threshold.
func (e *Engine) Compare(a, b domain.Embedding) (match.DistanceResult, error) {
	d, err := e.Distance(a, b)
	if err != nil {
		return match.DistanceResult{}, err
	}
	res := match.NewDistanceResult(d, e.cfg.Threshold)
	metrics.MatchDecisionsTotal.WithLabelValues(metrics.MatchDecision(res.IsMatch)).Inc()
	return res, nil
}

// Rank compares query with every candidate and orders the survivors by similarity,
// best first. A candidate whose comparison fails is dropped and reported in
// Outcome.Skipped; it never aborts the rest of the set. Equal similarities keep
// input order.
func (e *Engine) Rank(ctx context.Context, query domain.Embedding, candidates []match.Candidate) match.Outcome {
	log := logpkg.FromContext(ctx)

	matches := make([]match.RankedMatch, 0, len(candidates))
	var skipped []int

	for i, c := range candidates {
		res, err := e.Compare(query, c.Embedding)
		if err != nil {
			metrics.CandidatesTotal.WithLabelValues("skipped").Inc()
			log.Warn("Skipping candidate",
				zap.Int("index", i),
				zap.String("name", c.Name),
				zap.Error(err),
			)
			skipped = append(skipped, i)
			continue
		}
		metrics.CandidatesTotal.WithLabelValues("compared").Inc()
		matches = append(matches, match.RankedMatch{
			DistanceResult: res,
			Index:          i,
			Name:           c.Name,
			Metadata:       c.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	domain.InvocationFromContext(ctx).RecordCandidates(len(candidates), len(skipped))

	return match.Outcome{Matches: matches, Skipped: skipped}
}

// cosineDistance normalizes each vector by (norm + eps) and returns 1 - dot.
// ok is false when the result is not a finite number.
func cosineDistance(a, b domain.Embedding, eps float64) (float64, bool) {
	na := norm(a) + eps
	nb := norm(b) + eps

	var dot float64
	for i := range a {
		dot += (float64(a[i]) / na) * (float64(b[i]) / nb)
	}

	d := 1.0 - dot
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

func norm(v domain.Embedding) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}
