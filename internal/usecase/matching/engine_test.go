package matching

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facematch/internal/domain"
	"github.com/kailas-cloud/facematch/internal/domain/match"
)

const tol = 1e-6

func newEngine() *Engine {
	return New(domain.DefaultMatchConfig(), zap.NewNop())
}

func randomEmbedding(r *rand.Rand, dim int) domain.Embedding {
	e := make(domain.Embedding, dim)
	for i := range e {
		e[i] = float32(r.NormFloat64())
	}
	return e
}

func TestDistance_Identical(t *testing.T) {
	res, err := newEngine().Compare(domain.Embedding{1, 0, 0}, domain.Embedding{1, 0, 0})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res.Distance, tol)
	assert.InDelta(t, 1.0, res.Similarity, tol)
	assert.True(t, res.IsMatch)
}

func TestDistance_Orthogonal(t *testing.T) {
	res, err := newEngine().Compare(domain.Embedding{1, 0, 0}, domain.Embedding{0, 1, 0})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Distance, tol)
	assert.InDelta(t, 0.0, res.Similarity, tol)
	assert.False(t, res.IsMatch)
}

func TestDistance_Opposite(t *testing.T) {
	d, err := newEngine().Distance(domain.Embedding{1, 2}, domain.Embedding{-1, -2})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d, tol)
}

func TestDistance_MagnitudeInvariant(t *testing.T) {
	d, err := newEngine().Distance(domain.Embedding{1, 0}, domain.Embedding{2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, tol)
}

func TestDistance_DimensionMismatch(t *testing.T) {
	_, err := newEngine().Distance(domain.Embedding{1, 0, 0}, domain.Embedding{1, 0})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)

	var dm *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Want)
	assert.Equal(t, 2, dm.Got)
}

func TestDistance_NonFiniteFallsBack(t *testing.T) {
	e := newEngine()

	nan := domain.Embedding{float32(math.NaN()), 1}
	d, err := e.Distance(nan, domain.Embedding{1, 1})
	require.NoError(t, err)
	assert.Equal(t, DegenerateDistance, d)

	inf := domain.Embedding{float32(math.Inf(1)), 0}
	d, err = e.Distance(domain.Embedding{1, 0}, inf)
	require.NoError(t, err)
	assert.Equal(t, DegenerateDistance, d)
}

func TestDistance_ZeroVector(t *testing.T) {
	d, err := newEngine().Distance(domain.Embedding{0, 0, 0}, domain.Embedding{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestDistance_SymmetricAndSelf(t *testing.T) {
	e := newEngine()
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		a := randomEmbedding(r, 512)
		b := randomEmbedding(r, 512)

		ab, err := e.Distance(a, b)
		require.NoError(t, err)
		ba, err := e.Distance(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba, "distance must be symmetric")

		aa, err := e.Distance(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, aa, tol)

		res, err := e.Compare(a, b)
		require.NoError(t, err)
		assert.Equal(t, 1.0-res.Distance, res.Similarity)
	}
}

func TestDistance_Deterministic(t *testing.T) {
	e := newEngine()
	a := domain.Embedding{0.3, -0.2, 0.9, 0.01}
	b := domain.Embedding{0.1, 0.4, -0.5, 0.7}

	first, err := e.Distance(a, b)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.Distance(a, b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompare_UsesConfiguredThreshold(t *testing.T) {
	cfg := domain.DefaultMatchConfig()
	cfg.Threshold = 0.05
	e := New(cfg, nil)

	// cos = 0.9 -> distance 0.1, a match at 0.30 but not at 0.05.
	res, err := e.Compare(domain.Embedding{1, 0}, domain.Embedding{0.9, float32(math.Sqrt(1 - 0.81))})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.Distance, 1e-5)
	assert.False(t, res.IsMatch)
	assert.Equal(t, 0.05, e.Threshold())
}

func TestRank_SortedDescending(t *testing.T) {
	e := newEngine()
	query := domain.Embedding{1, 0}
	candidates := []match.Candidate{
		{Name: "far", Embedding: domain.Embedding{0, 1}},
		{Name: "close", Embedding: domain.Embedding{1, 0.1}},
		{Name: "opposite", Embedding: domain.Embedding{-1, 0}},
		{Name: "mid", Embedding: domain.Embedding{1, 1}},
	}

	out := e.Rank(context.Background(), query, candidates)
	require.Len(t, out.Matches, 4)

	names := make([]string, 0, len(out.Matches))
	for i, m := range out.Matches {
		names = append(names, m.Name)
		if i > 0 {
			assert.GreaterOrEqual(t, out.Matches[i-1].Similarity, m.Similarity)
		}
	}
	assert.Equal(t, []string{"close", "mid", "far", "opposite"}, names)

	best, ok := out.Best()
	require.True(t, ok)
	assert.Equal(t, "close", best.Name)
	assert.Equal(t, 1, best.Index)
	assert.True(t, best.IsMatch)
}

func TestRank_StableOnTies(t *testing.T) {
	e := newEngine()
	query := domain.Embedding{1, 0}
	candidates := []match.Candidate{
		{Name: "a", Embedding: domain.Embedding{0, 1}},
		{Name: "b", Embedding: domain.Embedding{1, 0}},
		{Name: "c", Embedding: domain.Embedding{0, 1}},
		{Name: "d", Embedding: domain.Embedding{1, 0}},
	}

	out := e.Rank(context.Background(), query, candidates)
	require.Len(t, out.Matches, 4)

	indexes := []int{out.Matches[0].Index, out.Matches[1].Index, out.Matches[2].Index, out.Matches[3].Index}
	assert.Equal(t, []int{1, 3, 0, 2}, indexes)
}

func TestRank_Empty(t *testing.T) {
	out := newEngine().Rank(context.Background(), domain.Embedding{1, 0}, nil)

	assert.Empty(t, out.Matches)
	assert.NotNil(t, out.Matches)
	_, ok := out.Best()
	assert.False(t, ok)
}

func TestRank_SkipsFailedCandidate(t *testing.T) {
	e := newEngine()
	ctx, inv := domain.NewContextWithInvocation(context.Background())

	candidates := []match.Candidate{
		{Name: "one", Embedding: domain.Embedding{1, 0, 0}},
		{Name: "two", Embedding: domain.Embedding{1, 0}},
		{Name: "three", Embedding: domain.Embedding{0, 1, 0}},
	}

	out := e.Rank(ctx, domain.Embedding{1, 0, 0}, candidates)
	require.Len(t, out.Matches, 2)
	assert.Equal(t, []int{1}, out.Skipped)
	assert.Equal(t, 0, out.Matches[0].Index)
	assert.Equal(t, 2, out.Matches[1].Index)

	best, ok := out.Best()
	require.True(t, ok)
	assert.Equal(t, "one", best.Name)

	assert.Equal(t, 3, inv.Candidates)
	assert.Equal(t, 1, inv.CandidatesSkipped)
}

func TestRank_DegenerateCandidateStaysRanked(t *testing.T) {
	e := newEngine()
	candidates := []match.Candidate{
		{Name: "nan", Embedding: domain.Embedding{float32(math.NaN()), 0}},
		{Name: "ok", Embedding: domain.Embedding{1, 0}},
	}

	out := e.Rank(context.Background(), domain.Embedding{1, 0}, candidates)
	require.Len(t, out.Matches, 2)
	assert.Equal(t, "ok", out.Matches[0].Name)
	assert.Equal(t, "nan", out.Matches[1].Name)
	assert.Equal(t, DegenerateDistance, out.Matches[1].Distance)
	assert.False(t, out.Matches[1].IsMatch)
}

func TestRank_MetadataPassthrough(t *testing.T) {
	meta := []byte(`{"employee_id":42}`)
	out := newEngine().Rank(context.Background(), domain.Embedding{1, 0}, []match.Candidate{
		{Name: "x", Embedding: domain.Embedding{1, 0}, Metadata: meta},
	})
	require.Len(t, out.Matches, 1)
	assert.JSONEq(t, string(meta), string(out.Matches[0].Metadata))
}
