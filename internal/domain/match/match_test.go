package match

import "testing"

func TestNewDistanceResult_SimilarityDerived(t *testing.T) {
	for _, d := range []float64{0, 0.1, 0.2999, 0.3, 0.75, 1, 1.5, 2} {
		r := NewDistanceResult(d, 0.3)
		if r.Similarity != 1.0-r.Distance {
			t.Errorf("distance %v: similarity %v is not 1-distance", d, r.Similarity)
		}
	}
}

func TestIsMatch_BoundaryInclusive(t *testing.T) {
	tests := []struct {
		distance float64
		want     bool
	}{
		{0, true},
		{0.3, true},
		{0.30000001, false},
		{1, false},
	}
	for _, tc := range tests {
		if got := IsMatch(tc.distance, 0.3); got != tc.want {
			t.Errorf("IsMatch(%v, 0.3) = %v, want %v", tc.distance, got, tc.want)
		}
	}
}

func TestOutcome_BestEmpty(t *testing.T) {
	var o Outcome
	if _, ok := o.Best(); ok {
		t.Fatal("expected no best match for empty outcome")
	}
	if gap := o.ConfidenceGap(); gap != 0 {
		t.Errorf("expected gap 0, got %v", gap)
	}
}

func TestOutcome_ConfidenceGap(t *testing.T) {
	o := Outcome{Matches: []RankedMatch{
		{DistanceResult: NewDistanceResult(0.1, 0.3), Index: 2, Name: "b"},
		{DistanceResult: NewDistanceResult(0.4, 0.3), Index: 0, Name: "a"},
	}}

	best, ok := o.Best()
	if !ok || best.Name != "b" {
		t.Fatalf("expected best match b, got %+v", best)
	}

	gap := o.ConfidenceGap()
	want := o.Matches[0].Similarity - o.Matches[1].Similarity
	if gap != want {
		t.Errorf("gap = %v, want %v", gap, want)
	}

	single := Outcome{Matches: o.Matches[:1]}
	if single.ConfidenceGap() != single.Matches[0].Similarity {
		t.Error("single match gap should equal its similarity")
	}
}
