package domain

import "context"

type invocationKey struct{}

// Invocation collects facts about a single request for the canonical log line.
// The dispatcher puts a mutable pointer into the context; lower layers fill it in.
type Invocation struct {
	Backend           string
	FacesDetected     int
	SelectedFace      int
	Candidates        int
	CandidatesSkipped int
}

// NewContextWithInvocation returns a context with an embedded invocation collector.
func NewContextWithInvocation(ctx context.Context) (context.Context, *Invocation) {
	inv := &Invocation{SelectedFace: -1}
	return context.WithValue(ctx, invocationKey{}, inv), inv
}

// InvocationFromContext extracts the collector from context. Returns nil if not set.
func InvocationFromContext(ctx context.Context) *Invocation {
	inv, _ := ctx.Value(invocationKey{}).(*Invocation)
	return inv
}

// RecordFaces records how many faces the backend reported and which one was kept.
func (i *Invocation) RecordFaces(backend string, detected, selected int) {
	if i != nil {
		i.Backend = backend
		i.FacesDetected = detected
		i.SelectedFace = selected
	}
}

// RecordCandidates records the size of a comparison set and how many were dropped.
func (i *Invocation) RecordCandidates(total, skipped int) {
	if i != nil {
		i.Candidates = total
		i.CandidatesSkipped = skipped
	}
}
