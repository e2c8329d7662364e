package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewPusher_EmptyURLIsNoop(t *testing.T) {
	p := NewPusher("", "facematch", nil)
	if p != nil {
		t.Fatal("expected nil pusher for empty url")
	}
	if err := p.Push(context.Background()); err != nil {
		t.Errorf("nil pusher should not fail, got %v", err)
	}
}

func TestPusher_Push(t *testing.T) {
	Register()
	RequestsTotal.WithLabelValues("calculate_distance", "success").Inc()

	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		gotBody = buf.String()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	p := NewPusher(server.URL, "facematch", map[string]string{"instance": "host-1"})
	if err := p.Push(context.Background()); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotPath != "/metrics/job/facematch/instance/host-1" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody == "" {
		t.Error("expected a non-empty metrics body")
	}
}

func TestPusher_PushError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	Register()
	p := NewPusher(server.URL, "facematch", nil)
	if err := p.Push(context.Background()); err == nil {
		t.Fatal("expected error from failing gateway")
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	MatchDecisionsTotal.WithLabelValues(MatchDecision(true)).Inc()
	if v := testutil.ToFloat64(MatchDecisionsTotal.WithLabelValues("match")); v < 1 {
		t.Errorf("expected match decisions >= 1, got %f", v)
	}
}

func TestMatchDecision(t *testing.T) {
	if MatchDecision(true) != "match" || MatchDecision(false) != "no_match" {
		t.Error("unexpected decision labels")
	}
}

func TestPusher_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/-/healthy" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewPusher(server.URL+"/", "facematch", nil).HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := NewPusher(down.URL, "facematch", nil).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error from unhealthy gateway")
	}
}
