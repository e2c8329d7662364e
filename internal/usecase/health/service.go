package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check is one component outcome.
type Check struct {
	Status  CheckResult `json:"status"`
	Error   string      `json:"error,omitempty"`
	Latency string      `json:"latency"`
}

// Report aggregates health check results.
type Report struct {
	Status Status           `json:"status"`
	Checks map[string]Check `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	checkers map[string]Checker
}

// New creates a Service. Nil checkers are ignored.
func New(checkers map[string]Checker) *Service {
	s := &Service{checkers: make(map[string]Checker, len(checkers))}
	for name, c := range checkers {
		if c != nil {
			s.checkers[name] = c
		}
	}
	return s
}

// Check runs health checks against all components in name order.
func (s *Service) Check(ctx context.Context) Report {
	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]Check, len(names))
	failed := 0
	for _, name := range names {
		start := time.Now()
		err := s.checkers[name].HealthCheck(ctx)
		c := Check{Status: CheckOK, Latency: time.Since(start).Round(time.Millisecond).String()}
		if err != nil {
			c.Status = CheckError
			c.Error = err.Error()
			failed++
		}
		checks[name] = c
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
