package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher ships Registry to a Prometheus Pushgateway. A single-shot process has no
// scrape endpoint, so this is the only way its metrics leave the host.
type Pusher struct {
	url      string
	job      string
	grouping map[string]string
}

// NewPusher returns nil when url is empty; a nil Pusher is a valid no-op.
func NewPusher(url, job string, grouping map[string]string) *Pusher {
	if url == "" {
		return nil
	}
	return &Pusher{url: url, job: job, grouping: grouping}
}

// Push adds the current metric values to the gateway group.
func (p *Pusher) Push(ctx context.Context) error {
	if p == nil {
		return nil
	}
	pusher := push.New(p.url, p.job).Gatherer(Registry)
	for k, v := range p.grouping {
		pusher = pusher.Grouping(k, v)
	}
	if err := pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", p.url, err)
	}
	return nil
}

// HealthCheck probes the gateway's /-/healthy endpoint.
func (p *Pusher) HealthCheck(ctx context.Context) error {
	if p == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.url, "/")+"/-/healthy", nil)
	if err != nil {
		return fmt.Errorf("build pushgateway probe: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe pushgateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushgateway unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
