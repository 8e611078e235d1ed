package bookrec

import (
	"context"

	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
)

// HealthStatus is the aggregated health of the client's dependencies.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // catalog, database, embedding, index -> "ok" / "error"
	Books  int
}

// OK reports whether every configured check passed.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Health probes the catalog and, when configured, Valkey, the embedding
// provider and the index circuit breaker.
func (c *Client) Health(ctx context.Context) (h HealthStatus) {
	defer c.obs.begin("health")(nil)

	report := c.healthSvc.Check(ctx)
	h = HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
		Books:  report.Books,
	}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
