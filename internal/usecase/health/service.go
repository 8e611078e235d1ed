// Package health aggregates dependency probes into one report.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the aggregated health.
type Status string

const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is one probe's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckDatabase  = "database"
	CheckEmbedding = "embedding"
	CheckCatalog   = "catalog"
	CheckIndex     = "index"
)

// DefaultProbeTimeout bounds each network probe.
const DefaultProbeTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Books  int
}

// Deps lists the probed components. Nil members are skipped; the catalog is always checked.
type Deps struct {
	DB        DBPinger
	Embedding EmbeddingChecker
	Catalog   CatalogSizer
	Index     BreakerState
}

// Service probes Deps.
type Service struct {
	deps    Deps
	timeout time.Duration
}

// New creates a Service with DefaultProbeTimeout.
func New(deps Deps) *Service {
	return &Service{deps: deps, timeout: DefaultProbeTimeout}
}

// Check probes Valkey and the embedding provider concurrently, each under its
// own timeout. An empty catalog and an open breaker both count as failures.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{}
	if s.deps.DB != nil {
		probes[CheckDatabase] = s.deps.DB.Ping
	}
	if s.deps.Embedding != nil {
		probes[CheckEmbedding] = s.deps.Embedding.HealthCheck
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(probes)+2)
		books  int
	)
	if s.deps.Index != nil {
		checks[CheckIndex] = result(s.deps.Index.State() != "open")
	}
	if s.deps.Catalog != nil {
		books = s.deps.Catalog.Len()
	}
	checks[CheckCatalog] = result(books > 0)

	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := result(probe(pctx) == nil)

			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}

	wg.Wait()

	rep := Report{Status: Healthy, Checks: checks, Books: books}
	for _, r := range checks {
		if r == CheckError {
			rep.Status = Degraded
		}
	}
	return rep
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
