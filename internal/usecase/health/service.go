// Package health reports whether the tagger can reach its index backend.
package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates the backend answered.
	Healthy Status = "ok"
	// Unhealthy indicates the backend could not be reached.
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

// DefaultTimeout bounds a single ping.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status  Status                 `json:"status"`
	Checks  map[string]CheckResult `json:"checks"`
	Backend string                 `json:"backend"`
}

// Service coordinates health checks.
type Service struct {
	index   IndexPinger
	backend string
	timeout time.Duration
}

// New creates a Service for the named backend driver.
func New(index IndexPinger, backend string) *Service {
	return &Service{index: index, backend: backend, timeout: DefaultTimeout}
}

// Check pings the index backend.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := map[string]CheckResult{"index": CheckOK}
	status := Healthy
	if err := s.index.Ping(ctx); err != nil {
		checks["index"] = CheckError
		status = Unhealthy
	}
	return Report{Status: status, Checks: checks, Backend: s.backend}
}
