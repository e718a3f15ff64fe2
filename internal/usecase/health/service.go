package health

import "context"

// Status represents the aggregated readiness status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one component failed its check.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates readiness checks. Liveness (/health_check) does not go through it.
type Service struct {
	backend BackendPinger
}

// New creates a Service.
func New(backend BackendPinger) *Service {
	return &Service{backend: backend}
}

// Check pings the search backend.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"search_backend": CheckOK}
	if err := s.backend.Ping(ctx); err != nil {
		checks["search_backend"] = CheckError
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
