package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateChecker is returned by Register when the name is taken.
var ErrDuplicateChecker = errors.New("duplicate health checker")

const (
	maxConcurrentChecks = 8

	// DefaultCheckTimeout bounds a single check when the caller's context
	// carries no tighter deadline.
	DefaultCheckTimeout = 2 * time.Second
)

// HealthChecker is a dependency the dashboard needs to serve pages: the
// Quotes Service check and the session store.
type HealthChecker interface {
	// Name identifies the check in readiness output.
	Name() string

	// Check returns nil while the dependency is usable.
	Check(ctx context.Context) error
}

// HealthRegistry runs the registered checks for the readiness endpoint.
type HealthRegistry interface {
	Register(checker HealthChecker) error
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is the outcome of one check or of the whole readiness run.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the readiness report. Any unhealthy check makes the whole
// report unhealthy.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RegistryOption configures a DefaultHealthRegistry.
type RegistryOption func(*DefaultHealthRegistry)

// WithCheckTimeout overrides DefaultCheckTimeout.
func WithCheckTimeout(d time.Duration) RegistryOption {
	return func(r *DefaultHealthRegistry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// DefaultHealthRegistry runs its checks concurrently, each under its own
// timeout, in registration order.
type DefaultHealthRegistry struct {
	timeout time.Duration

	mu       sync.RWMutex
	names    map[string]struct{}
	checkers []HealthChecker
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry(opts ...RegistryOption) *DefaultHealthRegistry {
	r := &DefaultHealthRegistry{
		timeout: DefaultCheckTimeout,
		names:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds checker. Names must be unique.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	name := checker.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.names[name] = struct{}{}
	r.checkers = append(r.checkers, checker)

	return nil
}

// CheckAll runs every check and folds the outcomes into one report.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := append([]HealthChecker(nil), r.checkers...)
	r.mu.RUnlock()

	results := make([]*CheckResult, len(checkers))

	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)

	for i, checker := range checkers {
		g.Go(func() error {
			results[i] = r.run(ctx, checker)
			return nil
		})
	}

	_ = g.Wait()

	report := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: time.Now(),
	}

	for i, checker := range checkers {
		report.Checks[checker.Name()] = results[i]
		if results[i].Status == HealthStatusUnhealthy {
			report.Status = HealthStatusUnhealthy
		}
	}

	return report
}

func (r *DefaultHealthRegistry) run(ctx context.Context, checker HealthChecker) *CheckResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := checker.Check(ctx)

	res := &CheckResult{Status: HealthStatusHealthy, Duration: time.Since(start)}
	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()
	}

	return res
}
