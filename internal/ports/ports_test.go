package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker implements HealthChecker for testing.
type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Name() string {
	return s.name
}

func (s *stubChecker) Check(ctx context.Context) error {
	return s.err
}

// slowChecker waits for the context or a short delay.
type slowChecker struct {
	name string
}

func (c *slowChecker) Name() string {
	return c.name
}

func (c *slowChecker) Check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func TestNewHealthRegistry(t *testing.T) {
	registry := NewHealthRegistry()

	require.NotNil(t, registry)
	assert.Empty(t, registry.checkers)
}

func TestRegister_DuplicateName(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&stubChecker{name: "quotes-service"}))

	err := registry.Register(&stubChecker{name: "quotes-service"})

	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "quotes-service")
	assert.Len(t, registry.checkers, 1)
}

func TestCheckAll_NoCheckers(t *testing.T) {
	result := NewHealthRegistry().CheckAll(context.Background())

	require.NotNil(t, result)
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Empty(t, result.Checks)
	assert.False(t, result.Timestamp.IsZero())
}

func TestCheckAll_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		checkers []HealthChecker
		expected HealthStatus
		failing  map[string]string
	}{
		{
			name: "all healthy",
			checkers: []HealthChecker{
				&stubChecker{name: "quotes-service"},
				&stubChecker{name: "credentials"},
			},
			expected: HealthStatusHealthy,
		},
		{
			name: "one unhealthy",
			checkers: []HealthChecker{
				&stubChecker{name: "quotes-service", err: errors.New("connection refused")},
				&stubChecker{name: "credentials"},
			},
			expected: HealthStatusUnhealthy,
			failing:  map[string]string{"quotes-service": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			for _, c := range tt.checkers {
				require.NoError(t, registry.Register(c))
			}

			result := registry.CheckAll(context.Background())

			assert.Equal(t, tt.expected, result.Status)
			assert.Len(t, result.Checks, len(tt.checkers))

			for _, c := range tt.checkers {
				check := result.Checks[c.Name()]
				require.NotNil(t, check)

				if msg, failing := tt.failing[c.Name()]; failing {
					assert.Equal(t, HealthStatusUnhealthy, check.Status)
					assert.Equal(t, msg, check.Message)
				} else {
					assert.Equal(t, HealthStatusHealthy, check.Status)
					assert.Empty(t, check.Message)
				}
			}
		})
	}
}

func TestCheckAll_ManyCheckersAllRun(t *testing.T) {
	registry := NewHealthRegistry()
	for i := range maxConcurrentChecks * 2 {
		require.NoError(t, registry.Register(&stubChecker{name: fmt.Sprintf("dep-%d", i)}))
	}

	result := registry.CheckAll(context.Background())

	assert.Len(t, result.Checks, maxConcurrentChecks*2)
	assert.Equal(t, HealthStatusHealthy, result.Status)
}

func TestCheckAll_ContextCancelled(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&slowChecker{name: "quotes-service"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["quotes-service"].Message, "context canceled")
}

func TestCheckAll_PerCheckTimeout(t *testing.T) {
	registry := NewHealthRegistry(WithCheckTimeout(10 * time.Millisecond))
	require.NoError(t, registry.Register(&slowChecker{name: "quotes-service"}))
	require.NoError(t, registry.Register(&stubChecker{name: "sessions"}))

	result := registry.CheckAll(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["quotes-service"].Message, "deadline exceeded")
	assert.Equal(t, HealthStatusHealthy, result.Checks["sessions"].Status)
}

func TestWithCheckTimeout_IgnoresNonPositive(t *testing.T) {
	registry := NewHealthRegistry(WithCheckTimeout(0))

	assert.Equal(t, DefaultCheckTimeout, registry.timeout)
}

func TestCredentialFunc(t *testing.T) {
	var provider CredentialProvider = CredentialFunc(func(ctx context.Context) (string, bool) {
		return "tok1", true
	})

	token, ok := provider.Token(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "tok1", token)
}

func TestErrorReporterFunc(t *testing.T) {
	var gotOp string
	var gotErr error

	var reporter ErrorReporter = ErrorReporterFunc(func(ctx context.Context, op string, err error) {
		gotOp, gotErr = op, err
	})

	cause := errors.New("boom")
	reporter.Report(context.Background(), "list quotes", cause)

	assert.Equal(t, "list quotes", gotOp)
	assert.Equal(t, cause, gotErr)
}
