package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultCheckTimeout bounds a single dependency check.
const DefaultCheckTimeout = 2 * time.Second

// DependencyType represents the type of dependency.
type DependencyType string

const (
	// DependencyTypeCache is a cache store dependency.
	DependencyTypeCache DependencyType = "cache"
	// DependencyTypeBackend is a backend service dependency.
	DependencyTypeBackend DependencyType = "backend"
	// DependencyTypeDatabase is a relational database dependency.
	DependencyTypeDatabase DependencyType = "database"
	// DependencyTypeCustom is a custom dependency.
	DependencyTypeCustom DependencyType = "custom"
)

// Pinger is implemented by dependencies that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DependencyCheck represents a dependency health check.
type DependencyCheck struct {
	name     string
	depType  DependencyType
	checkFn  func(ctx context.Context) error
	critical bool
}

// DependencyCheckOption is a function that configures a DependencyCheck.
type DependencyCheckOption func(*DependencyCheck)

// WithCritical marks the dependency as critical.
func WithCritical(critical bool) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.critical = critical
	}
}

// NewDependencyCheck creates a new dependency check. Checks are critical
// unless configured otherwise.
func NewDependencyCheck(
	name string,
	depType DependencyType,
	checkFn func(ctx context.Context) error,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	d := &DependencyCheck{
		name:     name,
		depType:  depType,
		checkFn:  checkFn,
		critical: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the name of the dependency check.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Type returns the dependency type.
func (d *DependencyCheck) Type() DependencyType {
	return d.depType
}

// IsCritical returns true if the dependency is critical.
func (d *DependencyCheck) IsCritical() bool {
	return d.critical
}

// Check performs the dependency health check.
func (d *DependencyCheck) Check(ctx context.Context) error {
	start := time.Now()
	err := d.checkFn(ctx)
	GetHealthMetrics().checkDuration.
		WithLabelValues(d.name, string(d.depType)).
		Observe(time.Since(start).Seconds())
	return err
}

func (d *DependencyCheck) run(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return d.Check(ctx)
}

// PingCheck creates a check that pings the given dependency.
func PingCheck(name string, depType DependencyType, p Pinger, opts ...DependencyCheckOption) *DependencyCheck {
	return NewDependencyCheck(name, depType, func(ctx context.Context) error {
		if p == nil {
			return errors.New("dependency is nil")
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
		return nil
	}, opts...)
}

// BreakerCheck creates a check that fails while a circuit breaker is open.
// state reports the breaker state as returned by backend.Client.BreakerState.
func BreakerCheck(name string, state func() string, opts ...DependencyCheckOption) *DependencyCheck {
	return NewDependencyCheck(name, DependencyTypeBackend, func(context.Context) error {
		if s := state(); s == "open" {
			return fmt.Errorf("circuit breaker is %s", s)
		}
		return nil
	}, opts...)
}

// CustomHealthCheck creates a custom health check.
func CustomHealthCheck(
	name string,
	checkFn func(ctx context.Context) error,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	return NewDependencyCheck(name, DependencyTypeCustom, checkFn, opts...)
}
