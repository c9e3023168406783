package services

import "context"

// Checker is a dependency whose reachability gates readiness
type Checker interface {
	// Name identifies the dependency in readiness output
	Name() string

	// HealthCheck returns nil when the dependency is usable
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function into a Checker
type CheckFunc struct {
	name  string
	check func(ctx context.Context) error
}

// NewCheckFunc creates a named Checker from fn
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, check: fn}
}

// Name returns the checker name
func (c *CheckFunc) Name() string {
	return c.name
}

// HealthCheck runs the wrapped function
func (c *CheckFunc) HealthCheck(ctx context.Context) error {
	return c.check(ctx)
}
