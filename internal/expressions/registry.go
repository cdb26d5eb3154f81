package expressions

import (
	"context"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// Registry maps guard dialect tags to engines.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry creates a Registry with all three engines registered.
func NewRegistry() (*Registry, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}

	r := &Registry{engines: make(map[string]Engine)}
	for _, e := range []Engine{celEngine, NewExprEngine(), NewJQEngine()} {
		r.engines[e.Name()] = e
	}
	return r, nil
}

// ForDialect returns the engine for a dialect tag.
func (r *Registry) ForDialect(dialect string) (Engine, bool) {
	e, ok := r.engines[dialect]
	return e, ok
}

// CompileGuard checks that a guard expression compiles in its dialect.
// Unknown dialects and compile failures both report EXPRESSION_ERROR.
func (r *Registry) CompileGuard(dialect, source string) error {
	e, ok := r.engines[dialect]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeExpression, "unknown guard dialect %q", dialect)
	}
	return e.Compile(source)
}

// EvaluateGuard runs a guard expression against the given scope.
func (r *Registry) EvaluateGuard(ctx context.Context, guard *schema.GuardExpression, scope map[string]any) (any, error) {
	if guard == nil {
		return nil, schema.NewError(schema.ErrCodeExpression, "guard is nil")
	}
	e, ok := r.engines[guard.Dialect]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeExpression, "unknown guard dialect %q", guard.Dialect)
	}
	return e.Evaluate(ctx, guard.Source, scope)
}
