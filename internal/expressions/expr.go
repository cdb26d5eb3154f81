package expressions

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// ExprEngine evaluates guard expressions with expr-lang/expr: let
// bindings, array operations, string operations, nil coalescing and
// optional chaining. Thread-safe: compiled *vm.Program objects are cached
// and reused across goroutines.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new Expr guard engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{
		cache: make(map[string]*vm.Program),
	}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Compile checks and caches the expression without evaluating it.
func (e *ExprEngine) Compile(source string) error {
	_, err := e.getOrCompile(source)
	return err
}

// Evaluate compiles (or retrieves from cache) an Expr expression and runs
// it with the scope as its environment, making every scope key a top-level
// variable.
func (e *ExprEngine) Evaluate(ctx context.Context, source string, scope map[string]any) (any, error) {
	prg, err := e.getOrCompile(source)
	if err != nil {
		return nil, err
	}

	env := scope
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"expr evaluation failed for %q: %s", source, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": source})
	}

	return out, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *ExprEngine) getOrCompile(source string) (*vm.Program, error) {
	if source == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty expr expression")
	}

	e.mu.RLock()
	if prg, ok := e.cache[source]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := e.cache[source]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(source,
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"expr compile error in %q: %s", source, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": source})
	}

	e.cache[source] = prg
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
