package expressions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// CELEngine evaluates guard expressions in Google's Common Expression
// Language. Thread-safe: compiled programs are cached and reused across
// goroutines.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEngine creates a CEL engine with a sandboxed environment.
// Two top-level variables are exposed, matching the guard scope:
//   - params: map(string, dyn) — the condition block's parameter values
//   - blocks: map(string, dyn) — upstream block parameters keyed by slug
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	env, err := cel.NewEnv(
		cel.Variable("params", mapType),
		cel.Variable("blocks", mapType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &CELEngine{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Compile checks and caches the expression without evaluating it.
func (e *CELEngine) Compile(source string) error {
	_, err := e.getOrCompile(source)
	return err
}

// Evaluate compiles (or retrieves from cache) a CEL expression and runs it
// against the scope.
func (e *CELEngine) Evaluate(ctx context.Context, source string, scope map[string]any) (any, error) {
	prg, err := e.getOrCompile(source)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(guardActivation(scope))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL evaluation failed for %q: %s", source, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": source})
	}

	return out.Value(), nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *CELEngine) getOrCompile(source string) (cel.Program, error) {
	if source == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty CEL expression")
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

	ast, issues := e.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL compile error in %q: %s", source, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": source})
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL program error for %q: %s", source, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": source})
	}

	e.cache[source] = prg
	return prg, nil
}

// guardActivation fills missing scope keys with empty maps so CEL never
// hits a nil reference at runtime.
func guardActivation(scope map[string]any) map[string]any {
	activation := map[string]any{
		"params": map[string]any{},
		"blocks": map[string]any{},
	}
	for k, v := range scope {
		activation[k] = v
	}
	return activation
}

var _ Engine = (*CELEngine)(nil)
