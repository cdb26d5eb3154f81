package expressions

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// JQEngine evaluates guard expressions as jq programs over the scope,
// which doubles as the query engine for serialized formula documents.
// Thread-safe: compiled *gojq.Code objects are cached and reused across
// goroutines.
type JQEngine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewJQEngine creates a new jq guard engine.
func NewJQEngine() *JQEngine {
	return &JQEngine{
		cache: make(map[string]*gojq.Code),
	}
}

// Name returns the engine identifier.
func (e *JQEngine) Name() string {
	return "jq"
}

// Compile checks and caches the expression without evaluating it.
func (e *JQEngine) Compile(source string) error {
	_, err := e.getOrCompile(source)
	return err
}

// Evaluate compiles (or retrieves from cache) a jq expression and runs it
// with the scope as the input document. A single output is returned
// directly; multiple outputs are collected into []any.
func (e *JQEngine) Evaluate(ctx context.Context, source string, scope map[string]any) (any, error) {
	code, err := e.getOrCompile(source)
	if err != nil {
		return nil, err
	}

	input := any(scope)
	if scope == nil {
		input = map[string]any{}
	}
	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if evalErr, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeExpression,
				"jq evaluation failed for %q: %s", source, evalErr.Error()).
				WithCause(evalErr).
				WithDetails(map[string]any{"expression": source})
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// getOrCompile returns a cached compiled code or compiles and caches a new one.
func (e *JQEngine) getOrCompile(source string) (*gojq.Code, error) {
	if source == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty jq expression")
	}

	e.mu.RLock()
	if code, ok := e.cache[source]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := e.cache[source]; ok {
		return code, nil
	}

	query, err := gojq.Parse(source)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"jq parse error in %q: %s", source, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": source})
	}

	code, err := gojq.Compile(query,
		// Sandbox: block $ENV and env access.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"jq compile error in %q: %s", source, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": source})
	}

	e.cache[source] = code
	return code, nil
}

var _ Engine = (*JQEngine)(nil)
