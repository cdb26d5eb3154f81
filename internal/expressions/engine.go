// Package expressions evaluates condition-block guard expressions.
// Three dialects are supported: CEL (sandboxed logic), Expr (rich
// deterministic logic), and jq (document queries). Engines compile lazily
// and cache compiled programs, so repeated validation of the same guard is
// cheap.
package expressions

import "context"

// Engine compiles and evaluates guard expressions in one dialect.
// Implementations are safe for concurrent use.
type Engine interface {
	Name() string
	// Compile checks the expression without evaluating it. The compiled
	// program is cached for a later Evaluate of the same source.
	Compile(source string) error
	// Evaluate runs the expression against the scope. The scope keys are
	// exposed as top-level variables (CEL/Expr) or as the input document (jq).
	Evaluate(ctx context.Context, source string, scope map[string]any) (any, error)
}
