package expressions

import (
	"strings"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// GuardScope builds the evaluation scope for a condition block's guard:
//
//	params: the block's own parameter values keyed by name
//	blocks: parameters of blocks feeding this one, keyed by slugified
//	        block name
//
// The scope is a fresh map each call; guards never see a mutable alias
// into the formula.
func GuardScope(f *schema.Formula, blockID string) map[string]any {
	scope := map[string]any{
		"params": map[string]any{},
		"blocks": map[string]any{},
	}

	block := f.Block(blockID)
	if block == nil {
		return scope
	}

	params := make(map[string]any, len(block.Parameters))
	for _, p := range block.Parameters {
		params[p.Name] = p.Value
	}
	scope["params"] = params

	upstream := make(map[string]any)
	for _, conn := range f.Connections {
		if conn.ToBlockID != blockID {
			continue
		}
		src := f.Block(conn.FromBlockID)
		if src == nil {
			continue
		}
		srcParams := make(map[string]any, len(src.Parameters))
		for _, p := range src.Parameters {
			srcParams[p.Name] = p.Value
		}
		upstream[Slug(src.Name)] = srcParams
	}
	scope["blocks"] = upstream

	return scope
}

// Slug normalizes a block name for use as an identifier: lower-case with
// spaces replaced by underscores.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
