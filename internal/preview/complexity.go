package preview

import "github.com/stratmind/formulagraph/pkg/schema"

// Complexity is the three-bucket ordinal classification of a formula.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Bucket ceilings. A formula must satisfy both the block and connection
// ceiling to stay in a bucket; exceeding either axis escalates.
const (
	simpleMaxBlocks      = 3
	simpleMaxConnections = 2
	mediumMaxBlocks      = 8
	mediumMaxConnections = 6
)

// Classify buckets a formula by block count and connection count jointly.
// Adding a block or connection never decreases the bucket.
func Classify(f *schema.Formula) Complexity {
	blocks := len(f.Blocks)
	conns := len(f.Connections)

	switch {
	case blocks <= simpleMaxBlocks && conns <= simpleMaxConnections:
		return ComplexitySimple
	case blocks <= mediumMaxBlocks && conns <= mediumMaxConnections:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}
