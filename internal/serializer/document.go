// Package serializer converts formulas to and from the canonical
// persisted document. Round-trip law: deserializing a serialized formula
// yields a structurally equal formula — block order, connection order and
// every persisted field survive exactly; transient editor flags do not.
package serializer

import (
	"strconv"
	"strings"
	"time"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// DocumentVersion is the version written into every serialized document.
// Deserialization accepts any document sharing the same major version and
// fails closed on the rest.
const DocumentVersion = "1.0.0"

// Document is the canonical persisted form of a formula.
type Document struct {
	Version     string              `json:"version"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Blocks      []schema.Block      `json:"blocks"`
	Connections []schema.Connection `json:"connections"`
	Metadata    Metadata            `json:"metadata"`
}

// Metadata carries formula identity and timestamps. Timestamps are
// persisted as ISO-8601 / RFC 3339 in UTC.
type Metadata struct {
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// majorVersion extracts the major component of a semantic version string.
func majorVersion(v string) (int, bool) {
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
