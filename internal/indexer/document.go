package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
)

const maxIDLength = 255

// Document is one input record. Text fields are analyzed at index time;
// Tokens carries streams that were analyzed upstream and are indexed as is.
// A field may appear in one map or the other, not both.
type Document struct {
	ID     string              `json:"id"`
	Fields map[string]string   `json:"fields,omitempty"`
	Tokens map[string][]string `json:"tokens,omitempty"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Validate checks the id and that every field is one the index knows.
func (d *Document) Validate() error {
	errs := make(map[string]string)
	id := strings.TrimSpace(d.ID)
	switch {
	case id == "":
		errs["id"] = "id is required"
	case len(id) > maxIDLength:
		errs["id"] = fmt.Sprintf("id must be at most %d characters", maxIDLength)
	case strings.ContainsAny(id, " \t\n"):
		errs["id"] = "id must not contain whitespace"
	}
	if len(d.Fields) == 0 && len(d.Tokens) == 0 {
		errs["fields"] = "document has no fields"
	}
	for f := range d.Fields {
		if !index.IsField(f) {
			errs[f] = "unknown field"
		}
	}
	for f := range d.Tokens {
		if !index.IsField(f) {
			errs[f] = "unknown field"
		} else if _, dup := d.Fields[f]; dup {
			errs[f] = "field given as both text and tokens"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
