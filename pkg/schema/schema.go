// Package schema holds the static metadata the REST layer is generated from:
// tables, their columns, nullability, defaults and identity columns.
// A Registry is built once at process start, either from PostgreSQL's
// information_schema or programmatically, and is read-only afterwards.
package schema

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Kind is the scalar kind of a column as seen by the API layer.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindDate    Kind = "date"
)

// Column describes one table column.
type Column struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	Nullable   bool   `json:"nullable"`
	HasDefault bool   `json:"has_default"`
	IsIdentity bool   `json:"is_identity"`
}

// Table describes one exposed table. Columns keep declaration order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether name is a column of the table.
func (t Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// IdentityColumn returns the table's identity column, falling back to a
// column literally named "id" when none is flagged.
func (t Table) IdentityColumn() (Column, bool) {
	for _, c := range t.Columns {
		if c.IsIdentity {
			return c, true
		}
	}
	return t.Column("id")
}

// Registry maps table names to their descriptors. It is immutable once
// handed to the REST server, so concurrent readers need no locking.
type Registry struct {
	tables map[string]Table
	names  []string
}

// NewRegistry builds a registry from table descriptors. Later descriptors
// with a duplicate name replace earlier ones.
func NewRegistry(tables ...Table) *Registry {
	r := &Registry{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		if _, exists := r.tables[t.Name]; !exists {
			r.names = append(r.names, t.Name)
		}
		r.tables[t.Name] = t
	}
	return r
}

// Lookup returns the descriptor for a table name.
func (r *Registry) Lookup(name string) (Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Tables returns all descriptors in registration order.
func (r *Registry) Tables() []Table {
	out := make([]Table, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tables[name])
	}
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	return len(r.tables)
}

// Handler returns an http.Handler serving the registry contents as JSON,
// useful for introspection and debugging.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.tables); err != nil {
			http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
		}
	})
}

// KindOf maps a PostgreSQL data type name to the API-level scalar kind.
func KindOf(dataType string) Kind {
	dt := strings.ToLower(dataType)
	switch {
	case strings.Contains(dt, "int"), strings.Contains(dt, "numeric"),
		strings.Contains(dt, "decimal"), strings.Contains(dt, "real"),
		strings.Contains(dt, "double"), strings.Contains(dt, "serial"):
		return KindNumber
	case strings.Contains(dt, "bool"):
		return KindBoolean
	case strings.Contains(dt, "timestamp"), strings.Contains(dt, "date"):
		return KindDate
	default:
		return KindString
	}
}
