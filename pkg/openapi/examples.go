package openapi

import (
	"fmt"
	"strings"

	"github.com/tablerest/tablerest/pkg/schema"
)

// exampleTimestamp is the fixed ISO-8601 instant used for date examples so
// generated documents are stable across runs.
const exampleTimestamp = "2024-01-15T09:30:00Z"

// responseExample synthesizes an example row with every column populated.
func responseExample(table schema.Table) map[string]any {
	example := make(map[string]any, len(table.Columns))
	for _, col := range table.Columns {
		example[col.Name] = exampleValue(col)
	}
	return example
}

// createExample synthesizes an example create payload. Auto-generated and
// default-bearing columns (identity, created_at/updated_at, anything with a
// default) are omitted: the database fills them in.
func createExample(table schema.Table) map[string]any {
	example := make(map[string]any)
	for _, col := range table.Columns {
		if col.IsIdentity || col.HasDefault || isAutoTimestamp(col.Name) {
			continue
		}
		example[col.Name] = exampleValue(col)
	}
	return example
}

func isAutoTimestamp(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "createdat", "updatedat":
		return true
	}
	return false
}

// exampleValue synthesizes a plausible value from column-name substrings
// first, then from the scalar kind.
func exampleValue(col schema.Column) any {
	name := strings.ToLower(col.Name)

	if col.Kind == schema.KindString {
		switch {
		case strings.Contains(name, "email"):
			return "user@example.com"
		case strings.Contains(name, "phone"):
			return "+15551234567"
		case strings.Contains(name, "url"), strings.Contains(name, "link"):
			return "https://example.com"
		case strings.Contains(name, "name"):
			return "Jane Doe"
		case strings.Contains(name, "title"):
			return "Example title"
		case strings.Contains(name, "description"), strings.Contains(name, "content"), strings.Contains(name, "body"):
			return "Example text content"
		case strings.Contains(name, "uuid"):
			return "123e4567-e89b-12d3-a456-426614174000"
		}
	}

	switch col.Kind {
	case schema.KindNumber:
		if col.IsIdentity || name == "id" || strings.HasSuffix(name, "_id") {
			return 1
		}
		return 42
	case schema.KindBoolean:
		return true
	case schema.KindDate:
		return exampleTimestamp
	default:
		return fmt.Sprintf("example %s", col.Name)
	}
}

// exampleSelect renders a select parameter example from the first columns.
func exampleSelect(table schema.Table) string {
	names := make([]string, 0, 2)
	for _, col := range table.Columns {
		names = append(names, col.Name)
		if len(names) == 2 {
			break
		}
	}
	return strings.Join(names, ",")
}

// exampleWhere renders a where parameter example using the first
// non-identity string column, or the identity column as fallback.
func exampleWhere(table schema.Table) string {
	for _, col := range table.Columns {
		if col.Kind == schema.KindString && !col.IsIdentity {
			return fmt.Sprintf(`{"%s":{"ilike":"%%example%%"}}`, col.Name)
		}
	}
	return `{"id":1}`
}
