package rest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablerest/tablerest/pkg/schema"
)

// predicate is a compiled, executor-ready boolean condition: a SQL fragment
// with $n placeholders plus its bound arguments.
type predicate struct {
	sql  string
	args []any
}

// filterOperators maps filter operator names to their SQL counterparts.
var filterOperators = map[string]string{
	"eq":    "=",
	"ne":    "<>",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "LIKE",
	"ilike": "ILIKE",
}

// compileFilter translates a decoded JSON filter expression into a
// predicate. ok=false signals "no predicate": the caller must treat it as
// match-all, never as an error. Unknown columns and unknown operators are
// skipped silently, and logical nodes whose sub-expressions all compile to
// empty also compile to empty.
//
// Object keys are visited in sorted order so the same expression always
// compiles to the same SQL regardless of JSON decoding order.
func compileFilter(expr map[string]any, table schema.Table, argIndex *int) (predicate, bool) {
	if len(expr) == 0 {
		return predicate{}, false
	}

	var parts []string
	var args []any

	keys := make([]string, 0, len(expr))
	for k := range expr {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := expr[key]

		var sub predicate
		var ok bool
		switch strings.ToLower(key) {
		case "and":
			sub, ok = compileLogical(value, table, argIndex, " AND ")
		case "or":
			sub, ok = compileLogical(value, table, argIndex, " OR ")
		case "not":
			sub, ok = compileNot(value, table, argIndex)
		default:
			sub, ok = compileField(key, value, table, argIndex)
		}
		if !ok {
			continue
		}
		parts = append(parts, sub.sql)
		args = append(args, sub.args...)
	}

	if len(parts) == 0 {
		return predicate{}, false
	}
	return predicate{sql: strings.Join(parts, " AND "), args: args}, true
}

// compileLogical handles and/or nodes: an ordered sequence of
// sub-expressions, each compiled independently, empties discarded.
func compileLogical(value any, table schema.Table, argIndex *int, joiner string) (predicate, bool) {
	seq, ok := value.([]any)
	if !ok {
		return predicate{}, false
	}

	var parts []string
	var args []any
	for _, item := range seq {
		sub, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p, ok := compileFilter(sub, table, argIndex)
		if !ok {
			continue
		}
		parts = append(parts, p.sql)
		args = append(args, p.args...)
	}

	switch len(parts) {
	case 0:
		return predicate{}, false
	case 1:
		return predicate{sql: parts[0], args: args}, true
	default:
		return predicate{sql: "(" + strings.Join(parts, joiner) + ")", args: args}, true
	}
}

func compileNot(value any, table schema.Table, argIndex *int) (predicate, bool) {
	sub, ok := value.(map[string]any)
	if !ok {
		return predicate{}, false
	}
	p, ok := compileFilter(sub, table, argIndex)
	if !ok {
		return predicate{}, false
	}
	return predicate{sql: "NOT (" + p.sql + ")", args: p.args}, true
}

// compileField handles one field node. A non-object value is shorthand for
// eq; an object maps operator names to literal values. All conditions of
// one field node are combined with AND.
func compileField(column string, value any, table schema.Table, argIndex *int) (predicate, bool) {
	if !table.HasColumn(column) {
		return predicate{}, false
	}

	ops, isObject := value.(map[string]any)
	if !isObject {
		ops = map[string]any{"eq": value}
	}

	opNames := make([]string, 0, len(ops))
	for op := range ops {
		opNames = append(opNames, op)
	}
	sort.Strings(opNames)

	var parts []string
	var args []any
	for _, op := range opNames {
		sqlOp, known := filterOperators[op]
		if !known {
			continue
		}
		operand := ops[op]

		// eq/ne against null become IS (NOT) NULL; null with a
		// comparison operator matches nothing useful and is skipped.
		if operand == nil {
			switch op {
			case "eq":
				parts = append(parts, fmt.Sprintf("%s IS NULL", quoteIdent(column)))
			case "ne":
				parts = append(parts, fmt.Sprintf("%s IS NOT NULL", quoteIdent(column)))
			}
			continue
		}

		parts = append(parts, fmt.Sprintf("%s %s $%d", quoteIdent(column), sqlOp, *argIndex))
		args = append(args, operand)
		*argIndex++
	}

	switch len(parts) {
	case 0:
		return predicate{}, false
	case 1:
		return predicate{sql: parts[0], args: args}, true
	default:
		return predicate{sql: "(" + strings.Join(parts, " AND ") + ")", args: args}, true
	}
}

// quoteIdent double-quotes an identifier for safe interpolation. Column and
// table names are always validated against the registry before quoting.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
