package rest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/tablerest/tablerest/pkg/schema"
)

// handleList serves GET /{table}: filtered, ordered, paginated reads.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, table schema.Table) {
	spec, apiErr := parseQuerySpec(r.URL.Query())
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	sql, args, apiErr := buildListQuery(table, spec)
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	rows, err := s.exec.Query(r.Context(), sql, args...)
	if err != nil {
		writeFailure(w, executionError(err))
		return
	}

	meta := &Meta{
		Total:  len(rows),
		Limit:  spec.Limit,
		Offset: spec.effectiveOffset(),
		Page:   spec.Page,
	}
	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: rows, Meta: meta})
}

// buildListQuery assembles one executable SELECT from the table descriptor
// and the parsed query spec. All validation happens here, before the
// executor is ever touched.
func buildListQuery(table schema.Table, spec querySpec) (string, []any, *apiError) {
	var query strings.Builder
	var args []any
	argIndex := 1

	columns, apiErr := selectedColumns(table, spec)
	if apiErr != nil {
		return "", nil, apiErr
	}

	query.WriteString("SELECT ")
	query.WriteString(columns)
	query.WriteString(" FROM ")
	query.WriteString(quoteIdent(table.Name))

	if pred, ok := compileFilter(spec.Where, table, &argIndex); ok {
		query.WriteString(" WHERE ")
		query.WriteString(pred.sql)
		args = append(args, pred.args...)
	}

	orderClause, apiErr := buildOrderClause(table, spec.OrderBy)
	if apiErr != nil {
		return "", nil, apiErr
	}
	if orderClause != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(orderClause)
	}

	if spec.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, spec.Limit)
		argIndex++
	}

	if offset := spec.effectiveOffset(); offset > 0 {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", argIndex))
		args = append(args, offset)
		argIndex++
	}

	return query.String(), args, nil
}

// selectedColumns resolves the column-selection set. No selection means all
// columns; a given selection with zero usable columns is an error.
func selectedColumns(table schema.Table, spec querySpec) (string, *apiError) {
	if !spec.SelectGiven {
		return "*", nil
	}

	columnList := make([]string, 0, len(spec.Select))
	for _, col := range spec.Select {
		if table.HasColumn(col) {
			columnList = append(columnList, quoteIdent(col))
		}
	}
	if len(columnList) == 0 {
		return "", validationError("select matches no columns of table " + table.Name)
	}
	return strings.Join(columnList, ", "), nil
}

// buildOrderClause validates the order specification fail-fast: every key
// must be a real column and every direction exactly asc or desc. Keys are
// emitted in sorted order for deterministic SQL.
func buildOrderClause(table schema.Table, orderBy map[string]any) (string, *apiError) {
	if len(orderBy) == 0 {
		return "", nil
	}

	columns := make([]string, 0, len(orderBy))
	for col := range orderBy {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	clauses := make([]string, 0, len(columns))
	for _, col := range columns {
		if !table.HasColumn(col) {
			return "", validationError(fmt.Sprintf("cannot order by unknown column %q", col))
		}
		direction, _ := orderBy[col].(string)
		switch direction {
		case "asc":
			clauses = append(clauses, quoteIdent(col)+" ASC")
		case "desc":
			clauses = append(clauses, quoteIdent(col)+" DESC")
		default:
			return "", validationError(fmt.Sprintf("invalid order direction %v for column %q", orderBy[col], col))
		}
	}
	return strings.Join(clauses, ", "), nil
}

// handleGetByID serves GET /{table}/{id}: equality lookup on the identity
// column, returning a single object rather than an array.
func (s *Server) handleGetByID(w http.ResponseWriter, r *http.Request, table schema.Table, id string) {
	idCol, ok := table.IdentityColumn()
	if !ok {
		writeFailure(w, validationError("table "+table.Name+" has no identity column"))
		return
	}

	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1 LIMIT 1",
		quoteIdent(table.Name), quoteIdent(idCol.Name))

	rows, err := s.exec.Query(r.Context(), sql, coerceID(id))
	if err != nil {
		writeFailure(w, executionError(err))
		return
	}
	if len(rows) == 0 {
		writeFailure(w, notFoundError("record not found"))
		return
	}

	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: rows[0]})
}

// coerceID converts numeric-looking path ids to numbers; everything else
// passes through as a string.
func coerceID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(id, 64); err == nil {
		return f
	}
	return id
}
