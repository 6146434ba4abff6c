package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/tablerest/tablerest/pkg/schema"
)

// handleInsert serves POST /{table}: create one record or a batch. The body
// is the raw parsed request payload; per-table insert hooks may enrich each
// row before the statement is built.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request, table schema.Table) {
	rows, apiErr := decodeInsertBody(r)
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	if hook := s.insertHooks[table.Name]; hook != nil {
		for _, row := range rows {
			hook(r, row)
		}
	}

	sql, args, apiErr := buildInsertQuery(table, rows)
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	returned, err := s.exec.Query(r.Context(), sql, args...)
	if err != nil {
		writeFailure(w, executionError(err))
		return
	}

	writeEnvelope(w, http.StatusCreated, Envelope{
		Success: true,
		Data:    returned,
		Message: fmt.Sprintf("Successfully created %d record(s)", len(returned)),
	})
}

// decodeInsertBody accepts a single JSON object or an array of objects.
// A missing body and malformed JSON are distinct 400 failures.
func decodeInsertBody(r *http.Request) ([]map[string]any, *apiError) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, validationError("failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, validationError("missing request body")
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, validationError("invalid JSON")
	}

	switch v := payload.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, validationError("invalid JSON: array elements must be objects")
			}
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			return nil, validationError("missing request body")
		}
		return rows, nil
	default:
		return nil, validationError("invalid JSON: expected object or array of objects")
	}
}

// buildInsertQuery assembles a single multi-row INSERT over the union of
// known columns present in the payload, in table column order. Rows missing
// a column bind NULL for it.
func buildInsertQuery(table schema.Table, rows []map[string]any) (string, []any, *apiError) {
	present := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			if table.HasColumn(key) {
				present[key] = true
			}
		}
	}

	var columns []string
	for _, col := range table.Columns {
		if present[col.Name] {
			columns = append(columns, col.Name)
		}
	}
	if len(columns) == 0 {
		return "", nil, validationError("no valid columns to insert")
	}

	var query strings.Builder
	var args []any
	argIndex := 1

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	query.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		quoteIdent(table.Name), strings.Join(quoted, ", ")))

	tuples := make([]string, 0, len(rows))
	for _, row := range rows {
		placeholders := make([]string, len(columns))
		for i, col := range columns {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, row[col])
			argIndex++
		}
		tuples = append(tuples, "("+strings.Join(placeholders, ", ")+")")
	}
	query.WriteString(strings.Join(tuples, ", "))
	query.WriteString(" RETURNING *")

	return query.String(), args, nil
}

// handleUpdate serves PUT and PATCH /{table}?where={"id":...}. The two
// verbs are behaviorally identical.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, table schema.Table) {
	id, apiErr := parseMutationFilter(r)
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			writeFailure(w, validationError("missing request body"))
			return
		}
		writeFailure(w, validationError("invalid JSON"))
		return
	}

	sql, args, apiErr := buildUpdateQuery(table, data, id)
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	returned, err := s.exec.Query(r.Context(), sql, args...)
	if err != nil {
		writeFailure(w, executionError(err))
		return
	}

	writeEnvelope(w, http.StatusOK, Envelope{
		Success: true,
		Data:    returned,
		Message: fmt.Sprintf("Successfully updated %d record(s)", len(returned)),
	})
}

// handleDelete serves DELETE /{table}?where={"id":...}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, table schema.Table) {
	id, apiErr := parseMutationFilter(r)
	if apiErr != nil {
		writeFailure(w, apiErr)
		return
	}

	idCol, ok := table.IdentityColumn()
	if !ok {
		writeFailure(w, validationError("table "+table.Name+" has no identity column"))
		return
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 RETURNING *",
		quoteIdent(table.Name), quoteIdent(idCol.Name))

	returned, err := s.exec.Query(r.Context(), sql, id)
	if err != nil {
		writeFailure(w, executionError(err))
		return
	}

	writeEnvelope(w, http.StatusOK, Envelope{
		Success: true,
		Data:    returned,
		Message: fmt.Sprintf("Successfully deleted %d record(s)", len(returned)),
	})
}

// parseMutationFilter enforces the mutate-by-id-only policy: the where
// parameter must be a JSON object with exactly the single key "id". Bulk
// update/delete by arbitrary predicate is disallowed.
func parseMutationFilter(r *http.Request) (any, *apiError) {
	raw := r.URL.Query().Get("where")
	if raw == "" {
		return nil, validationError(`update/delete requires where={"id":...}`)
	}

	var filter map[string]any
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, validationError("invalid where parameter: not a JSON object")
	}
	if len(filter) != 1 {
		return nil, validationError(`update/delete filter must contain exactly the key "id"`)
	}
	id, ok := filter["id"]
	if !ok {
		return nil, validationError(`update/delete filter must contain exactly the key "id"`)
	}
	return id, nil
}

// buildUpdateQuery assembles an UPDATE over the known columns of the
// payload, keyed by the identity column.
func buildUpdateQuery(table schema.Table, data map[string]any, id any) (string, []any, *apiError) {
	idCol, ok := table.IdentityColumn()
	if !ok {
		return "", nil, validationError("table " + table.Name + " has no identity column")
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		if table.HasColumn(key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return "", nil, validationError("no valid columns to update")
	}
	sort.Strings(keys)

	var query strings.Builder
	var args []any
	argIndex := 1

	query.WriteString(fmt.Sprintf("UPDATE %s SET ", quoteIdent(table.Name)))

	setClauses := make([]string, 0, len(keys))
	for _, key := range keys {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", quoteIdent(key), argIndex))
		args = append(args, data[key])
		argIndex++
	}
	query.WriteString(strings.Join(setClauses, ", "))

	query.WriteString(fmt.Sprintf(" WHERE %s = $%d RETURNING *", quoteIdent(idCol.Name), argIndex))
	args = append(args, id)

	return query.String(), args, nil
}
