package rest

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs one parameterized statement against the storage layer and
// returns the resulting rows. It is the single suspend point per request:
// the core issues one statement and awaits its result, with no retries.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// PgExecutor is the production Executor backed by a pgx connection pool.
type PgExecutor struct {
	pool *pgxpool.Pool
}

func NewPgExecutor(pool *pgxpool.Pool) *PgExecutor {
	return &PgExecutor{pool: pool}
}

func (e *PgExecutor) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rowsToMaps(rows)
}

func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	fieldDescriptions := rows.FieldDescriptions()
	columnNames := make([]string, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columnNames[i] = string(fd.Name)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePointers := make([]any, len(columnNames))
		for i := range values {
			valuePointers[i] = &values[i]
		}

		if err := rows.Scan(valuePointers...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, name := range columnNames {
			rowMap[name] = values[i]
		}
		result = append(result, rowMap)
	}

	return result, rows.Err()
}
