package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Conn is the subset of pgx connection types the loader needs. Both
// *pgx.Conn and *pgxpool.Pool satisfy it.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadPostgres builds a Registry from information_schema for one database
// schema (usually "public"). Identity columns are the primary key columns;
// a column has a default when column_default is set or it is an identity
// column generated by the database.
func LoadPostgres(ctx context.Context, conn Conn, pgSchema string) (*Registry, error) {
	tableRows, err := conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, pgSchema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer tableRows.Close()

	var names []string
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := tableRows.Err(); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := loadColumns(ctx, conn, pgSchema, name)
		if err != nil {
			return nil, fmt.Errorf("load columns %s.%s: %w", pgSchema, name, err)
		}
		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return NewRegistry(tables...), nil
}

func loadColumns(ctx context.Context, conn Conn, pgSchema, table string) ([]Column, error) {
	rows, err := conn.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			c.column_default IS NOT NULL OR c.is_identity = 'YES',
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = $1
					AND tc.table_name = $2
					AND kcu.column_name = c.column_name
			) AS is_primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, pgSchema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		var dataType string
		if err := rows.Scan(&col.Name, &dataType, &col.Nullable, &col.HasDefault, &col.IsIdentity); err != nil {
			return nil, err
		}
		col.Kind = KindOf(dataType)
		cols = append(cols, col)
	}
	return cols, rows.Err()
}
