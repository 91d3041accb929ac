package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SchemaManager creates and drops tenant namespaces over the administrative
// connection. Names are always quoted through pgx.Identifier.
type SchemaManager struct {
	pool Pool
}

// ConnectSchemaManager opens the administrative pool.
func ConnectSchemaManager(ctx context.Context, dsn string) (*SchemaManager, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewSchemaManager(pool), nil
}

func NewSchemaManager(pool Pool) *SchemaManager {
	return &SchemaManager{pool: pool}
}

func (m *SchemaManager) Close()                         { m.pool.Close() }
func (m *SchemaManager) Ping(ctx context.Context) error { return m.pool.Ping(ctx) }

func (m *SchemaManager) SchemaExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := m.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		name,
	).Scan(&exists)
	return exists, mapError(err)
}

func (m *SchemaManager) CreateSchema(ctx context.Context, name string) error {
	_, err := m.pool.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{name}.Sanitize())
	return mapError(err)
}

func (m *SchemaManager) DropSchema(ctx context.Context, name string) error {
	_, err := m.pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{name}.Sanitize()+` CASCADE`)
	return mapError(err)
}

func (m *SchemaManager) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('public', 'information_schema')
			AND schema_name NOT LIKE 'pg\_%'
		ORDER BY schema_name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err)
		}
		out = append(out, name)
	}
	return out, mapError(rows.Err())
}
