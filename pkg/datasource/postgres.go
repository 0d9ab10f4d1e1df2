package datasource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/logging"
	"github.com/querypilot/engine/pkg/models"
)

// postgresExtractor introspects a PostgreSQL database via pgx.
type postgresExtractor struct {
	pool   *pgxpool.Pool
	conn   *ConnectionConfig
	logger *zap.Logger
}

func newPostgresExtractor(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (*postgresExtractor, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &postgresExtractor{pool: pool, conn: cfg, logger: logger.Named("postgres")}, nil
}

func (e *postgresExtractor) Close() error {
	e.pool.Close()
	return nil
}

// Extract enumerates tables, columns, primary keys, and foreign keys from
// the information schema. Row counts are probed per table and swallowed on
// failure; the count is advisory only.
func (e *postgresExtractor) Extract(ctx context.Context) (*models.SchemaInfo, error) {
	names, err := e.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	fksByTable, err := e.foreignKeys(ctx)
	if err != nil {
		return nil, err
	}

	schema := &models.SchemaInfo{}
	for _, name := range names {
		columns, err := e.columns(ctx, name)
		if err != nil {
			return nil, err
		}
		pk, err := e.primaryKey(ctx, name)
		if err != nil {
			return nil, err
		}

		table := models.TableInfo{
			Name:        name,
			Columns:     columns,
			PrimaryKey:  pk,
			ForeignKeys: fksByTable[name],
			RowCount:    e.probeRowCount(ctx, name),
		}
		schema.Tables = append(schema.Tables, table)
	}

	schema.RawText = schema.RenderText()
	return schema, nil
}

func (e *postgresExtractor) tableNames(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_name
	`
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func (e *postgresExtractor) columns(ctx context.Context, tableName string) ([]models.ColumnInfo, error) {
	const query = `
		SELECT column_name, data_type, is_nullable = 'YES', column_default
		FROM information_schema.columns
		WHERE table_name = $1
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY ordinal_position
	`
	rows, err := e.pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var c models.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func (e *postgresExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	const query = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_name = $1
		ORDER BY kcu.ordinal_position
	`
	rows, err := e.pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("query primary key for %s: %w", tableName, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan primary key column: %w", err)
		}
		pk = append(pk, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate primary key: %w", err)
	}
	return pk, nil
}

// foreignKeys returns constraints grouped by source table, with columns
// aggregated per constraint so composite keys stay together.
func (e *postgresExtractor) foreignKeys(ctx context.Context) (map[string][]models.ForeignKey, error) {
	const query = `
		SELECT
			tc.constraint_name,
			kcu.table_name AS source_table,
			kcu.column_name AS source_column,
			ccu.table_name AS target_table,
			ccu.column_name AS target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	type constraintKey struct {
		name  string
		table string
	}
	byConstraint := map[constraintKey]*models.ForeignKey{}
	var order []constraintKey

	for rows.Next() {
		var name, sourceTable, sourceColumn, targetTable, targetColumn string
		if err := rows.Scan(&name, &sourceTable, &sourceColumn, &targetTable, &targetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		key := constraintKey{name: name, table: sourceTable}
		fk, ok := byConstraint[key]
		if !ok {
			fk = &models.ForeignKey{ReferencedTable: targetTable}
			byConstraint[key] = fk
			order = append(order, key)
		}
		fk.Columns = append(fk.Columns, sourceColumn)
		fk.ReferencedColumns = append(fk.ReferencedColumns, targetColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	out := map[string][]models.ForeignKey{}
	for _, key := range order {
		out[key.table] = append(out[key.table], *byConstraint[key])
	}
	return out, nil
}

func (e *postgresExtractor) probeRowCount(ctx context.Context, tableName string) int64 {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", e.conn.QuoteIdentifier(tableName))
	var count int64
	if err := e.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		e.logger.Debug("row count probe failed",
			zap.String("table", tableName),
			zap.String("error", logging.SanitizeError(err)))
		return 0
	}
	return count
}

// postgresExecutor runs one statement and materializes its rows.
type postgresExecutor struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func newPostgresExecutor(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (*postgresExecutor, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &postgresExecutor{pool: pool, logger: logger.Named("postgres")}, nil
}

func (x *postgresExecutor) Close() error {
	x.pool.Close()
	return nil
}

func (x *postgresExecutor) Execute(ctx context.Context, sql string) ([]string, [][]any, error) {
	x.logger.Debug("executing statement", zap.String("sql", logging.SanitizeQuery(sql)))

	rows, err := x.pool.Query(ctx, sql)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, out, nil
}
