package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/logging"
	"github.com/querypilot/engine/pkg/models"
)

// mysqlExtractor introspects a MySQL database via database/sql.
type mysqlExtractor struct {
	db     *sql.DB
	conn   *ConnectionConfig
	logger *zap.Logger
}

func newMySQLExtractor(cfg *ConnectionConfig, logger *zap.Logger) (*mysqlExtractor, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return &mysqlExtractor{db: db, conn: cfg, logger: logger.Named("mysql")}, nil
}

func (e *mysqlExtractor) Close() error {
	return e.db.Close()
}

func (e *mysqlExtractor) Extract(ctx context.Context) (*models.SchemaInfo, error) {
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
		columns, pk, err := e.columns(ctx, name)
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

func (e *mysqlExtractor) tableNames(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := e.db.QueryContext(ctx, query)
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

// columns returns column metadata and the primary key column list in one
// pass; information_schema.columns carries the PRI key flag on MySQL.
func (e *mysqlExtractor) columns(ctx context.Context, tableName string) ([]models.ColumnInfo, []string, error) {
	const query = `
		SELECT column_name, column_type, is_nullable = 'YES', column_default, column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := e.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("query columns for %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	var pk []string
	for rows.Next() {
		var c models.ColumnInfo
		var isPK bool
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default, &isPK); err != nil {
			return nil, nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
		if isPK {
			pk = append(pk, c.Name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, pk, nil
}

func (e *mysqlExtractor) foreignKeys(ctx context.Context) (map[string][]models.ForeignKey, error) {
	const query = `
		SELECT constraint_name, table_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position
	`
	rows, err := e.db.QueryContext(ctx, query)
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

func (e *mysqlExtractor) probeRowCount(ctx context.Context, tableName string) int64 {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", e.conn.QuoteIdentifier(tableName))
	var count int64
	if err := e.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		e.logger.Debug("row count probe failed",
			zap.String("table", tableName),
			zap.String("error", logging.SanitizeError(err)))
		return 0
	}
	return count
}

// mysqlExecutor runs one statement and materializes its rows.
type mysqlExecutor struct {
	db     *sql.DB
	logger *zap.Logger
}

func newMySQLExecutor(cfg *ConnectionConfig, logger *zap.Logger) (*mysqlExecutor, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return &mysqlExecutor{db: db, logger: logger.Named("mysql")}, nil
}

func (x *mysqlExecutor) Close() error {
	return x.db.Close()
}

func (x *mysqlExecutor) Execute(ctx context.Context, query string) ([]string, [][]any, error) {
	x.logger.Debug("executing statement", zap.String("sql", logging.SanitizeQuery(query)))

	rows, err := x.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		// The mysql driver hands back []byte for text values.
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				raw[i] = string(b)
			}
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, out, nil
}
