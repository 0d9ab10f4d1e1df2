package models

import (
	"strconv"
	"strings"
)

// ColumnInfo is an immutable snapshot of one column.
type ColumnInfo struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// ForeignKey describes one foreign key constraint on a table.
type ForeignKey struct {
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
}

// TableInfo is an immutable snapshot of one table. Name is unique within
// a SchemaInfo.
type TableInfo struct {
	Name        string       `json:"name"`
	Columns     []ColumnInfo `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	RowCount    int64        `json:"row_count"`
}

// SchemaInfo is a point-in-time snapshot of a database schema. A new
// snapshot is produced on every extraction; it is never mutated in place.
type SchemaInfo struct {
	Tables  []TableInfo `json:"tables"`
	RawText string      `json:"raw_text"`
}

// TableNames returns the table names in extraction order.
func (s *SchemaInfo) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// RenderText builds the flattened human-readable rendering of the schema.
func (s *SchemaInfo) RenderText() string {
	var b strings.Builder
	for i, t := range s.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Table: " + t.Name + "\n")
		cols := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			cols[j] = c.Name + " (" + c.DataType + ")"
		}
		b.WriteString("  Columns: " + strings.Join(cols, ", ") + "\n")
		if len(t.PrimaryKey) > 0 {
			b.WriteString("  Primary key: " + strings.Join(t.PrimaryKey, ", ") + "\n")
		}
		for _, fk := range t.ForeignKeys {
			b.WriteString("  Foreign key: " + strings.Join(fk.Columns, ", ") +
				" -> " + fk.ReferencedTable + "(" + strings.Join(fk.ReferencedColumns, ", ") + ")\n")
		}
		if t.RowCount > 0 {
			b.WriteString("  Row count: " + strconv.FormatInt(t.RowCount, 10) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
