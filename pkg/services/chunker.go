package services

import (
	"strings"

	"github.com/querypilot/engine/pkg/models"
)

// Chunker splits a schema snapshot into retrievable chunks. Chunking is
// pure and deterministic: exactly one table chunk per table, plus one
// relationships chunk for each table that has foreign keys. One table per
// chunk is the retrieval granularity; merging tables would blur retrieval
// and splitting columns apart would lose co-location context.
type Chunker struct{}

// NewChunker creates a chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Chunk converts the snapshot into ordered chunks.
func (c *Chunker) Chunk(schema *models.SchemaInfo) []models.SchemaChunk {
	var chunks []models.SchemaChunk
	for _, table := range schema.Tables {
		chunks = append(chunks, c.tableChunk(&table))
		if len(table.ForeignKeys) > 0 {
			chunks = append(chunks, c.relationshipsChunk(&table))
		}
	}
	return chunks
}

func (c *Chunker) tableChunk(table *models.TableInfo) models.SchemaChunk {
	cols := make([]string, len(table.Columns))
	colNames := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		cols[i] = col.Name + " (" + col.DataType + ")"
		colNames[i] = col.Name
	}

	lines := []string{
		"Table: " + table.Name,
		"Columns: " + strings.Join(cols, ", "),
	}
	if len(table.PrimaryKey) > 0 {
		lines = append(lines, "Primary key: "+strings.Join(table.PrimaryKey, ", "))
	}

	return models.SchemaChunk{
		Text:      strings.Join(lines, "\n"),
		TableName: table.Name,
		Kind:      models.ChunkKindTable,
		Metadata: map[string]string{
			"columns": strings.Join(colNames, ","),
			"pk":      strings.Join(table.PrimaryKey, ","),
		},
	}
}

func (c *Chunker) relationshipsChunk(table *models.TableInfo) models.SchemaChunk {
	lines := []string{"Table " + table.Name + " relationships:"}
	var targets []string
	for _, fk := range table.ForeignKeys {
		lines = append(lines, "  "+strings.Join(fk.Columns, ", ")+
			" references "+fk.ReferencedTable+"("+strings.Join(fk.ReferencedColumns, ", ")+")")
		targets = append(targets, fk.ReferencedTable)
	}

	return models.SchemaChunk{
		Text:      strings.Join(lines, "\n"),
		TableName: table.Name,
		Kind:      models.ChunkKindRelationships,
		Metadata: map[string]string{
			"references": strings.Join(targets, ","),
		},
	}
}
