package models

// ChunkKind distinguishes the two retrieval granularities produced by the
// chunker.
type ChunkKind string

const (
	ChunkKindTable         ChunkKind = "table"
	ChunkKindRelationships ChunkKind = "relationships"
)

// MaxChunkTextStored bounds the chunk text kept in index metadata.
const MaxChunkTextStored = 1000

// SchemaChunk is one retrievable unit of schema text.
type SchemaChunk struct {
	Text      string            `json:"text"`
	TableName string            `json:"table_name"`
	Kind      ChunkKind         `json:"kind"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StoredText returns the chunk text truncated to the metadata size bound.
func (c *SchemaChunk) StoredText() string {
	if len(c.Text) > MaxChunkTextStored {
		return c.Text[:MaxChunkTextStored]
	}
	return c.Text
}
