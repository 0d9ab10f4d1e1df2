package models

// IngestResult reports what a schema ingestion run produced.
type IngestResult struct {
	Tables          int `json:"tables"`
	Chunks          int `json:"chunks"`
	VectorsUpserted int `json:"vectors_upserted"`
}

// GenerateResult is the uniform envelope returned by the query pipeline.
// SQLList is set only on the fan-out path (one statement per table).
type GenerateResult struct {
	SQL         string       `json:"sql"`
	Valid       bool         `json:"valid"`
	Error       string       `json:"error"`
	Intent      *QueryIntent `json:"intent,omitempty"`
	ContextUsed string       `json:"context_used"`
	SQLList     []string     `json:"sql_list,omitempty"`
}

// JobState is the lifecycle phase of a background ingestion job.
type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus is the persisted record of a background job, read via polling.
type JobStatus struct {
	JobID  string        `json:"job_id"`
	Status JobState      `json:"status"`
	Result *IngestResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// QueryResult holds rows returned by executing one statement.
type QueryResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Summary  string   `json:"summary,omitempty"`
}

// TableResult pairs one fan-out statement with its execution outcome.
// A failed table records its error without affecting sibling tables.
type TableResult struct {
	SQL      string   `json:"sql"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Error    string   `json:"error,omitempty"`
}
