package models

// QueryIntent is the structured reading of a natural-language question.
// Intent is an open string rather than an enum: the model may emit labels
// outside the requested set and those are tolerated as-is.
type QueryIntent struct {
	Intent     string   `json:"intent"`
	Entities   []string `json:"entities"`
	Conditions []string `json:"conditions"`
	Summary    string   `json:"summary"`
}

// DefaultIntent is assigned when the model response carries no INTENT line.
const DefaultIntent = "SELECT"
