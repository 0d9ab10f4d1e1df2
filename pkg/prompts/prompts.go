// Package prompts builds the prompt texts sent to the generation provider.
package prompts

import "fmt"

// sqlRules is the fixed rule block embedded in every generation prompt.
const sqlRules = `- Use explicit column names; avoid SELECT *.
- Use table aliases for clarity (e.g. c for customers, o for orders).
- Always add a reasonable LIMIT (e.g. LIMIT 100) unless the question asks for all rows or an aggregate.
- Use valid table and column names only from the schema context.
- For "unique", "distinct", or "without duplicates" on a column: use SELECT DISTINCT TRIM(column) AS column (or LOWER(TRIM(column)) if case should not matter) so values that differ only by whitespace or case collapse to one row.
- Output only the SQL statement, no markdown or explanation.`

// BuildIntentPrompt requests the four labeled lines the intent parser reads.
func BuildIntentPrompt(question string) string {
	return fmt.Sprintf(`Analyze this natural language database question. Output a structured representation.

User question: %s

Respond in this exact format (one line each):
INTENT: [one of: SELECT, aggregation, filter, join]
ENTITIES: [comma-separated likely table/column names or concepts, e.g. customers, orders, customer_name]
CONDITIONS: [comma-separated filter hints, e.g. status=active, date range]
SUMMARY: [one short sentence describing what the user wants, for semantic search]
`, question)
}

// BuildSQLPrompt embeds the retrieved schema context and the rule block.
func BuildSQLPrompt(question, schemaContext string) string {
	return fmt.Sprintf(`You are a SQL expert. Generate a single, executable SQL query.

Schema context (use only these tables and columns):
%s

Rules:
%s

User question: %s

Output only the SQL query, nothing else.`, schemaContext, sqlRules, question)
}

// BuildSummaryPrompt asks for a one-sentence result summary. Only a small
// row sample is included so the model cannot echo whole result sets.
func BuildSummaryPrompt(question, sql string, columns []string, sample [][]any) string {
	return fmt.Sprintf(`User asked: %s
SQL: %s
Columns: %v
Sample rows (first %d only): %v

Reply with ONLY one short sentence. Do NOT list rows or repeat data. Example: 'Returned 4 customers.' or 'Query returned 4 rows.'`,
		question, sql, columns, len(sample), sample)
}
