package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/datasource"
)

// forbiddenKeywords are rejected as whole words anywhere in a statement
// when read-only mode is enabled.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "REPLACE",
}

// startKeywords are the statement-leading keywords the syntax stage accepts.
// Mutating keywords are included here on purpose: the read-only stage, not
// the syntax stage, is where they are rejected.
var startKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "DESCRIBE": true, "EXPLAIN": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true, "CREATE": true,
	"ALTER": true, "TRUNCATE": true, "REPLACE": true,
}

var (
	limitPattern     = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	tableRefPattern  = regexp.MustCompile("(?i)\\b(?:FROM|JOIN)\\s+[\"`]?([a-zA-Z_][a-zA-Z0-9_]*)")
	firstWordPattern = regexp.MustCompile(`^[a-zA-Z]+`)
	literalPattern   = regexp.MustCompile(`'((?:[^']|'')*)'`)
	forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
)

// SQLValidator is the sequential safety gate over generated SQL. Stages
// run in fixed order and short-circuit on the first failure: syntax,
// read-only, row-limit ceiling, table existence. The reason string is
// empty exactly when the statement passes.
type SQLValidator interface {
	Validate(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (bool, string, error)
}

type sqlValidator struct {
	readOnly bool
	maxRows  int
	catalog  TableCatalog
	logger   *zap.Logger
}

// NewSQLValidator creates the validator gate.
func NewSQLValidator(readOnly bool, maxRows int, catalog TableCatalog, logger *zap.Logger) SQLValidator {
	return &sqlValidator{
		readOnly: readOnly,
		maxRows:  maxRows,
		catalog:  catalog,
		logger:   logger.Named("validator"),
	}
}

// Validate runs the gate. The error return is reserved for connectivity
// failures while resolving the schema table list; validation verdicts are
// always (pass, reason).
func (v *sqlValidator) Validate(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (bool, string, error) {
	if ok, reason := v.checkSyntax(sql); !ok {
		return false, reason, nil
	}
	if ok, reason := v.checkReadOnly(sql); !ok {
		return false, reason, nil
	}
	if ok, reason := v.checkRowLimit(sql); !ok {
		return false, reason, nil
	}
	ok, reason, err := v.checkTablesExist(ctx, conn, sql)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, reason, nil
	}
	return true, "", nil
}

// checkSyntax rejects statements that do not tokenize as SQL at all:
// empty input, an unrecognized leading keyword, unbalanced string
// literals, more than one statement, or an injection pattern smuggled
// inside a string literal.
func (v *sqlValidator) checkSyntax(sql string) (bool, string) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return false, "Invalid SQL: empty statement."
	}

	first := firstWordPattern.FindString(trimmed)
	if first == "" || !startKeywords[strings.ToUpper(first)] {
		return false, fmt.Sprintf("Invalid SQL: unrecognized statement start %q.", firstToken(trimmed))
	}

	normalized := stripTrailingSemicolon(trimmed)
	if !quotesBalanced(normalized) {
		return false, "Invalid SQL: unterminated string literal."
	}
	if hasSemicolonOutsideStrings(normalized) {
		return false, "Invalid SQL: multiple statements are not allowed."
	}

	for _, m := range literalPattern.FindAllStringSubmatch(normalized, -1) {
		literal := strings.ReplaceAll(m[1], "''", "'")
		if isSQLi, fingerprint := libinjection.IsSQLi(literal); isSQLi {
			v.logger.Warn("injection pattern in string literal",
				zap.String("fingerprint", fingerprint))
			return false, "Invalid SQL: injection pattern detected in string literal."
		}
	}

	return true, ""
}

func (v *sqlValidator) checkReadOnly(sql string) (bool, string) {
	if !v.readOnly {
		return true, ""
	}
	if m := forbiddenPattern.FindStringSubmatch(sql); m != nil {
		return false, fmt.Sprintf("Read-only mode: %s is not allowed.", strings.ToUpper(m[1]))
	}
	return true, ""
}

// checkRowLimit rejects a LIMIT above the ceiling. Absence of LIMIT is not
// rejected here; limit injection happens upstream in the orchestrator.
func (v *sqlValidator) checkRowLimit(sql string) (bool, string) {
	m := limitPattern.FindStringSubmatch(sql)
	if m == nil {
		return true, ""
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return true, ""
	}
	if value > v.maxRows {
		return false, fmt.Sprintf("LIMIT %d exceeds maximum allowed (%d).", value, v.maxRows)
	}
	return true, ""
}

// checkTablesExist scans identifiers following FROM or JOIN against the
// known table names. This is a heuristic token scan, not a parse tree
// walk: it does not resolve aliases or subquery-derived tables.
func (v *sqlValidator) checkTablesExist(ctx context.Context, conn *datasource.ConnectionConfig, sql string) (bool, string, error) {
	names, err := v.catalog.TableNames(ctx, conn)
	if err != nil {
		return false, "", fmt.Errorf("resolve table names: %w", err)
	}

	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[strings.ToLower(name)] = true
	}

	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		if !known[name] {
			return false, fmt.Sprintf("Unknown table: %s", name), nil
		}
	}
	return true, "", nil
}

func firstToken(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// stripTrailingSemicolon removes one trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(sql string) string {
	sql = strings.TrimRight(sql, " \t\n\r")
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimRight(strings.TrimSuffix(sql, ";"), " \t\n\r")
	}
	return sql
}

// quotesBalanced reports whether every single- and double-quoted literal
// is terminated. SQL standard doubled quotes ('') read as exit-and-reenter,
// which still balances.
func quotesBalanced(sql string) bool {
	inSingle, inDouble := false, false
	for _, char := range sql {
		switch {
		case inSingle:
			if char == '\'' {
				inSingle = false
			}
		case inDouble:
			if char == '"' {
				inDouble = false
			}
		case char == '\'':
			inSingle = true
		case char == '"':
			inDouble = true
		}
	}
	return !inSingle && !inDouble
}

// hasSemicolonOutsideStrings returns true if a semicolon remains outside
// string literals after the trailing one was stripped; that means multiple
// statements.
func hasSemicolonOutsideStrings(sql string) bool {
	inSingle, inDouble := false, false
	for _, char := range sql {
		switch {
		case inSingle:
			if char == '\'' {
				inSingle = false
			}
		case inDouble:
			if char == '"' {
				inDouble = false
			}
		case char == ';':
			return true
		case char == '\'':
			inSingle = true
		case char == '"':
			inDouble = true
		}
	}
	return false
}
