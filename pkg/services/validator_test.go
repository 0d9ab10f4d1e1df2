package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/datasource"
)

// mockCatalog counts TableNames calls so tests can verify stage
// short-circuiting, not just the final verdict.
type mockCatalog struct {
	names []string
	err   error
	calls int
}

func (m *mockCatalog) TableNames(ctx context.Context, conn *datasource.ConnectionConfig) ([]string, error) {
	m.calls++
	return m.names, m.err
}

func testConn() *datasource.ConnectionConfig {
	return &datasource.ConnectionConfig{
		Host: "db", Port: 5432, User: "app", Database: "shop", Family: datasource.FamilyPostgres,
	}
}

func newValidator(readOnly bool, maxRows int, catalog TableCatalog) SQLValidator {
	return NewSQLValidator(readOnly, maxRows, catalog, zap.NewNop())
}

func TestValidate_AcceptsWellFormedSelect(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users", "orders"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "SELECT u.id FROM users u LIMIT 100")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, reason)
}

func TestValidate_SyntaxFailureShortCircuits(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "%%% not sql at all")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "Invalid SQL")

	// The table-existence stage must not run on an invalid statement.
	assert.Zero(t, catalog.calls)
}

func TestValidate_ReadOnlyRejectsMutatingKeywords(t *testing.T) {
	catalog := &mockCatalog{names: []string{"orders"}}

	valid, reason, err := newValidator(true, 1000, catalog).
		Validate(context.Background(), testConn(), "DELETE FROM orders")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "DELETE")
	assert.Zero(t, catalog.calls)
}

func TestValidate_ReadOnlyDisabledAllowsMutation(t *testing.T) {
	catalog := &mockCatalog{names: []string{"orders"}}

	valid, reason, err := newValidator(false, 1000, catalog).
		Validate(context.Background(), testConn(), "DELETE FROM orders")
	require.NoError(t, err)
	assert.True(t, valid, "reason: %s", reason)
}

func TestValidate_LimitCeiling(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "SELECT u.id FROM users u LIMIT 5000")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "5000")
	assert.Zero(t, catalog.calls)

	// A statement without LIMIT is not rejected at this stage.
	valid, _, err = v.Validate(context.Background(), testConn(), "SELECT u.id FROM users u")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestValidate_UnknownTableRejected(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users", "orders"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "SELECT * FROM nonexistent_table")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "nonexistent_table")
}

func TestValidate_TableMatchIsCaseInsensitive(t *testing.T) {
	catalog := &mockCatalog{names: []string{"Users"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "SELECT id FROM USERS LIMIT 10")
	require.NoError(t, err)
	assert.True(t, valid, "reason: %s", reason)
}

func TestValidate_JoinTargetsChecked(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(),
		"SELECT u.id FROM users u LEFT JOIN phantom p ON p.user_id = u.id LIMIT 10")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "phantom")
}

func TestValidate_MultipleStatementsRejected(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "SELECT 1; SELECT 2")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "multiple statements")
	assert.Zero(t, catalog.calls)
}

func TestValidate_TrailingSemicolonTolerated(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), "SELECT id FROM users LIMIT 10;")
	require.NoError(t, err)
	assert.True(t, valid, "reason: %s", reason)
}

func TestValidate_InjectionLiteralRejected(t *testing.T) {
	catalog := &mockCatalog{names: []string{"users"}}
	v := newValidator(true, 1000, catalog)

	// Literal decodes to the canonical payload 1' OR '1'='1.
	valid, reason, err := v.Validate(context.Background(), testConn(),
		"SELECT id FROM users WHERE name = '1'' OR ''1''=''1'")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "injection")
	assert.Zero(t, catalog.calls)
}

func TestValidate_QuotedTableReferenceResolved(t *testing.T) {
	catalog := &mockCatalog{names: []string{"customers"}}
	v := newValidator(true, 1000, catalog)

	valid, reason, err := v.Validate(context.Background(), testConn(), `SELECT * FROM "customers" LIMIT 1000`)
	require.NoError(t, err)
	assert.True(t, valid, "reason: %s", reason)

	valid, reason, err = v.Validate(context.Background(), testConn(), `SELECT * FROM "phantom" LIMIT 1000`)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, reason, "phantom")
}

func TestValidate_CatalogErrorSurfaces(t *testing.T) {
	catalog := &mockCatalog{err: errors.New("connection refused")}
	v := newValidator(true, 1000, catalog)

	_, _, err := v.Validate(context.Background(), testConn(), "SELECT id FROM users LIMIT 10")
	require.Error(t, err)
}
