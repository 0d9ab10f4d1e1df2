// Package datasource provides per-connection schema extraction and query
// execution for the supported database families.
package datasource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/querypilot/engine/pkg/config"
)

// Family selects identifier quoting and connection URL scheme.
type Family string

const (
	FamilyMySQL    Family = "mysql"
	FamilyPostgres Family = "postgres"
)

// ConnectionConfig holds the parameters of one logical database connection.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Family   Family `json:"family"`
}

// FromAppConfig builds the default connection from application config.
func FromAppConfig(db *config.DatabaseConfig) *ConnectionConfig {
	return &ConnectionConfig{
		Host:     db.Host,
		Port:     db.Port,
		User:     db.User,
		Password: db.Password,
		Database: db.Database,
		Family:   Family(db.Family),
	}
}

// Fingerprint returns a stable tenant key for this connection. It is derived
// from (host, port, user, database) only, so identical parameters always map
// to the same key, and it cannot be reversed to recover credentials.
func (c *ConnectionConfig) Fingerprint() string {
	raw := fmt.Sprintf("%s:%d:%s:%s", c.Host, c.Port, c.User, c.Database)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// DSN returns the driver connection string for this family.
func (c *ConnectionConfig) DSN() string {
	if c.Family == FamilyPostgres {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:   "/" + c.Database,
		}
		return u.String()
	}
	// go-sql-driver DSN format
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// QuoteIdentifier quotes a table or column name for this family:
// backticks for mysql, double quotes for postgres. Embedded quote
// characters are doubled.
func (c *ConnectionConfig) QuoteIdentifier(name string) string {
	if c.Family == FamilyPostgres {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
