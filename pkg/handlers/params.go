package handlers

import (
	"github.com/querypilot/engine/pkg/datasource"
)

// ConnectionRequest optionally overrides the configured datasource for a
// single request. Zero-valued fields fall back to the configured values.
type ConnectionRequest struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	Family   string `json:"family,omitempty"`
}

// resolve merges the override onto the configured connection. A nil
// override returns the configured connection unchanged.
func (c *ConnectionRequest) resolve(def *datasource.ConnectionConfig) *datasource.ConnectionConfig {
	if c == nil {
		return def
	}
	merged := *def
	if c.Host != "" {
		merged.Host = c.Host
	}
	if c.Port != 0 {
		merged.Port = c.Port
	}
	if c.User != "" {
		merged.User = c.User
	}
	if c.Password != "" {
		merged.Password = c.Password
	}
	if c.Database != "" {
		merged.Database = c.Database
	}
	if c.Family != "" {
		merged.Family = datasource.Family(c.Family)
	}
	return &merged
}
