package app

import (
	"strings"

	"github.com/charlesng35/folio/internal/database"
	"github.com/charlesng35/folio/internal/services"
)

// ConnectionConfig resolves the configured driver into database.Config.
// The postgres and mysql sections only apply when their driver is selected.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	if driver == "" {
		driver = "sqlite"
	}

	cfg := database.Config{
		Driver: driver,
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var remote DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		remote = c.Postgres
	case "mysql":
		remote = c.MySQL
	default:
		return cfg
	}

	cfg.Host = strings.TrimSpace(remote.Host)
	cfg.Port = remote.Port
	cfg.Name = strings.TrimSpace(remote.Database)
	cfg.User = strings.TrimSpace(remote.Username)
	cfg.Password = remote.Password
	return cfg
}

// StorePolicy converts the query timeout and retry settings for the services layer.
func (c DatabaseConfig) StorePolicy() services.StorePolicy {
	policy := services.DefaultStorePolicy()
	if c.QueryTimeout > 0 {
		policy.Timeout = c.QueryTimeout
	}
	if c.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.MaxWait > 0 {
		policy.MaxWait = c.Retry.MaxWait
	}
	return policy
}
