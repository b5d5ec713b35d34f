package config

import "fmt"

// DatabaseConfig holds connection settings for the breadcrumb store's
// backing SQL database. Supports PostgreSQL (the production profile),
// MySQL, and SQLite (embedded/single-node and test profile).
type DatabaseConfig struct {
	// Driver selects the SQL dialect: "postgres", "mysql", or "sqlite".
	Driver string `yaml:"driver"`

	// Host is the database server hostname (not required for SQLite).
	Host string `yaml:"host,omitempty"`

	// Port is the database server port (not required for SQLite).
	Port int `yaml:"port,omitempty"`

	// Database is the database name, or file path for SQLite.
	Database string `yaml:"database"`

	// Username for database authentication (not required for SQLite).
	Username string `yaml:"username,omitempty"`

	// Password for database authentication (not required for SQLite).
	Password string `yaml:"password,omitempty"`

	// SSLMode for PostgreSQL connections.
	SSLMode string `yaml:"ssl_mode,omitempty"`

	// MaxConns is the maximum number of open connections.
	MaxConns int `yaml:"max_conns,omitempty"`

	// MaxIdle is the maximum number of idle connections.
	MaxIdle int `yaml:"max_idle,omitempty"`
}

// SetDefaults applies default values to the database config.
func (c *DatabaseConfig) SetDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}
	if c.Port == 0 {
		switch c.Driver {
		case "postgres":
			c.Port = 5432
		case "mysql":
			c.Port = 3306
		}
	}
	if c.Driver == "postgres" && c.SSLMode == "" {
		c.SSLMode = "disable"
	}
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("database: driver is required")
	}
	validDrivers := map[string]bool{"postgres": true, "mysql": true, "sqlite": true, "sqlite3": true}
	if !validDrivers[c.Driver] {
		return fmt.Errorf("database: invalid driver %q (valid: postgres, mysql, sqlite)", c.Driver)
	}
	if c.Database == "" {
		return fmt.Errorf("database: database is required")
	}
	if c.Driver != "sqlite" && c.Driver != "sqlite3" && c.Host == "" {
		return fmt.Errorf("database: host is required for %s", c.Driver)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("database: max_conns must be non-negative")
	}
	if c.MaxIdle < 0 {
		return fmt.Errorf("database: max_idle must be non-negative")
	}
	return nil
}

// DSN returns the data source name for sql.Open().
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s", c.Host, c.Port, c.Database)
		if c.Username != "" {
			dsn += fmt.Sprintf(" user=%s", c.Username)
		}
		if c.Password != "" {
			dsn += fmt.Sprintf(" password=%s", c.Password)
		}
		if c.SSLMode != "" {
			dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
		}
		return dsn
	case "mysql":
		if c.Username != "" {
			return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.Username, c.Password, c.Host, c.Port, c.Database)
		}
		return fmt.Sprintf("tcp(%s:%d)/%s?parseTime=true", c.Host, c.Port, c.Database)
	case "sqlite", "sqlite3":
		return c.Database
	default:
		return ""
	}
}

// DriverName returns the normalized driver name for sql.Open().
func (c *DatabaseConfig) DriverName() string {
	if c.Driver == "sqlite" {
		return "sqlite3"
	}
	return c.Driver
}

// Dialect returns the normalized SQL dialect name for query building, the
// breadcrumb store's query builder switches on this to decide whether
// distance ordering happens in SQL (postgres with a vector column) or in
// application code (mysql, sqlite).
func (c *DatabaseConfig) Dialect() string {
	if c.Driver == "sqlite3" {
		return "sqlite"
	}
	return c.Driver
}

// HasNativeVectorOps reports whether the dialect can order by vector
// distance directly in SQL.
func (c *DatabaseConfig) HasNativeVectorOps() bool {
	return c.Dialect() == "postgres"
}
