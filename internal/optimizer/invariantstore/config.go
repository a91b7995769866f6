package invariantstore

import "fmt"

// Config holds PostgreSQL connection configuration for the invariant store.
type Config struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string // disable, require, verify-ca, verify-full
	MaxOpenConns int
	MaxIdleConns int

	// AutoMigrate runs gorm's schema migration for InvariantRecord on Open.
	AutoMigrate bool
}

// ApplyDefaults fills in unset fields with the invariant store's defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
}

// DSN returns the PostgreSQL connection string gorm and pgx both accept.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Validate reports whether the configuration is complete enough to connect.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("invariantstore: host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("invariantstore: database is required")
	}
	if c.User == "" {
		return fmt.Errorf("invariantstore: user is required")
	}
	return nil
}
