package db

import (
	"fmt"
	"net/url"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "tradieapp.db"

// Dialect picks the GORM driver for cfg.Type. PostgreSQL is the production
// target; MySQL and SQLite exist for local development. All of them store
// timestamps in UTC.
func Dialect(cfg Config) (gorm.Dialector, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the driver connection string for cfg.
func (c Config) DSN() (string, error) {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode), nil
	case "mysql":
		params := url.Values{}
		params.Set("charset", "utf8mb4")
		params.Set("parseTime", "True")
		params.Set("loc", "UTC")
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
			c.User, c.Password, c.Host, c.Port, c.Name, params.Encode()), nil
	case "sqlite":
		if c.Name == "" {
			return defaultSQLiteFile, nil
		}
		return c.Name, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", c.Type)
	}
}

// IsPostgres reports whether conn talks to PostgreSQL.
func IsPostgres(conn *gorm.DB) bool {
	return conn != nil && conn.Dialector != nil && conn.Dialector.Name() == "postgres"
}
