// Package database opens the sqlx handle used by every repository and
// applies the embedded schema.
package database

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLiteDSN = "file:./storage/panoguard.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
)

//go:embed schema.sql
var schema string

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// New connects with the given driver. SQLite gets a single connection so
// writes never contend and in-memory databases survive between queries.
func New(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// NewFromEnv reads DB_DRIVER and DB_DSN, or the DB_HOST family for postgres.
func NewFromEnv() (*sqlx.DB, error) {
	driver, dsn := ConfigFromEnv()
	if driver == DriverSQLite {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
	}
	return New(driver, dsn)
}

func ConfigFromEnv() (string, string) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = DriverSQLite
	}

	dsn := os.Getenv("DB_DSN")
	if dsn != "" {
		return driver, dsn
	}

	if driver == DriverPostgres {
		sslMode := os.Getenv("DB_SSLMODE")
		if sslMode == "" {
			sslMode = "disable"
		}
		return driver, fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			sslMode,
		)
	}

	return driver, defaultSQLiteDSN
}

// Migrate applies schema.sql. Every statement is idempotent.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range statements(schema) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func statements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}

	dir := path[:strings.LastIndexAny(path, `/\`)+1]
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
