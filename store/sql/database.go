package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DialectFor maps a database/sql driver name to its bun dialect.
func DialectFor(driver string) (schema.Dialect, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case DriverPostgres:
		return pgdialect.New(), nil
	case DriverSQLite, "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// OpenDatabase opens a sql.DB for the given driver together with the bun
// dialect the persistence client needs. SQLite connections are pinned to a
// single conn so in-memory databases survive pool recycling.
func OpenDatabase(driver string, dsn string) (*sql.DB, schema.Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, fmt.Errorf("sqlstore: dsn is required")
	}
	name := strings.TrimSpace(strings.ToLower(driver))
	if name == "sqlite" {
		name = DriverSQLite
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: open %s database: %w", name, err)
	}
	if name == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, dialect, nil
}

// NewBunDB wraps an open handle in a bun.DB with the driver's dialect, for
// hosts that skip the persistence client and hand the factory a bare DB.
func NewBunDB(db *sql.DB, driver string) (*bun.DB, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: sql db is required")
	}
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(db, dialect), nil
}
