package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/table-reservation/internal/config"
)

// DB wraps the connection pool together with the driver it was opened
// with, so repositories can emit the few driver specific clauses they
// need (row locks).
type DB struct {
	*sql.DB
	Driver string
}

// ForUpdate returns the row locking suffix for SELECT statements run
// inside a transaction. SQLite has no row locks; its write transactions
// are opened with BEGIN IMMEDIATE instead (see sqliteDSN).
func (d *DB) ForUpdate() string {
	if d.Driver == config.DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// Open connects to the configured database and verifies the connection.
func Open(cfg config.DBConfig) (*DB, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return OpenMySQL(cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
	case config.DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, Driver: config.DriverMySQL}, nil
}

// OpenSQLite opens (or creates) a SQLite database file. Foreign keys are
// enforced and every transaction takes the write lock up front, which
// serializes the overlap check and insert of concurrent bookings.
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, Driver: config.DriverSQLite}, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000", path)
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
