package trac

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverPure is the modernc.org/sqlite driver (no cgo).
	DriverPure = "sqlite"
	// DriverCgo is the mattn/go-sqlite3 driver.
	DriverCgo = "sqlite3"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverPure, DriverCgo}

// Open opens a Trac SQLite database read-only.
func Open(driver, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("trac database not found at %s: %w", path, err)
	}

	dsn := "file:" + path + "?mode=ro"
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open trac database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open trac database: %w", err)
	}

	return db, nil
}
