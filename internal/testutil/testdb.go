package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// WikiSchema is the wiki table as created by Trac 0.11.
const WikiSchema = `
CREATE TABLE wiki (
    name text,
    version integer,
    time integer,
    author text,
    ipnr text,
    text text,
    comment text,
    readonly integer,
    UNIQUE (name, version)
);
`

// Row is one seeded wiki revision.
type Row struct {
	Name    string
	Version int
	Time    float64
	Author  string
	Addr    string
	Text    string
	Comment any // nil stores NULL
}

// OpenTracDB creates a Trac database file in a temp dir, seeds rows into it
// and returns the path together with an open handle.
func OpenTracDB(t *testing.T, rows ...Row) (string, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trac.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(WikiSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	for _, r := range rows {
		InsertRow(t, db, r)
	}
	return path, db
}

// InsertRow adds one revision to the wiki table.
func InsertRow(t *testing.T, db *sql.DB, r Row) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO wiki (name, version, time, author, ipnr, text, comment, readonly)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, r.Name, r.Version, r.Time, r.Author, r.Addr, r.Text, r.Comment)
	if err != nil {
		t.Fatalf("insert wiki row %s@%d: %v", r.Name, r.Version, err)
	}
}
