// Package trac reads page history out of a Trac wiki database.
package trac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultReservedAddress is the origin Trac records for pages it installs
// itself (help pages, WikiStart template, ...).
const DefaultReservedAddress = "127.0.0.1"

// Revision is one row of the Trac wiki table.
type Revision struct {
	Page    string
	Version int
	Time    float64 // seconds since epoch (microseconds on Trac >= 0.12)
	Author  string
	Addr    string
	Text    string
	Comment string
}

// Store runs the queries the migration needs against the wiki table.
type Store struct {
	db       *sql.DB
	reserved string
}

// NewStore wraps db. Pages whose only origin is reserved are skipped.
func NewStore(db *sql.DB, reserved string) *Store {
	return &Store{db: db, reserved: reserved}
}

// Pages returns the names of all pages with at least one revision from an
// origin other than the reserved address.
func (s *Store) Pages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name
		FROM wiki
		WHERE COALESCE(ipnr, '') != ?
		GROUP BY name
		ORDER BY name
	`, s.reserved)
	if err != nil {
		return nil, fmt.Errorf("trac: query pages: %w", err)
	}
	defer rows.Close()

	var pages []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("trac: scan page: %w", err)
		}
		pages = append(pages, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trac: iterate pages: %w", err)
	}
	return pages, nil
}

// Revisions returns every revision of page ordered by version.
func (s *Store) Revisions(ctx context.Context, page string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version, time, author, ipnr, text, comment
		FROM wiki
		WHERE name = ?
		ORDER BY version ASC
	`, page)
	if err != nil {
		return nil, fmt.Errorf("trac: query revisions of %q: %w", page, err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("trac: scan revision of %q: %w", page, err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trac: iterate revisions of %q: %w", page, err)
	}
	return revisions, nil
}

// Latest returns the highest version of page.
func (s *Store) Latest(ctx context.Context, page string) (Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, version, time, author, ipnr, text, comment
		FROM wiki
		WHERE name = ?
		ORDER BY version DESC
		LIMIT 1
	`, page)
	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("trac: page %q has no revisions: %w", page, err)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("trac: query latest revision of %q: %w", page, err)
	}
	return rev, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(sc scanner) (Revision, error) {
	var rev Revision
	var ts sql.NullFloat64
	var author, addr, text, comment sql.NullString
	if err := sc.Scan(&rev.Page, &rev.Version, &ts, &author, &addr, &text, &comment); err != nil {
		return Revision{}, err
	}
	rev.Time = ts.Float64
	rev.Author = author.String
	rev.Addr = addr.String
	rev.Text = text.String
	rev.Comment = comment.String
	return rev, nil
}
