package catalog

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Kind distinguishes target and decoy rows.
type Kind string

const (
	Target Kind = "target"
	Decoy  Kind = "decoy"
)

// Entry is one catalog row. Paired is the matched decoy of a target or the
// target a decoy was derived from, and is empty when there is none.
type Entry struct {
	Sequence string
	Kind     Kind
	Mass     float64
	Paired   string
}

type entryKey struct {
	sequence string
	kind     Kind
}

// WriteEntries batch-inserts entries using the Appender API. Duplicate
// (sequence, kind) entries are dropped before writing.
func (s *Store) WriteEntries(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	seen := make(map[entryKey]bool, len(entries))
	deduped := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{e.Sequence, e.Kind}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, e)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "peptides")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, e := range deduped {
		if err := appender.AppendRow(e.Sequence, string(e.Kind), e.Mass, int32(len(e.Sequence)), e.Paired); err != nil {
			return fmt.Errorf("append peptide %s: %w", e.Sequence, err)
		}
	}

	return appender.Flush()
}

// Clear removes all catalog rows.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM peptides")
	return err
}

// Lookup returns the rows for sequence, targets first.
func (s *Store) Lookup(sequence string) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT sequence, kind, mass, paired
		FROM peptides WHERE sequence=? ORDER BY kind DESC`, sequence)
	if err != nil {
		return nil, fmt.Errorf("query peptide: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.Sequence, &kind, &e.Mass, &e.Paired); err != nil {
			return nil, fmt.Errorf("scan peptide: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peptides: %w", err)
	}
	return out, nil
}

// InMassRange returns the entries of one kind with mass in [lo, hi],
// ordered by mass.
func (s *Store) InMassRange(kind Kind, lo, hi float64) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT sequence, kind, mass, paired
		FROM peptides WHERE kind=? AND mass BETWEEN ? AND ? ORDER BY mass, sequence`,
		string(kind), lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query mass range: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var k string
		if err := rows.Scan(&e.Sequence, &k, &e.Mass, &e.Paired); err != nil {
			return nil, fmt.Errorf("scan peptide: %w", err)
		}
		e.Kind = Kind(k)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of rows of the given kind.
func (s *Store) Count(kind Kind) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM peptides WHERE kind=?", string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count peptides: %w", err)
	}
	return n, nil
}
