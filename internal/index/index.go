// Package index reads and writes the binary peptide index directory:
//
//	<dir>/proteins.bin  protein records in ordinal order
//	<dir>/peptides.bin  peptide records sorted by mass
//	<dir>/index.meta    source fingerprint and build parameters
package index

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/inodb/pepdb/internal/protein"
	"github.com/inodb/pepdb/internal/record"
)

// ErrExists is returned by Create when the directory already holds an index
// and overwrite was not requested.
var ErrExists = errors.New("index directory already exists")

// Layout holds the file paths of an index directory.
type Layout struct {
	Dir      string
	Proteins string
	Peptides string
	Meta     string
}

// Paths returns the layout of dir.
func Paths(dir string) Layout {
	return Layout{
		Dir:      dir,
		Proteins: filepath.Join(dir, "proteins.bin"),
		Peptides: filepath.Join(dir, "peptides.bin"),
		Meta:     filepath.Join(dir, "index.meta"),
	}
}

// Create prepares dir for a new index. An existing directory is an error
// unless overwrite is set, in which case the old index files are removed.
func Create(dir string, overwrite bool) (Layout, error) {
	l := Paths(dir)
	if _, err := os.Stat(dir); err == nil {
		if !overwrite {
			return l, fmt.Errorf("%s: %w", dir, ErrExists)
		}
		for _, f := range []string{l.Proteins, l.Peptides, l.Meta} {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				return l, fmt.Errorf("remove old index file: %w", err)
			}
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return l, fmt.Errorf("create index directory: %w", err)
	}
	return l, nil
}

// Entry is a peptide to be written together with its sequence, which
// orders peptides of equal mass.
type Entry struct {
	Sequence string
	Peptide  *protein.Peptide
}

// SortByMass orders entries by mass, breaking ties by sequence.
func SortByMass(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		mi, mj := entries[i].Peptide.Mass(), entries[j].Peptide.Mass()
		if mi != mj {
			return mi < mj
		}
		return entries[i].Sequence < entries[j].Sequence
	})
}

// Write writes the protein table, the peptides in the given order and the
// metadata file. Files are removed again if any write fails.
func Write(l Layout, db *protein.Database, entries []Entry, meta Meta) (err error) {
	defer func() {
		if err != nil {
			os.Remove(l.Proteins)
			os.Remove(l.Peptides)
			os.Remove(l.Meta)
		}
	}()

	if err := writeFile(l.Proteins, db.WriteRecords); err != nil {
		return fmt.Errorf("write proteins: %w", err)
	}
	if err := writeFile(l.Peptides, func(w io.Writer) error {
		for i, e := range entries {
			if err := e.Peptide.WriteRecord(w); err != nil {
				return fmt.Errorf("peptide %d: %w", i, err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("write peptides: %w", err)
	}

	meta.Proteins = db.Len()
	meta.Peptides = len(entries)
	if err := writeMeta(l.Meta, meta); err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}
	return nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Reader gives random access to the proteins of an index and a sequential
// scan of its peptides.
type Reader struct {
	db    *protein.Database
	file  *os.File
	peps  *record.PeptideReader
	count int
}

// Open opens the index in dir. The protein table is memory-mapped.
func Open(dir string) (*Reader, error) {
	l := Paths(dir)
	db, err := protein.OpenMapped(l.Proteins)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(l.Peptides)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open peptide index: %w", err)
	}
	return &Reader{db: db, file: f, peps: record.NewPeptideReader(f)}, nil
}

// Proteins returns the mapped protein database.
func (r *Reader) Proteins() *protein.Database { return r.db }

// Next returns the next peptide. Returns nil, nil after the last one.
func (r *Reader) Next() (*protein.Peptide, error) {
	rec, err := r.peps.Next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("peptide %d: %w", r.count, err)
	}
	p, err := r.db.ResolvePeptide(rec)
	if err != nil {
		return nil, fmt.Errorf("peptide %d at offset %d: %w", r.count, r.peps.Offset(), err)
	}
	r.count++
	return p, nil
}

// Close releases the peptide file and the protein mapping.
func (r *Reader) Close() error {
	return errors.Join(r.file.Close(), r.db.Close())
}
