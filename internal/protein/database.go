package protein

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/inodb/pepdb/internal/fasta"
	"github.com/inodb/pepdb/internal/record"
)

// Database is an ordered collection of proteins together with the file that
// backs its light or mapped entries.
type Database struct {
	proteins []*Protein
	backing  io.ReaderAt // FASTA file used to promote light proteins
	file     *os.File
	data     []byte // memory-mapped protein index
	closed   bool
	logger   *zap.Logger
}

// New returns an empty in-memory database.
func New() *Database {
	return &Database{logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (db *Database) SetLogger(logger *zap.Logger) {
	db.logger = logger
}

// Add appends a heavy protein and returns it.
func (db *Database) Add(id, description, sequence string) *Protein {
	p := &Protein{
		db:    db,
		stub:  Stub{Offset: -1, Index: len(db.proteins)},
		state: Heavy,
		heavy: &Materialized{ID: id, Description: description, Sequence: sequence},
	}
	db.proteins = append(db.proteins, p)
	return p
}

// Len returns the number of proteins.
func (db *Database) Len() int { return len(db.proteins) }

// ProteinAt returns the protein with ordinal i.
func (db *Database) ProteinAt(i int) (*Protein, error) {
	if i < 0 || i >= len(db.proteins) {
		return nil, fmt.Errorf("protein %d of %d: %w", i, len(db.proteins), ErrNotFound)
	}
	return db.proteins[i], nil
}

// Proteins returns the proteins in ordinal order.
func (db *Database) Proteins() []*Protein { return db.proteins }

// OpenFASTA loads every record of a FASTA file. With light set, only the
// record offsets are kept and each protein is promoted on first access.
// Light loading needs an uncompressed file.
func OpenFASTA(path string, light bool, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r, err := fasta.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	r.SetLogger(logger)

	db := &Database{logger: logger}
	if !r.Compressed() && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open fasta file: %w", err)
		}
		db.file = f
		db.backing = f
	} else if light {
		return nil, fmt.Errorf("light proteins need an uncompressed fasta file: %s", path)
	}

	for {
		rec, err := r.Next()
		if err != nil {
			db.Close()
			return nil, err
		}
		if rec == nil {
			break
		}
		p := &Protein{db: db, stub: Stub{Offset: rec.Offset, Index: len(db.proteins)}}
		if light {
			p.state = Light
		} else {
			p.state = Heavy
			p.heavy = &Materialized{ID: rec.ID, Description: rec.Description, Sequence: rec.Sequence}
		}
		db.proteins = append(db.proteins, p)
	}

	logger.Debug("loaded proteins", zap.String("path", path), zap.Int("count", len(db.proteins)), zap.Bool("light", light))
	return db, nil
}

func (db *Database) materialize(s Stub) (*Materialized, error) {
	var err error
	var rec *fasta.Record
	switch {
	case db.closed:
		err = ErrClosed
	case db.backing == nil:
		err = errors.New("no backing file")
	default:
		rec, err = fasta.ReadAt(db.backing, s.Offset)
	}
	if err != nil {
		db.logger.Warn("could not promote protein",
			zap.Int("protein", s.Index),
			zap.Int64("offset", s.Offset),
			zap.Error(err))
		return nil, &PromoteError{Index: s.Index, Offset: s.Offset, Err: err}
	}
	return &Materialized{ID: rec.ID, Description: rec.Description, Sequence: rec.Sequence}, nil
}

// OpenMapped memory-maps a binary protein index. The proteins alias the
// mapping and are valid until Close.
func OpenMapped(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open protein index: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat protein index: %w", err)
	}

	db := &Database{file: f, logger: zap.NewNop()}
	if st.Size() > 0 {
		db.data, err = unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("mmap protein index: %w", err)
		}
	}

	c := record.NewCursor(db.data)
	for !c.Done() {
		spans, err := record.ParseProtein(c)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parse protein %d: %w", len(db.proteins), err)
		}
		db.proteins = append(db.proteins, &Protein{
			db:    db,
			stub:  Stub{Offset: int64(spans.Start), Index: len(db.proteins)},
			state: Mapped,
			spans: spans,
		})
	}
	return db, nil
}

func (db *Database) mapped() []byte {
	if db.closed {
		return nil
	}
	return db.data
}

// WriteRecords writes every protein in the binary protein layout.
func (db *Database) WriteRecords(w io.Writer) error {
	for _, p := range db.proteins {
		if err := p.WriteRecord(w); err != nil {
			return fmt.Errorf("protein %d: %w", p.Index(), err)
		}
	}
	return nil
}

// Close releases the backing file and mapping. Mapped and light proteins
// are unusable afterwards.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true
	var errs []error
	if db.data != nil {
		if err := unix.Munmap(db.data); err != nil {
			errs = append(errs, fmt.Errorf("munmap protein index: %w", err))
		}
		db.data = nil
	}
	if db.file != nil {
		if err := db.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
