// Package protein holds the in-memory protein and peptide model: proteins
// that are either offset-only stubs, materialized records or views into a
// memory-mapped index, and peptides that derive their sequence from the
// proteins they occur in.
package protein

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/inodb/pepdb/internal/record"
)

var (
	// ErrNotFound is returned for a protein ordinal outside the database.
	ErrNotFound = errors.New("protein not found")
	// ErrClosed is returned when a protein's database has been closed.
	ErrClosed = errors.New("protein database closed")
)

// State is the materialization state of a Protein.
type State int

const (
	Light  State = iota // offset and ordinal only
	Heavy               // id, description and sequence held in memory
	Mapped              // fields alias a memory-mapped index file
)

func (s State) String() string {
	switch s {
	case Light:
		return "light"
	case Heavy:
		return "heavy"
	case Mapped:
		return "mapped"
	}
	return "unknown"
}

// Stub locates a protein in its database's backing file.
type Stub struct {
	Offset int64
	Index  int
}

// Materialized holds the fields of a heavy protein.
type Materialized struct {
	ID          string
	Description string
	Sequence    string
}

// PromoteError reports a failure to materialize a light protein. It is
// distinct from ErrNotFound: the protein exists but its record could not be
// read.
type PromoteError struct {
	Index  int
	Offset int64
	Err    error
}

func (e *PromoteError) Error() string {
	return fmt.Sprintf("promote protein %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *PromoteError) Unwrap() error { return e.Err }

// Protein is one entry of a Database.
type Protein struct {
	db    *Database
	stub  Stub
	state State
	heavy *Materialized
	spans record.ProteinSpans
}

// State returns the current materialization state.
func (p *Protein) State() State { return p.state }

// Index returns the ordinal of p in its database.
func (p *Protein) Index() int { return p.stub.Index }

// Offset returns the byte offset of p's record in the backing file.
func (p *Protein) Offset() int64 { return p.stub.Offset }

// Promote materializes a light protein by re-reading its record. It is a
// no-op for heavy and mapped proteins.
func (p *Protein) Promote() error {
	if p.state != Light {
		return nil
	}
	m, err := p.db.materialize(p.stub)
	if err != nil {
		return err
	}
	p.heavy = m
	p.state = Heavy
	return nil
}

// Demote drops the strings of a heavy protein when they can be read back
// from the backing file. Proteins built with Add have no record there and
// stay heavy. It reports whether the protein is now light.
func (p *Protein) Demote() bool {
	if p.state == Heavy && p.stub.Offset >= 0 && p.db != nil && p.db.backing != nil && !p.db.closed {
		p.heavy = nil
		p.state = Light
	}
	return p.state == Light
}

// view returns the fields of p. For a mapped protein the strings alias the
// mapping and must not be kept past the call that asked for them.
func (p *Protein) view() (*Materialized, error) {
	switch p.state {
	case Light:
		if err := p.Promote(); err != nil {
			return nil, err
		}
		return p.heavy, nil
	case Mapped:
		data := p.db.mapped()
		if data == nil {
			return nil, &PromoteError{Index: p.stub.Index, Offset: p.stub.Offset, Err: ErrClosed}
		}
		return &Materialized{
			ID:          alias(data, p.spans.ID),
			Description: alias(data, p.spans.Annotation),
			Sequence:    alias(data, p.spans.Sequence),
		}, nil
	}
	return p.heavy, nil
}

// alias returns the span of data as a string without copying. The string is
// only valid while the mapping is held open.
func alias(data []byte, s record.Span) string {
	if s.Len() == 0 {
		return ""
	}
	return unsafe.String(&data[s.Lo], s.Len())
}

// fields returns the fields of p as strings the caller may keep. Mapped
// fields are copied out of the mapping.
func (p *Protein) fields() (*Materialized, error) {
	m, err := p.view()
	if err != nil || p.state != Mapped {
		return m, err
	}
	return &Materialized{
		ID:          strings.Clone(m.ID),
		Description: strings.Clone(m.Description),
		Sequence:    strings.Clone(m.Sequence),
	}, nil
}

// ID returns the protein identifier, promoting a light protein first.
func (p *Protein) ID() (string, error) {
	m, err := p.fields()
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// Description returns the header text after the identifier.
func (p *Protein) Description() (string, error) {
	m, err := p.fields()
	if err != nil {
		return "", err
	}
	return m.Description, nil
}

// Sequence returns the residues of the protein.
func (p *Protein) Sequence() (string, error) {
	m, err := p.fields()
	if err != nil {
		return "", err
	}
	return m.Sequence, nil
}

// SequenceBytes returns the residues without copying. For a mapped protein
// the slice is only valid until the database is closed; callers must not
// modify it.
func (p *Protein) SequenceBytes() ([]byte, error) {
	m, err := p.view()
	if err != nil {
		return nil, err
	}
	return unsafe.Slice(unsafe.StringData(m.Sequence), len(m.Sequence)), nil
}

// fastaLineWidth is the number of residues per sequence line in WriteFASTA.
const fastaLineWidth = 50

// WriteFASTA writes p as a FASTA record with the id prefixed by prefix.
func (p *Protein) WriteFASTA(w io.Writer, prefix string) error {
	m, err := p.view()
	if err != nil {
		return err
	}
	return WriteFASTA(w, prefix+m.ID, m.Description, m.Sequence)
}

// WriteFASTA writes one FASTA record, wrapping the sequence at 50 residues.
func WriteFASTA(w io.Writer, id, description, sequence string) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('>')
	bw.WriteString(id)
	if description != "" {
		bw.WriteByte(' ')
		bw.WriteString(description)
	}
	bw.WriteByte('\n')
	for i := 0; i < len(sequence); i += fastaLineWidth {
		bw.WriteString(sequence[i:min(i+fastaLineWidth, len(sequence))])
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write fasta record %q: %w", id, err)
	}
	return nil
}

// WriteRecord serializes p in the binary protein layout. A light protein is
// promoted for the write and demoted again afterwards.
func (p *Protein) WriteRecord(w io.Writer) error {
	wasLight := p.state == Light
	m, err := p.view()
	if err != nil {
		return err
	}
	if err := record.WriteProtein(w, m.ID, m.Description, m.Sequence); err != nil {
		return err
	}
	if wasLight {
		p.Demote()
	}
	return nil
}
