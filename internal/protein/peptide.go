package protein

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/pepdb/internal/digest"
	"github.com/inodb/pepdb/internal/record"
)

// ErrNoSources is returned when an operation needs a peptide with at least
// one source and it has none.
var ErrNoSources = errors.New("peptide has no sources")

// MaxPeptideLength is the longest peptide a Peptide can describe.
const MaxPeptideLength = math.MaxUint8

// Source is one occurrence of a peptide in a protein.
type Source struct {
	Protein *Protein
	Offset  int // 0-based start in the protein sequence
	Class   digest.Class
}

// Peptide is a protein substring identified by its sources. It never stores
// its own residues; the sequence is read from the first source.
type Peptide struct {
	length   uint8
	mass     float64
	modified []uint16
	sources  []Source
}

// NewPeptide returns a peptide with a single source.
func NewPeptide(length int, mass float64, src Source) (*Peptide, error) {
	if length < 1 || length > MaxPeptideLength {
		return nil, fmt.Errorf("peptide length %d out of range", length)
	}
	if src.Protein == nil {
		return nil, fmt.Errorf("new peptide: %w", ErrNoSources)
	}
	return &Peptide{length: uint8(length), mass: mass, sources: []Source{src}}, nil
}

// Length returns the number of residues.
func (p *Peptide) Length() int { return int(p.length) }

// Mass returns the peptide mass including any modification delta.
func (p *Peptide) Mass() float64 { return p.mass }

// Sources returns the sources in insertion order.
func (p *Peptide) Sources() []Source { return p.sources }

// AddSource appends an occurrence.
func (p *Peptide) AddSource(s Source) {
	p.sources = append(p.sources, s)
}

// Merge moves every source of other onto the end of p. Both peptides must
// have at least one source; other is left empty.
func (p *Peptide) Merge(other *Peptide) error {
	if len(p.sources) == 0 || len(other.sources) == 0 {
		return fmt.Errorf("merge peptides: %w", ErrNoSources)
	}
	p.sources = append(p.sources, other.sources...)
	other.sources = nil
	return nil
}

// Sequence returns the residues at the first source.
func (p *Peptide) Sequence() (string, error) {
	if len(p.sources) == 0 {
		return "", ErrNoSources
	}
	src := p.sources[0]
	seq, err := src.Protein.SequenceBytes()
	if err != nil {
		return "", err
	}
	end := src.Offset + int(p.length)
	if src.Offset < 0 || end > len(seq) {
		return "", fmt.Errorf("peptide at offset %d length %d outside protein %d of length %d",
			src.Offset, p.length, src.Protein.Index(), len(seq))
	}
	return string(seq[src.Offset:end]), nil
}

// SetModification attaches one code per residue and shifts the mass by
// delta. A zero code leaves its residue unmodified.
func (p *Peptide) SetModification(codes []uint16, delta float64) error {
	if len(codes) != int(p.length) {
		return fmt.Errorf("modification has %d codes for %d residues", len(codes), p.length)
	}
	p.modified = append([]uint16(nil), codes...)
	p.mass += delta
	return nil
}

// Modified returns the per-residue modification codes, or nil.
func (p *Peptide) Modified() []uint16 { return p.modified }

// ModifiedSequence renders the sequence with each non-zero code in brackets
// after its residue, e.g. "PEM[1]TIDE".
func (p *Peptide) ModifiedSequence() (string, error) {
	seq, err := p.Sequence()
	if err != nil || p.modified == nil {
		return seq, err
	}
	var sb strings.Builder
	for i := 0; i < len(seq); i++ {
		sb.WriteByte(seq[i])
		if c := p.modified[i]; c != 0 {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(int(c)))
			sb.WriteByte(']')
		}
	}
	return sb.String(), nil
}

// Record flattens p into its serialized form. Proteins are referenced by
// ordinal.
func (p *Peptide) Record() (record.Peptide, error) {
	if len(p.sources) == 0 {
		return record.Peptide{}, ErrNoSources
	}
	r := record.Peptide{
		Length:   p.length,
		Mass:     p.mass,
		Sources:  make([]record.SourceRecord, len(p.sources)),
		Modified: p.modified,
	}
	for i, s := range p.sources {
		if s.Offset > math.MaxInt32 || s.Protein.Index() > math.MaxInt32 {
			return record.Peptide{}, fmt.Errorf("source %d does not fit a record", i)
		}
		r.Sources[i] = record.SourceRecord{
			Protein: int32(s.Protein.Index()),
			Class:   int32(s.Class),
			Offset:  int32(s.Offset),
		}
	}
	return r, nil
}

// WriteRecord serializes p.
func (p *Peptide) WriteRecord(w io.Writer) error {
	r, err := p.Record()
	if err != nil {
		return err
	}
	return record.WritePeptide(w, r)
}

// ResolvePeptide rebuilds a peptide from its record, looking up each source
// protein by ordinal.
func (db *Database) ResolvePeptide(r record.Peptide) (*Peptide, error) {
	if len(r.Sources) == 0 {
		return nil, ErrNoSources
	}
	if r.Modified != nil && len(r.Modified) != int(r.Length) {
		return nil, fmt.Errorf("peptide has %d modification codes for %d residues", len(r.Modified), r.Length)
	}
	p := &Peptide{
		length:   r.Length,
		mass:     r.Mass,
		modified: r.Modified,
		sources:  make([]Source, len(r.Sources)),
	}
	for i, s := range r.Sources {
		prot, err := db.ProteinAt(int(s.Protein))
		if err != nil {
			return nil, fmt.Errorf("peptide source %d: %w", i, err)
		}
		p.sources[i] = Source{Protein: prot, Offset: int(s.Offset), Class: digest.Class(s.Class)}
	}
	return p, nil
}
