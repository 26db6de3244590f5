package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNoSources is returned for a peptide record whose source count is below one.
var ErrNoSources = errors.New("peptide must have at least one source")

// PeptideHeaderSize is the size of the fixed peptide header:
//
//	uint8 length | 3 reserved bytes | float64 mass
const PeptideHeaderSize = 12

// maxSources bounds the allocation for a single streamed record.
const maxSources = 1 << 24

// SourceRecord is one serialized peptide source.
type SourceRecord struct {
	Protein int32 // ordinal of the parent protein in its database
	Class   int32
	Offset  int32 // 0-based start within the parent sequence
}

// Peptide is the flattened form of a peptide and its sources.
type Peptide struct {
	Length   uint8
	Mass     float64
	Sources  []SourceRecord
	Modified []uint16 // empty when the peptide carries no modification
}

// AppendPeptide appends the serialized form of p to buf.
func AppendPeptide(buf []byte, p Peptide) ([]byte, error) {
	if len(p.Sources) == 0 {
		return buf, ErrNoSources
	}
	if len(p.Sources) > math.MaxInt32 || len(p.Modified) > math.MaxInt32 {
		return buf, fmt.Errorf("peptide record too large")
	}

	buf = append(buf, p.Length, 0, 0, 0)
	buf = ByteOrder.AppendUint64(buf, math.Float64bits(p.Mass))
	buf = ByteOrder.AppendUint32(buf, uint32(len(p.Sources)))
	for _, s := range p.Sources {
		buf = ByteOrder.AppendUint32(buf, uint32(s.Protein))
		buf = ByteOrder.AppendUint32(buf, uint32(s.Class))
		buf = ByteOrder.AppendUint32(buf, uint32(s.Offset))
	}
	buf = ByteOrder.AppendUint32(buf, uint32(len(p.Modified)))
	for _, m := range p.Modified {
		buf = ByteOrder.AppendUint16(buf, m)
	}
	return buf, nil
}

// WritePeptide writes one peptide record to w.
func WritePeptide(w io.Writer, p Peptide) error {
	buf, err := AppendPeptide(nil, p)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write peptide: %w", err)
	}
	return nil
}

// ParsePeptide reads one peptide record at the cursor.
func ParsePeptide(c *Cursor) (Peptide, error) {
	start := c.Offset()
	p, err := parsePeptide(c)
	if err != nil {
		c.off = start
	}
	return p, err
}

func parsePeptide(c *Cursor) (Peptide, error) {
	var p Peptide
	var err error

	if p.Length, err = c.Uint8("peptide length"); err != nil {
		return Peptide{}, err
	}
	if err = c.Skip("peptide reserved", 3); err != nil {
		return Peptide{}, err
	}
	if p.Mass, err = c.Float64("peptide mass"); err != nil {
		return Peptide{}, err
	}

	numSources, err := c.Int32("peptide source count")
	if err != nil {
		return Peptide{}, err
	}
	if numSources < 1 {
		return Peptide{}, &ParseError{Field: "peptide source count", Offset: c.Offset() - 4, Err: ErrNoSources}
	}
	if err := c.need("peptide sources", int(numSources)*12); err != nil {
		return Peptide{}, err
	}

	p.Sources = make([]SourceRecord, numSources)
	for i := range p.Sources {
		s := &p.Sources[i]
		if s.Protein, err = c.Int32("source protein"); err != nil {
			return Peptide{}, err
		}
		if s.Class, err = c.Int32("source class"); err != nil {
			return Peptide{}, err
		}
		if s.Offset, err = c.Int32("source offset"); err != nil {
			return Peptide{}, err
		}
	}

	modLen, err := c.Int32("modified sequence length")
	if err != nil {
		return Peptide{}, err
	}
	if err := c.need("modified sequence", int(modLen)*2); err != nil {
		return Peptide{}, err
	}
	if modLen > 0 {
		p.Modified = make([]uint16, modLen)
		for i := range p.Modified {
			p.Modified[i], _ = c.Uint16("modified sequence")
		}
	}
	return p, nil
}

// PeptideReader scans peptide records sequentially from a stream.
type PeptideReader struct {
	r   *bufio.Reader
	off int
	buf []byte
}

// NewPeptideReader returns a reader positioned at the first record of r.
func NewPeptideReader(r io.Reader) *PeptideReader {
	return &PeptideReader{r: bufio.NewReader(r)}
}

// Offset returns the byte offset of the next record.
func (pr *PeptideReader) Offset() int { return pr.off }

// Next reads the next record. It returns io.EOF when the stream ends on a
// record boundary and a *ParseError for a truncated or corrupt record.
func (pr *PeptideReader) Next() (Peptide, error) {
	pr.buf = pr.buf[:0]

	if err := pr.fill(PeptideHeaderSize + 4); err != nil {
		if err == io.EOF && len(pr.buf) == 0 {
			return Peptide{}, io.EOF
		}
		return Peptide{}, pr.truncated("peptide header", err)
	}

	numSources := int32(ByteOrder.Uint32(pr.buf[PeptideHeaderSize:]))
	if numSources < 1 {
		return Peptide{}, &ParseError{Field: "peptide source count", Offset: pr.off + PeptideHeaderSize, Err: ErrNoSources}
	}
	if numSources > maxSources {
		return Peptide{}, &ParseError{Field: "peptide source count", Offset: pr.off + PeptideHeaderSize, Err: fmt.Errorf("count %d out of range", numSources)}
	}
	if err := pr.fill(int(numSources)*12 + 4); err != nil {
		return Peptide{}, pr.truncated("peptide sources", err)
	}

	modLen := int32(ByteOrder.Uint32(pr.buf[len(pr.buf)-4:]))
	if modLen < 0 || modLen > math.MaxUint8 {
		return Peptide{}, &ParseError{Field: "modified sequence length", Offset: pr.off + len(pr.buf) - 4, Err: fmt.Errorf("length %d out of range", modLen)}
	}
	if err := pr.fill(int(modLen) * 2); err != nil {
		return Peptide{}, pr.truncated("modified sequence", err)
	}

	c := NewCursor(pr.buf)
	p, err := ParsePeptide(c)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Offset += pr.off
		}
		return Peptide{}, err
	}
	pr.off += len(pr.buf)
	return p, nil
}

func (pr *PeptideReader) fill(n int) error {
	if n == 0 {
		return nil
	}
	start := len(pr.buf)
	pr.buf = append(pr.buf, make([]byte, n)...)
	got, err := io.ReadFull(pr.r, pr.buf[start:])
	if err != nil {
		pr.buf = pr.buf[:start+got]
	}
	return err
}

func (pr *PeptideReader) truncated(field string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &ParseError{Field: field, Offset: pr.off + len(pr.buf), Err: fmt.Errorf("%w: %v", ErrTruncated, err)}
}
