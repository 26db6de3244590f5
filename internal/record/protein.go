package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ProteinSpans locates the fields of one protein record inside a buffer.
// Lengths exclude the NUL terminators that follow each field on disk.
type ProteinSpans struct {
	Start      int
	End        int
	ID         Span
	Annotation Span
	Sequence   Span
}

// WriteProtein writes one protein record:
//
//	int32 idLen | id NUL | int32 annotLen | annotation NUL | uint32 seqLen | sequence NUL
func WriteProtein(w io.Writer, id, annotation, sequence string) error {
	if len(id) > math.MaxInt32 || len(annotation) > math.MaxInt32 || len(sequence) > math.MaxInt32 {
		return fmt.Errorf("protein %q: field too long for record", id)
	}

	buf := make([]byte, 0, ProteinSize(id, annotation, sequence))
	buf = appendField(buf, id)
	buf = appendField(buf, annotation)
	buf = appendField(buf, sequence)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write protein %q: %w", id, err)
	}
	return nil
}

func appendField(buf []byte, s string) []byte {
	buf = ByteOrder.AppendUint32(buf, uint32(len(s)))
	buf = append(buf, s...)
	return append(buf, 0)
}

// ProteinSize returns the number of bytes WriteProtein emits for the fields.
func ProteinSize(id, annotation, sequence string) int {
	return 3*binary.Size(uint32(0)) + len(id) + len(annotation) + len(sequence) + 3
}

// ParseProtein reads one protein record at the cursor. The returned spans
// alias the cursor's buffer; nothing is copied.
func ParseProtein(c *Cursor) (ProteinSpans, error) {
	start := c.Offset()
	var ps ProteinSpans
	ps.Start = start

	idLen, err := c.Int32("protein id length")
	if err != nil {
		return ProteinSpans{}, err
	}
	if ps.ID, err = c.Terminated("protein id", int(idLen)); err != nil {
		c.off = start
		return ProteinSpans{}, err
	}

	annotLen, err := c.Int32("protein annotation length")
	if err != nil {
		c.off = start
		return ProteinSpans{}, err
	}
	if ps.Annotation, err = c.Terminated("protein annotation", int(annotLen)); err != nil {
		c.off = start
		return ProteinSpans{}, err
	}

	seqLen, err := c.Uint32("protein sequence length")
	if err != nil {
		c.off = start
		return ProteinSpans{}, err
	}
	if uint64(seqLen) > uint64(math.MaxInt32) {
		err := &ParseError{Field: "protein sequence length", Offset: c.off - 4, Err: fmt.Errorf("length %d out of range", seqLen)}
		c.off = start
		return ProteinSpans{}, err
	}
	if ps.Sequence, err = c.Terminated("protein sequence", int(seqLen)); err != nil {
		c.off = start
		return ProteinSpans{}, err
	}

	ps.End = c.Offset()
	return ps, nil
}
