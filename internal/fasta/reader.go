// Package fasta provides FASTA protein file parsing functionality.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Record is one protein entry.
type Record struct {
	ID          string
	Description string
	Sequence    string
	Offset      int64 // byte offset of the '>' line in the uncompressed stream
	Index       int   // ordinal among the records returned by the reader
}

// Reader reads protein records from a FASTA file.
type Reader struct {
	reader *bufio.Reader
	file   *os.File
	gz     *gzip.Reader
	zr     *zstd.Decoder
	logger *zap.Logger

	offset  int64 // bytes consumed from the uncompressed stream
	index   int
	pending string // header line read ahead of the current record
	pendOff int64
	hasPend bool
	eof     bool
}

// NewReader opens a FASTA file. Gzip and zstd compressed files are detected
// by their magic bytes. A path of "-" reads stdin.
func NewReader(path string) (*Reader, error) {
	if path == "-" {
		return NewReaderFromReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta file: %w", err)
	}

	r := &Reader{file: file, logger: zap.NewNop()}

	magic := make([]byte, 4)
	n, err := io.ReadFull(file, magic)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read fasta header: %w", err)
	}
	magic = magic[:n]

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek fasta file: %w", err)
	}

	switch {
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		r.gz, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gz)
	case bytes.HasPrefix(magic, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		r.zr, err = zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		r.reader = bufio.NewReader(r.zr)
	default:
		r.reader = bufio.NewReader(file)
	}
	return r, nil
}

// NewReaderFromReader creates a reader from an io.Reader (e.g., stdin).
func NewReaderFromReader(rd io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(rd), logger: zap.NewNop()}
}

// SetLogger sets the logger used for malformed-record warnings.
func (r *Reader) SetLogger(logger *zap.Logger) {
	r.logger = logger
}

// Compressed reports whether the file is decompressed on the fly, in which
// case record offsets cannot be used for random access.
func (r *Reader) Compressed() bool {
	return r.gz != nil || r.zr != nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	if r.gz != nil {
		r.gz.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// readLine returns the next line without its terminator and the offset at
// which it started.
func (r *Reader) readLine() (string, int64, error) {
	if r.eof {
		return "", r.offset, io.EOF
	}
	start := r.offset
	line, err := r.reader.ReadString('\n')
	r.offset += int64(len(line))
	if err != nil {
		if err != io.EOF {
			return "", start, fmt.Errorf("read fasta line: %w", err)
		}
		r.eof = true
		if line == "" {
			return "", start, io.EOF
		}
	}
	return strings.TrimRight(line, "\r\n"), start, nil
}

// Next reads the next protein. Records with an empty sequence are logged and
// skipped. Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	for {
		rec, err := r.readRecord()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
		if rec.Sequence == "" {
			r.logger.Warn("protein without sequence", zap.String("protein", rec.ID), zap.Int64("offset", rec.Offset))
			continue
		}
		rec.Index = r.index
		r.index++
		return rec, nil
	}
}

// readRecord reads a header and the sequence lines that follow it.
func (r *Reader) readRecord() (*Record, error) {
	header, hdrOff, err := r.nextHeader()
	if err != nil {
		return nil, err
	}

	id, desc := splitHeader(header)
	var raw strings.Builder
	for {
		line, off, err := r.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, ">") {
			r.pending, r.pendOff, r.hasPend = line, off, true
			break
		}
		raw.WriteString(strings.TrimSpace(line))
	}

	return &Record{
		ID:          id,
		Description: desc,
		Sequence:    r.clean(id, raw.String()),
		Offset:      hdrOff,
	}, nil
}

func (r *Reader) nextHeader() (string, int64, error) {
	if r.hasPend {
		r.hasPend = false
		return r.pending, r.pendOff, nil
	}
	for {
		line, off, err := r.readLine()
		if err != nil {
			return "", off, err
		}
		if strings.HasPrefix(line, ">") {
			return line, off, nil
		}
		if strings.TrimSpace(line) != "" {
			r.logger.Warn("sequence data before first header", zap.Int64("offset", off))
		}
	}
}

func splitHeader(line string) (id, desc string) {
	line = strings.TrimSpace(strings.TrimPrefix(line, ">"))
	id, desc, _ = strings.Cut(line, " ")
	if i := strings.IndexAny(id, "\t"); i >= 0 {
		id, desc = id[:i], strings.TrimSpace(id[i+1:]+" "+desc)
	}
	return id, strings.TrimSpace(desc)
}

// clean normalizes a raw sequence: a trailing '*' is removed, letters are
// upper-cased, printable non-letters are dropped and everything else becomes
// 'X'. Each distinct offending character is reported once per protein.
func (r *Reader) clean(id, raw string) string {
	raw = strings.TrimSuffix(raw, "*")

	var sb strings.Builder
	sb.Grow(len(raw))
	var dropped, coerced map[rune]bool

	for i := 0; i < len(raw); {
		c, size := utf8.DecodeRuneInString(raw[i:])
		i += size
		switch {
		case c >= 'A' && c <= 'Z':
			sb.WriteRune(c)
		case c >= 'a' && c <= 'z':
			sb.WriteRune(c - 'a' + 'A')
		case unicode.IsSpace(c):
		case c == utf8.RuneError && size <= 1, !unicode.IsPrint(c), unicode.IsLetter(c):
			sb.WriteByte('X')
			if coerced == nil {
				coerced = make(map[rune]bool)
			}
			if !coerced[c] {
				coerced[c] = true
				r.logger.Warn("replaced invalid residue with X", zap.String("protein", id), zap.String("char", fmt.Sprintf("%q", c)))
			}
		default:
			if dropped == nil {
				dropped = make(map[rune]bool)
			}
			if !dropped[c] {
				dropped[c] = true
				r.logger.Warn("dropped non-alphabetic character", zap.String("protein", id), zap.String("char", string(c)))
			}
		}
	}
	return sb.String()
}

// ErrEmptyRecord is returned by ReadAt for a header with no sequence.
var ErrEmptyRecord = errors.New("empty fasta record")

// ReadAt parses the single record whose header starts at offset in ra. It
// fails if offset does not point at a '>' line or the record is empty.
func ReadAt(ra io.ReaderAt, offset int64) (*Record, error) {
	if offset < 0 {
		return nil, fmt.Errorf("read fasta record: negative offset %d", offset)
	}
	sr := io.NewSectionReader(ra, offset, math.MaxInt64-offset)
	r := NewReaderFromReader(sr)
	r.offset = offset

	b, err := r.reader.Peek(1)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read fasta record at offset %d: %w", offset, err)
	}
	if b[0] != '>' {
		return nil, fmt.Errorf("no fasta header at offset %d", offset)
	}

	rec, err := r.readRecord()
	if err != nil {
		return nil, fmt.Errorf("read fasta record at offset %d: %w", offset, err)
	}
	if rec.Sequence == "" {
		return nil, fmt.Errorf("protein %q at offset %d: %w", rec.ID, offset, ErrEmptyRecord)
	}
	return rec, nil
}
