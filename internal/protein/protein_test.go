package protein

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/pepdb/internal/digest"
	"github.com/inodb/pepdb/internal/record"
)

const testFasta = `>P1 first protein
MKWVTFISLLLLFSSAYSRGVFRR
>P2
PEPTIDEKPEPTIDER
`

func writeFasta(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.fasta")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenFASTA_Light(t *testing.T) {
	db, err := OpenFASTA(writeFasta(t, testFasta), true, nil)
	require.NoError(t, err)
	defer db.Close()

	require.Equal(t, 2, db.Len())
	p, err := db.ProteinAt(1)
	require.NoError(t, err)
	assert.Equal(t, Light, p.State())
	assert.Equal(t, 1, p.Index())

	seq, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDEKPEPTIDER", seq)
	assert.Equal(t, Heavy, p.State())

	id, err := p.ID()
	require.NoError(t, err)
	assert.Equal(t, "P2", id)

	assert.True(t, p.Demote())
	assert.Equal(t, Light, p.State())

	desc, err := db.proteins[0].Description()
	require.NoError(t, err)
	assert.Equal(t, "first protein", desc)
}

func TestOpenFASTA_Heavy(t *testing.T) {
	db, err := OpenFASTA(writeFasta(t, testFasta), false, nil)
	require.NoError(t, err)

	p := db.proteins[0]
	assert.Equal(t, Heavy, p.State())
	require.True(t, p.Demote())
	require.NoError(t, p.Promote())
	seq, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "MKWVTFISLLLLFSSAYSRGVFRR", seq)

	require.NoError(t, db.Close())
	assert.False(t, p.Demote(), "no backing file after close")
	_, err = p.ID()
	assert.NoError(t, err, "heavy proteins survive close")
}

func TestOpenFASTA_LightNeedsPlainFile(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(testFasta))
	require.NoError(t, gw.Close())
	path := filepath.Join(t.TempDir(), "db.fasta.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err := OpenFASTA(path, true, nil)
	assert.Error(t, err)

	db, err := OpenFASTA(path, false, nil)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 2, db.Len())
	assert.False(t, db.proteins[0].Demote())
}

func TestPromote_Failure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	path := writeFasta(t, testFasta)
	db, err := OpenFASTA(path, true, zap.New(core))
	require.NoError(t, err)
	defer db.Close()

	// Truncate the backing file under the stub.
	require.NoError(t, os.Truncate(path, 5))

	_, err = db.proteins[1].Sequence()
	var pe *PromoteError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, Light, db.proteins[1].State())

	entries := logs.FilterMessage("could not promote protein").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["protein"])
}

func TestPromote_FailureAfterSetLogger(t *testing.T) {
	path := writeFasta(t, testFasta)
	db, err := OpenFASTA(path, true, nil)
	require.NoError(t, err)
	defer db.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	db.SetLogger(zap.New(core))
	require.NoError(t, os.Truncate(path, 5))

	_, err = db.proteins[1].ID()
	var pe *PromoteError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, logs.FilterMessage("could not promote protein").Len())
}

func TestDemote_AddedProtein(t *testing.T) {
	db, err := OpenFASTA(writeFasta(t, testFasta), false, nil)
	require.NoError(t, err)
	defer db.Close()

	p := db.Add("decoy_P2", "", "REDITPEPKEDITPEP")
	assert.False(t, p.Demote(), "added proteins have no record in the backing file")
	assert.Equal(t, Heavy, p.State())

	seq, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "REDITPEPKEDITPEP", seq)
	id, err := p.ID()
	require.NoError(t, err)
	assert.Equal(t, "decoy_P2", id)
}

func TestPromote_NegativeOffset(t *testing.T) {
	db, err := OpenFASTA(writeFasta(t, testFasta), true, nil)
	require.NoError(t, err)
	defer db.Close()

	p := db.proteins[0]
	p.stub.Offset = -1
	var pe *PromoteError
	assert.NotPanics(t, func() {
		err = p.Promote()
	})
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Light, p.State())
}

func TestProteinAt_NotFound(t *testing.T) {
	db := New()
	db.Add("P1", "", "ACDK")
	_, err := db.ProteinAt(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.ProteinAt(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteFASTA_Wraps(t *testing.T) {
	db := New()
	p := db.Add("P1", "desc", strings.Repeat("A", 120))

	var buf bytes.Buffer
	require.NoError(t, p.WriteFASTA(&buf, "decoy_"))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ">decoy_P1 desc", lines[0])
	assert.Len(t, lines[1], 50)
	assert.Len(t, lines[2], 50)
	assert.Len(t, lines[3], 20)
}

func TestOpenMapped(t *testing.T) {
	src := New()
	src.Add("P1", "first", "MKWVTFISLLK")
	src.Add("P2", "", "PEPTIDER")

	path := filepath.Join(t.TempDir(), "proteins.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, src.WriteRecords(f))
	require.NoError(t, f.Close())

	db, err := OpenMapped(path)
	require.NoError(t, err)
	require.Equal(t, 2, db.Len())

	p := db.proteins[0]
	assert.Equal(t, Mapped, p.State())
	id, err := p.ID()
	require.NoError(t, err)
	assert.Equal(t, "P1", id)
	seq, err := db.proteins[1].Sequence()
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDER", seq)
	desc, err := db.proteins[1].Description()
	require.NoError(t, err)
	assert.Equal(t, "", desc)

	assert.False(t, p.Demote())
	require.NoError(t, p.Promote())
	assert.Equal(t, Mapped, p.State())

	require.NoError(t, db.Close())
	_, err = p.Sequence()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenMapped_StringsOutliveClose(t *testing.T) {
	src := New()
	src.Add("P1", "first protein", "AAKPEPTIDEKGG")

	path := filepath.Join(t.TempDir(), "proteins.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, src.WriteRecords(f))
	require.NoError(t, f.Close())

	db, err := OpenMapped(path)
	require.NoError(t, err)
	p, err := db.ProteinAt(0)
	require.NoError(t, err)

	id, err := p.ID()
	require.NoError(t, err)
	desc, err := p.Description()
	require.NoError(t, err)
	seq, err := p.Sequence()
	require.NoError(t, err)
	raw, err := p.SequenceBytes()
	require.NoError(t, err)
	assert.Equal(t, "AAKPEPTIDEKGG", string(raw))

	pep, err := NewPeptide(8, 927.45, Source{Protein: p, Offset: 3, Class: digest.ClassFull})
	require.NoError(t, err)
	pepSeq, err := pep.Sequence()
	require.NoError(t, err)

	require.NoError(t, db.Close())

	// Strings returned before Close must not alias the unmapped region.
	assert.Equal(t, "P1", id)
	assert.Equal(t, "first protein", desc)
	assert.Equal(t, "AAKPE", seq[:5])
	assert.Equal(t, "AAKPEPTIDEKGG", seq)
	assert.Equal(t, "PEPTIDEK", pepSeq)

	_, err = p.SequenceBytes()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = pep.Sequence()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenMapped_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, record.WriteProtein(&buf, "P1", "", "ACDK"))
	path := filepath.Join(t.TempDir(), "proteins.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes()[:buf.Len()-2], 0o644))

	_, err := OpenMapped(path)
	assert.ErrorIs(t, err, record.ErrTruncated)
}

func TestOpenMapped_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proteins.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	db, err := OpenMapped(path)
	require.NoError(t, err)
	assert.Equal(t, 0, db.Len())
	assert.NoError(t, db.Close())
}

func TestPeptide_SequenceAndSources(t *testing.T) {
	db := New()
	p1 := db.Add("P1", "", "AAKPEPTIDEKGG")
	p2 := db.Add("P2", "", "PEPTIDEK")

	pep, err := NewPeptide(8, 927.45, Source{Protein: p1, Offset: 3, Class: digest.ClassFull})
	require.NoError(t, err)
	other, err := NewPeptide(8, 927.45, Source{Protein: p2, Offset: 0, Class: digest.ClassFull})
	require.NoError(t, err)

	seq, err := pep.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDEK", seq)

	require.NoError(t, pep.Merge(other))
	assert.Empty(t, other.Sources())
	require.Len(t, pep.Sources(), 2)
	assert.Same(t, p1, pep.Sources()[0].Protein)
	assert.Same(t, p2, pep.Sources()[1].Protein)

	assert.ErrorIs(t, pep.Merge(other), ErrNoSources)
	_, err = other.Sequence()
	assert.ErrorIs(t, err, ErrNoSources)

	_, err = NewPeptide(0, 1, Source{Protein: p1})
	assert.Error(t, err)
	_, err = NewPeptide(3, 1, Source{})
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestPeptide_Modification(t *testing.T) {
	db := New()
	prot := db.Add("P1", "", "PEMTIDE")
	pep, err := NewPeptide(7, 800, Source{Protein: prot})
	require.NoError(t, err)

	assert.Error(t, pep.SetModification([]uint16{1}, 16))
	require.NoError(t, pep.SetModification([]uint16{0, 0, 1, 0, 0, 0, 2}, 16))
	assert.InDelta(t, 816, pep.Mass(), 1e-9)

	s, err := pep.ModifiedSequence()
	require.NoError(t, err)
	assert.Equal(t, "PEM[1]TIDE[2]", s)
}

func TestPeptide_RecordRoundTrip(t *testing.T) {
	db := New()
	p1 := db.Add("P1", "", "AAKPEPTIDEKGG")
	p2 := db.Add("P2", "", "PEPTIDEK")

	pep, err := NewPeptide(8, 927.45, Source{Protein: p1, Offset: 3, Class: digest.ClassCTerm})
	require.NoError(t, err)
	pep.AddSource(Source{Protein: p2, Offset: 0, Class: digest.ClassFull})
	require.NoError(t, pep.SetModification([]uint16{0, 0, 0, 0, 0, 0, 0, 5}, 0.98))

	var buf bytes.Buffer
	require.NoError(t, pep.WriteRecord(&buf))

	rec, err := record.NewPeptideReader(&buf).Next()
	require.NoError(t, err)
	got, err := db.ResolvePeptide(rec)
	require.NoError(t, err)

	assert.Equal(t, pep.Length(), got.Length())
	assert.Equal(t, pep.Mass(), got.Mass())
	assert.Equal(t, pep.Modified(), got.Modified())
	require.Len(t, got.Sources(), 2)
	for i, s := range pep.Sources() {
		g := got.Sources()[i]
		assert.Equal(t, s.Protein.Index(), g.Protein.Index())
		assert.Equal(t, s.Offset, g.Offset)
		assert.Equal(t, s.Class, g.Class)
	}
	seq, err := got.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDEK", seq)
}

func TestResolvePeptide_BadOrdinal(t *testing.T) {
	db := New()
	db.Add("P1", "", "PEPTIDEK")

	_, err := db.ResolvePeptide(record.Peptide{Length: 3, Sources: []record.SourceRecord{{Protein: 4}}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.ResolvePeptide(record.Peptide{Length: 3})
	assert.ErrorIs(t, err, ErrNoSources)
}
