package digest

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trypsin(t *testing.T) *Enzyme {
	t.Helper()
	e, err := Lookup("trypsin")
	require.NoError(t, err)
	return e
}

func TestCleave_FullDigestNoMissed(t *testing.T) {
	got := Cleave("ABCDKEFGHKRIJ", Options{
		Enzyme:    trypsin(t),
		Mode:      Full,
		MinLength: 1,
		MaxLength: 50,
	})

	want := []Peptide{
		{"ABCDK", 0},
		{"EFGHK", 5},
		{"R", 10},
		{"IJ", 11},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cleave mismatch (-want +got):\n%s", diff)
	}
}

func TestCleave_OneMissedCleavage(t *testing.T) {
	got := Cleave("ABCDKEFGHKRIJ", Options{
		Enzyme:          trypsin(t),
		MissedCleavages: 1,
		MinLength:       1,
		MaxLength:       50,
	})

	want := []Peptide{
		{"ABCDK", 0},
		{"ABCDKEFGHK", 0},
		{"EFGHK", 5},
		{"EFGHKR", 5},
		{"R", 10},
		{"RIJ", 10},
		{"IJ", 11},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cleave mismatch (-want +got):\n%s", diff)
	}
}

func TestCleave_ProlineBlocksTrypsin(t *testing.T) {
	got := Cleave("AAKPAARAA", Options{Enzyme: trypsin(t), MinLength: 1, MaxLength: 50})
	want := []Peptide{{"AAKPAAR", 0}, {"AA", 7}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cleave mismatch (-want +got):\n%s", diff)
	}
}

func TestCleave_NoCleavageSite(t *testing.T) {
	got := Cleave("ACDEFG", Options{Enzyme: trypsin(t), MissedCleavages: 2, MinLength: 1, MaxLength: 50})
	assert.Equal(t, []Peptide{{"ACDEFG", 0}}, got)
}

func TestCleave_LengthFilter(t *testing.T) {
	got := Cleave("ABCDKEFGHKRIJ", Options{Enzyme: trypsin(t), MinLength: 3, MaxLength: 5})
	assert.Equal(t, []Peptide{{"ABCDK", 0}, {"EFGHK", 5}}, got)
}

func TestCleave_ClipNTermMethionine(t *testing.T) {
	got := Cleave("MAAKGGR", Options{
		Enzyme:              trypsin(t),
		MinLength:           1,
		MaxLength:           50,
		ClipNTermMethionine: true,
	})
	want := []Peptide{{"MAAK", 0}, {"AAK", 1}, {"GGR", 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Cleave mismatch (-want +got):\n%s", diff)
	}

	// Partial digestion never clips.
	partial := Cleave("MAAKGGR", Options{
		Enzyme:              trypsin(t),
		Mode:                Partial,
		MinLength:           4,
		MaxLength:           4,
		ClipNTermMethionine: true,
	})
	for _, p := range partial {
		assert.NotEqual(t, 1, p.Offset, "unexpected clipped peptide %v", p)
	}
}

func TestCleave_Partial(t *testing.T) {
	got := Cleave("AAKGG", Options{Enzyme: trypsin(t), Mode: Partial, MinLength: 1, MaxLength: 50})

	set := map[Peptide]bool{}
	for _, p := range got {
		assert.False(t, set[p], "duplicate %v", p)
		set[p] = true
	}

	for _, want := range []Peptide{
		{"A", 0}, {"AA", 0}, {"AAK", 0}, // N-terminus at the boundary
		{"AK", 1}, {"K", 2}, // C-terminus at the cleavage site
		{"GG", 3}, {"G", 4}, // ending at the sequence end
	} {
		assert.True(t, set[want], "missing %v", want)
	}
	assert.False(t, set[Peptide{"AKG", 1}], "neither terminus is a cleavage point")
}

func TestCleave_PartialSupersetOfFull(t *testing.T) {
	seq := "MKWVTFISLLFLFSSAYSRGVFRRDAHKSEVAHRFKDLGEENFK"
	for mc := 0; mc <= 2; mc++ {
		full := Cleave(seq, Options{Enzyme: trypsin(t), MissedCleavages: mc, MinLength: 1, MaxLength: 100})
		partial := Cleave(seq, Options{Enzyme: trypsin(t), Mode: Partial, MissedCleavages: mc, MinLength: 1, MaxLength: 100})
		assert.Subset(t, partial, full, "missed cleavages %d", mc)
	}
}

func TestCleave_MonotonicInMissedCleavages(t *testing.T) {
	seqs := []string{
		"ABCDKEFGHKRIJ",
		"MKWVTFISLLFLFSSAYSRGVFRRDAHKSEVAHRFKDLGEENFK",
		"KKKRRRPK",
		"RPRPKAKA",
	}
	for _, seq := range seqs {
		for _, mode := range []Mode{Full, Partial} {
			prev := Cleave(seq, Options{Enzyme: trypsin(t), Mode: mode, MinLength: 1, MaxLength: 100})
			for k := 1; k <= 3; k++ {
				cur := Cleave(seq, Options{Enzyme: trypsin(t), Mode: mode, MissedCleavages: k, MinLength: 1, MaxLength: 100})
				assert.Subset(t, cur, prev, "%s mode=%v k=%d", seq, mode, k)
				prev = cur
			}
		}
	}
}

func TestCleave_FullDigestBoundaries(t *testing.T) {
	e := trypsin(t)
	seqs := []string{
		"MKWVTFISLLFLFSSAYSRGVFRRDAHKSEVAHRFKDLGEENFKALVLIAFAQYLQQCPFEDHVK",
		"KRKRKPKPRR",
		"ABCDKEFGHKRIJ",
	}
	for _, seq := range seqs {
		for _, p := range Cleave(seq, Options{Enzyme: e, MinLength: 1, MaxLength: 100}) {
			start, end := p.Offset, p.Offset+len(p.Sequence)
			assert.True(t, start == 0 || e.Cleaves(seq[start-1], seq[start]), "start of %v", p)
			assert.True(t, end == len(seq) || e.Cleaves(seq[end-1], seq[end]), "end of %v", p)
			assert.Zero(t, MissedCleavages(p.Sequence, e), "internal site in %v", p)
		}
	}
}

func TestCleave_NoEnzymeCount(t *testing.T) {
	tests := []struct {
		seq      string
		min, max int
	}{
		{"ACDEFGHIKL", 1, 10},
		{"ACDEFGHIKL", 3, 5},
		{"ACDEFGHIKL", 8, 20},
		{"ACD", 5, 8},
	}
	for _, tt := range tests {
		got := Cleave(tt.seq, Options{MinLength: tt.min, MaxLength: tt.max})
		want := 0
		for j := tt.min; j <= tt.max; j++ {
			want += max(0, len(tt.seq)-j+1)
		}
		assert.Len(t, got, want, "%s [%d,%d]", tt.seq, tt.min, tt.max)
		for _, p := range got {
			assert.Equal(t, tt.seq[p.Offset:p.Offset+len(p.Sequence)], p.Sequence)
		}
	}
}

func TestCleave_Empty(t *testing.T) {
	assert.Empty(t, Cleave("", Options{Enzyme: trypsin(t), MinLength: 1, MaxLength: 10}))
	assert.Empty(t, Cleave("", Options{MinLength: 1, MaxLength: 10}))
}

func TestSegments(t *testing.T) {
	e := trypsin(t)
	segs := Segments("ABCDKEFGHKRIJ", e)
	var joined string
	for _, s := range segs {
		assert.Equal(t, len(joined), s.Offset)
		joined += s.Sequence
	}
	assert.Equal(t, "ABCDKEFGHKRIJ", joined)
	assert.Len(t, segs, 4)

	assert.Equal(t, []Peptide{{"ACD", 0}}, Segments("ACD", nil))
}

func TestMissedCleavages(t *testing.T) {
	e := trypsin(t)
	assert.Equal(t, 0, MissedCleavages("PEPTIDEK", e))
	assert.Equal(t, 1, MissedCleavages("PEKTIDEK", e))
	assert.Equal(t, 0, MissedCleavages("PEKPTIDEK", e))
	assert.Equal(t, 0, MissedCleavages("PEKTIDEK", nil))
}

func TestClassify(t *testing.T) {
	e := trypsin(t)
	prot := "MAAKGGRCCKPDD"

	tests := []struct {
		offset, length int
		clip           bool
		want           Class
	}{
		{0, 4, false, ClassFull},
		{4, 3, false, ClassFull},
		{7, 6, false, ClassFull},
		{5, 2, false, ClassCTerm},
		{4, 2, false, ClassNTerm},
		{5, 1, false, ClassNonSpecific},
		{1, 3, false, ClassCTerm},
		{1, 3, true, ClassFull},
	}
	for _, tt := range tests {
		got := Classify(prot, tt.offset, tt.length, e, tt.clip)
		assert.Equal(t, tt.want, got, "offset=%d length=%d clip=%v", tt.offset, tt.length, tt.clip)
	}

	assert.Equal(t, ClassNonSpecific, Classify(prot, 0, 4, nil, false))
	assert.Equal(t, ClassNonSpecific, Classify(prot, 10, 10, e, false))
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		e, err := Lookup(name)
		require.NoError(t, err, name)
		if name == NoEnzyme {
			assert.Nil(t, e)
			continue
		}
		require.NotNil(t, e)
		assert.Equal(t, name, e.Name)
	}

	_, err := Lookup("papain")
	assert.Error(t, err)

	names := Names()
	assert.True(t, sort.StringsAreSorted(names))
}

func TestEnzymeRules(t *testing.T) {
	tests := []struct {
		name string
		n, c byte
		want bool
	}{
		{"trypsin", 'K', 'A', true},
		{"trypsin", 'R', 'P', false},
		{"trypsin/p", 'R', 'P', true},
		{"asp-n", 'A', 'D', true},
		{"asp-n", 'D', 'A', false},
		{"lys-n", 'G', 'K', true},
		{"chymotrypsin", 'W', 'G', true},
		{"chymotrypsin", 'W', 'P', false},
		{"cyanogen-bromide", 'M', 'P', true},
		{"glu-c", 'E', 'A', true},
	}
	for _, tt := range tests {
		e, err := Lookup(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, e.Cleaves(tt.n, tt.c), "%s %c|%c", tt.name, tt.n, tt.c)
	}
}

func TestParseCustom(t *testing.T) {
	e, err := ParseCustom("[KR]|{P}")
	require.NoError(t, err)
	assert.True(t, e.Cleaves('K', 'A'))
	assert.False(t, e.Cleaves('K', 'P'))
	assert.False(t, e.Cleaves('A', 'A'))
	assert.Equal(t, "[KR]|{P}", e.Pattern())

	e, err = ParseCustom("{X}|[D]")
	require.NoError(t, err)
	assert.False(t, e.Cleaves('A', 'D'), "{X} excludes everything")

	for _, bad := range []string{"", "[KR]", "KR|P", "[K1]|{P}", "[]|{P}"} {
		_, err := ParseCustom(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("partial-digest")
	require.NoError(t, err)
	assert.Equal(t, Partial, m)

	m, err = ParseMode("full")
	require.NoError(t, err)
	assert.Equal(t, Full, m)

	_, err = ParseMode("half")
	assert.Error(t, err)
}
