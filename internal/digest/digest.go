package digest

import (
	"fmt"
	"strings"
)

// Mode is the digestion completeness.
type Mode int

const (
	Full Mode = iota
	Partial
)

// ParseMode parses a digestion name such as "full-digest".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full-digest", "full":
		return Full, nil
	case "partial-digest", "partial":
		return Partial, nil
	}
	return Full, fmt.Errorf("unknown digestion %q", s)
}

func (m Mode) String() string {
	if m == Partial {
		return "partial-digest"
	}
	return "full-digest"
}

// Options controls Cleave. A nil Enzyme enumerates every substring.
type Options struct {
	Enzyme              *Enzyme
	Mode                Mode
	MissedCleavages     int
	MinLength           int
	MaxLength           int
	ClipNTermMethionine bool
}

// Peptide is a substring of a protein and its 0-based start offset.
type Peptide struct {
	Sequence string
	Offset   int
}

// Cleave enumerates the peptides of seq under opts. Each (sequence, offset)
// pair is reported once, in the order it is first produced; peptides
// outside [MinLength, MaxLength] are dropped.
func Cleave(seq string, opts Options) []Peptide {
	if len(seq) == 0 {
		return nil
	}
	if opts.Enzyme == nil {
		return allSubstrings(seq, opts.MinLength, opts.MaxLength)
	}

	c := collector{
		seq:    seq,
		clip:   opts.ClipNTermMethionine && seq[0] == 'M' && opts.Mode != Partial,
		minLen: opts.MinLength,
		maxLen: opts.MaxLength,
		seen:   make(map[[2]int]struct{}),
	}
	partial := opts.Mode == Partial
	n := len(seq)

	pepStart, nextPepStart, sites := 0, 0, 0
	for i := 0; i < n; i++ {
		cleavePos := i != n-1 && opts.Enzyme.Cleaves(seq[i], seq[i+1])

		switch {
		case partial && i != n-1 && !cleavePos:
			c.emit(pepStart, i+1)

		case cleavePos:
			c.emit(pepStart, i+1)
			sites++
			if sites == 1 {
				nextPepStart = i + 1
			}
			if partial {
				for j := pepStart + 1; j < nextPepStart; j++ {
					c.emit(j, i+1)
				}
			}
			// Budget exhausted: restart the scan just after the first
			// site seen since pepStart.
			if sites > opts.MissedCleavages {
				pepStart = nextPepStart
				i = pepStart - 1
				sites = 0
			}

		case i == n-1 && sites > 0 && sites <= opts.MissedCleavages:
			c.emit(pepStart, n)
			if partial {
				for j := pepStart + 1; j < nextPepStart; j++ {
					c.emit(j, n)
				}
			}
			pepStart = nextPepStart
			i = pepStart - 1
			sites = 0
		}
	}

	c.emit(nextPepStart, n)
	if partial {
		for j := pepStart + 1; j < n; j++ {
			c.emit(j, n)
		}
	}
	return c.out
}

type collector struct {
	seq    string
	clip   bool
	minLen int
	maxLen int
	seen   map[[2]int]struct{}
	out    []Peptide
}

func (c *collector) emit(start, end int) {
	c.add(start, end)
	if c.clip && start == 0 {
		c.add(1, end)
	}
}

func (c *collector) add(start, end int) {
	l := end - start
	if l < c.minLen || l > c.maxLen || l <= 0 {
		return
	}
	key := [2]int{start, end}
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.out = append(c.out, Peptide{Sequence: c.seq[start:end], Offset: start})
}

func allSubstrings(seq string, minLen, maxLen int) []Peptide {
	if minLen < 1 {
		minLen = 1
	}
	var out []Peptide
	for i := 0; i < len(seq); i++ {
		for j := minLen; i+j <= len(seq) && j <= maxLen; j++ {
			out = append(out, Peptide{Sequence: seq[i : i+j], Offset: i})
		}
	}
	return out
}

// Segments splits seq at every cleavage site of e. The segments tile the
// whole sequence in order, with no length bounds applied.
func Segments(seq string, e *Enzyme) []Peptide {
	if len(seq) == 0 {
		return nil
	}
	if e == nil {
		return []Peptide{{Sequence: seq, Offset: 0}}
	}
	var out []Peptide
	start := 0
	for i := 0; i < len(seq)-1; i++ {
		if e.Cleaves(seq[i], seq[i+1]) {
			out = append(out, Peptide{Sequence: seq[start : i+1], Offset: start})
			start = i + 1
		}
	}
	return append(out, Peptide{Sequence: seq[start:], Offset: start})
}

// MissedCleavages counts the internal cleavage sites of a peptide.
func MissedCleavages(pep string, e *Enzyme) int {
	if e == nil {
		return 0
	}
	count := 0
	for i := 0; i+1 < len(pep); i++ {
		if e.Cleaves(pep[i], pep[i+1]) {
			count++
		}
	}
	return count
}
