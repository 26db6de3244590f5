// Package decoy generates decoy peptides and proteins that do not collide
// with any known target or previously accepted decoy.
package decoy

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// MaxShuffleAttempts bounds the shuffle retries of MakeDecoy.
const MaxShuffleAttempts = 6

// Terminal selects which terminal residues a decoy keeps in place.
type Terminal int

const (
	KeepNone Terminal = iota
	KeepN
	KeepC
	KeepNC
)

// ParseTerminal parses "none", "N", "C" or "NC".
func ParseTerminal(s string) (Terminal, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return KeepNone, nil
	case "N":
		return KeepN, nil
	case "C":
		return KeepC, nil
	case "NC", "CN":
		return KeepNC, nil
	}
	return KeepNone, fmt.Errorf("unknown terminal mode %q", s)
}

func (t Terminal) String() string {
	switch t {
	case KeepN:
		return "N"
	case KeepC:
		return "C"
	case KeepNC:
		return "NC"
	}
	return "none"
}

// Strategy is the decoy format.
type Strategy int

const (
	None Strategy = iota
	Reverse
	Shuffle
	ProteinReverse
)

// ParseStrategy parses a decoy-format value.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return None, nil
	case "reverse", "peptide-reverse":
		return Reverse, nil
	case "shuffle", "peptide-shuffle":
		return Shuffle, nil
	case "protein-reverse":
		return ProteinReverse, nil
	}
	return None, fmt.Errorf("unknown decoy format %q", s)
}

func (s Strategy) String() string {
	switch s {
	case Reverse:
		return "reverse"
	case Shuffle:
		return "shuffle"
	case ProteinReverse:
		return "protein-reverse"
	}
	return "none"
}

// Set is a set of peptide sequences.
type Set map[string]struct{}

// Has reports whether seq is in the set. A nil set is empty.
func (s Set) Has(seq string) bool {
	_, ok := s[seq]
	return ok
}

// Add inserts seq and reports whether it was new.
func (s Set) Add(seq string) bool {
	if _, ok := s[seq]; ok {
		return false
	}
	s[seq] = struct{}{}
	return true
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for seq := range s {
		out = append(out, seq)
	}
	sort.Strings(out)
	return out
}

// MakeDecoy derives a decoy from target that is in neither targets nor
// decoys. Unless shuffle is set the core is reversed first; shuffling is
// then tried up to MaxShuffleAttempts times. On failure it returns target
// and false. The caller adds an accepted decoy to decoys.
func MakeDecoy(rng *rand.Rand, target string, targets, decoys Set, shuffle bool, mode Terminal) (string, bool) {
	var pre, post string
	core := target
	switch mode {
	case KeepN:
		pre, core = target[:min(1, len(target))], target[min(1, len(target)):]
	case KeepC:
		if len(target) > 0 {
			core, post = target[:len(target)-1], target[len(target)-1:]
		}
	case KeepNC:
		if len(target) >= 2 {
			pre, core, post = target[:1], target[1:len(target)-1], target[len(target)-1:]
		} else {
			core = ""
		}
	}
	if len(core) <= 1 {
		return target, false
	}

	unique := func(cand string) bool {
		return !targets.Has(cand) && !decoys.Has(cand)
	}

	buf := []byte(core)
	if !shuffle {
		if reverse(buf) {
			if cand := pre + string(buf) + post; unique(cand) {
				return cand, true
			}
		}
	}

	for i := 0; i < MaxShuffleAttempts; i++ {
		if shuffleCore(rng, buf) {
			if cand := pre + string(buf) + post; unique(cand) {
				return cand, true
			}
		}
	}
	return target, false
}

// reverse reverses b in place and reports whether it changed.
func reverse(b []byte) bool {
	changed := false
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		if b[i] != b[j] {
			changed = true
		}
		b[i], b[j] = b[j], b[i]
	}
	return changed
}

// shuffleCore permutes b in place and reports whether it changed. A
// two-residue core is swapped.
func shuffleCore(rng *rand.Rand, b []byte) bool {
	if len(b) == 2 {
		b[0], b[1] = b[1], b[0]
		return true
	}
	orig := string(b)
	rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	return string(b) != orig
}

// ReverseProtein returns seq reversed.
func ReverseProtein(seq string) string {
	b := []byte(seq)
	reverse(b)
	return string(b)
}
