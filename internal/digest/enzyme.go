// Package digest enumerates the peptides produced by enzymatic cleavage of
// a protein sequence.
package digest

import (
	"fmt"
	"sort"
	"strings"
)

// residueSet matches residues on one side of a cleavage site.
type residueSet struct {
	residues string
	negate   bool
}

func (s residueSet) match(aa byte) bool {
	if strings.IndexByte(s.residues, 'X') >= 0 {
		return !s.negate
	}
	return (strings.IndexByte(s.residues, aa) >= 0) != s.negate
}

func (s residueSet) String() string {
	if s.negate {
		return "{" + s.residues + "}"
	}
	return "[" + s.residues + "]"
}

// Enzyme decides whether the bond between two adjacent residues is cleaved.
// The zero value is not usable; use Lookup or ParseCustom.
type Enzyme struct {
	Name   string
	before residueSet
	after  residueSet
}

// Cleaves reports whether the bond between n (N-terminal side) and c
// (C-terminal side) is a cleavage site.
func (e *Enzyme) Cleaves(n, c byte) bool {
	return e.before.match(n) && e.after.match(c)
}

// Pattern returns the rule in custom-enzyme syntax, e.g. "[KR]|{P}".
func (e *Enzyme) Pattern() string {
	return e.before.String() + "|" + e.after.String()
}

func (e *Enzyme) String() string { return e.Name }

// NoEnzyme is the name accepted by Lookup for unconstrained digestion.
const NoEnzyme = "no-enzyme"

var enzymePatterns = map[string]string{
	"trypsin":                       "[KR]|{P}",
	"trypsin/p":                     "[KR]|[X]",
	"chymotrypsin":                  "[FWYL]|{P}",
	"elastase":                      "[ALIV]|{P}",
	"clostripain":                   "[R]|[X]",
	"cyanogen-bromide":              "[M]|[X]",
	"iodosobenzoate":                "[W]|[X]",
	"proline-endopeptidase":         "[P]|[X]",
	"staph-protease":                "[E]|[X]",
	"asp-n":                         "[X]|[D]",
	"lys-c":                         "[K]|{P}",
	"lys-n":                         "[X]|[K]",
	"arg-c":                         "[R]|{P}",
	"glu-c":                         "[DE]|{P}",
	"pepsin-a":                      "[FL]|{P}",
	"elastase-trypsin-chymotrypsin": "[ALIVKRWFY]|{P}",
}

// Names returns the known enzyme names, sorted, including NoEnzyme.
func Names() []string {
	names := make([]string, 0, len(enzymePatterns)+1)
	for name := range enzymePatterns {
		names = append(names, name)
	}
	names = append(names, NoEnzyme)
	sort.Strings(names)
	return names
}

// Lookup returns the named enzyme. It returns nil, nil for NoEnzyme.
func Lookup(name string) (*Enzyme, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == NoEnzyme {
		return nil, nil
	}
	pattern, ok := enzymePatterns[key]
	if !ok {
		return nil, fmt.Errorf("unknown enzyme %q", name)
	}
	e, err := ParseCustom(pattern)
	if err != nil {
		return nil, err
	}
	e.Name = key
	return e, nil
}

// ParseCustom parses a rule of the form "[KR]|{P}". The left side matches
// the residue before the cut and the right side the residue after it.
// Square brackets list allowed residues, braces list forbidden residues and
// X stands for any residue.
func ParseCustom(pattern string) (*Enzyme, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(pattern), "|")
	if !ok {
		return nil, fmt.Errorf("custom enzyme %q: missing '|'", pattern)
	}
	before, err := parseResidueSet(left)
	if err != nil {
		return nil, fmt.Errorf("custom enzyme %q: %w", pattern, err)
	}
	after, err := parseResidueSet(right)
	if err != nil {
		return nil, fmt.Errorf("custom enzyme %q: %w", pattern, err)
	}
	return &Enzyme{Name: "custom", before: before, after: after}, nil
}

func parseResidueSet(s string) (residueSet, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return residueSet{}, fmt.Errorf("residue set %q too short", s)
	}
	var set residueSet
	switch {
	case s[0] == '[' && s[len(s)-1] == ']':
	case s[0] == '{' && s[len(s)-1] == '}':
		set.negate = true
	default:
		return residueSet{}, fmt.Errorf("residue set %q must be wrapped in [] or {}", s)
	}
	body := strings.ToUpper(s[1 : len(s)-1])
	for i := 0; i < len(body); i++ {
		if body[i] < 'A' || body[i] > 'Z' {
			return residueSet{}, fmt.Errorf("invalid residue %q in %q", body[i], s)
		}
	}
	set.residues = body
	return set, nil
}
