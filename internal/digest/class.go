package digest

// Class records which termini of a peptide occurrence are genuine
// cleavage points.
type Class int32

const (
	ClassFull Class = iota
	ClassNTerm
	ClassCTerm
	ClassNonSpecific
)

func (c Class) String() string {
	switch c {
	case ClassFull:
		return "full"
	case ClassNTerm:
		return "n-term"
	case ClassCTerm:
		return "c-term"
	case ClassNonSpecific:
		return "non-specific"
	}
	return "unknown"
}

// Classify returns the class of the peptide occupying
// protein[offset:offset+length]. Protein ends always count as genuine, as
// does offset 1 after an initial methionine when clipMet is set.
func Classify(protein string, offset, length int, e *Enzyme, clipMet bool) Class {
	end := offset + length
	if e == nil || offset < 0 || end > len(protein) || length <= 0 {
		return ClassNonSpecific
	}

	nOK := offset == 0 ||
		e.Cleaves(protein[offset-1], protein[offset]) ||
		(clipMet && offset == 1 && protein[0] == 'M')
	cOK := end == len(protein) || e.Cleaves(protein[end-1], protein[end])

	switch {
	case nOK && cOK:
		return ClassFull
	case nOK:
		return ClassNTerm
	case cOK:
		return ClassCTerm
	}
	return ClassNonSpecific
}
