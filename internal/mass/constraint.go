package mass

import "fmt"

// Constraint bounds peptide mass and length. All bounds are inclusive.
type Constraint struct {
	MinMass   float64
	MaxMass   float64
	MinLength int
	MaxLength int
	Type      Type
}

// Validate checks that the bounds are usable.
func (c Constraint) Validate() error {
	if c.MinLength < 1 {
		return fmt.Errorf("min length %d must be at least 1", c.MinLength)
	}
	if c.MaxLength < c.MinLength {
		return fmt.Errorf("max length %d is below min length %d", c.MaxLength, c.MinLength)
	}
	if c.MinMass < 0 || c.MaxMass < c.MinMass {
		return fmt.Errorf("mass range [%g, %g] is invalid", c.MinMass, c.MaxMass)
	}
	return nil
}

// Accept reports whether the sequence satisfies both the length and the
// mass bounds.
func (c Constraint) Accept(seq string) bool {
	if len(seq) < c.MinLength || len(seq) > c.MaxLength {
		return false
	}
	return c.AcceptMass(Sequence(seq, c.Type))
}

// AcceptMass reports whether m lies within [MinMass, MaxMass].
func (c Constraint) AcceptMass(m float64) bool {
	return m >= c.MinMass && m <= c.MaxMass
}
