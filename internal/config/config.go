// Package config holds the run parameters shared by the pepdb commands.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/inodb/pepdb/internal/decoy"
	"github.com/inodb/pepdb/internal/digest"
	"github.com/inodb/pepdb/internal/mass"
)

// ErrInvalid is wrapped by every parameter validation error.
var ErrInvalid = errors.New("invalid parameter")

// Params are the digestion, filtering, decoy and output settings of a run.
type Params struct {
	Enzyme              string  `mapstructure:"enzyme"`
	CustomEnzyme        string  `mapstructure:"custom-enzyme"`
	Digestion           string  `mapstructure:"digestion"`
	MissedCleavages     int     `mapstructure:"missed-cleavages"`
	MinLength           int     `mapstructure:"min-length"`
	MaxLength           int     `mapstructure:"max-length"`
	MinMass             float64 `mapstructure:"min-mass"`
	MaxMass             float64 `mapstructure:"max-mass"`
	IsotopicMass        string  `mapstructure:"isotopic-mass"`
	ClipNTermMethionine bool    `mapstructure:"clip-nterm-methionine"`
	DecoyFormat         string  `mapstructure:"decoy-format"`
	DecoyPrefix         string  `mapstructure:"decoy-prefix"`
	KeepTerminalAminos  string  `mapstructure:"keep-terminal-aminos"`
	Seed                string  `mapstructure:"seed"`
	OutputDir           string  `mapstructure:"output-dir"`
	Fileroot            string  `mapstructure:"fileroot"`
	Overwrite           bool    `mapstructure:"overwrite"`
	Catalog             string  `mapstructure:"catalog"`
}

// Defaults returns the built-in parameter values.
func Defaults() Params {
	return Params{
		Enzyme:             "trypsin",
		Digestion:          "full-digest",
		MinLength:          6,
		MaxLength:          50,
		MinMass:            200,
		MaxMass:            7200,
		IsotopicMass:       "average",
		DecoyFormat:        "shuffle",
		DecoyPrefix:        "decoy_",
		KeepTerminalAminos: "C",
		Seed:               "1",
		OutputDir:          "pepdb-output",
	}
}

// SetDefaults registers Defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("enzyme", d.Enzyme)
	v.SetDefault("custom-enzyme", d.CustomEnzyme)
	v.SetDefault("digestion", d.Digestion)
	v.SetDefault("missed-cleavages", d.MissedCleavages)
	v.SetDefault("min-length", d.MinLength)
	v.SetDefault("max-length", d.MaxLength)
	v.SetDefault("min-mass", d.MinMass)
	v.SetDefault("max-mass", d.MaxMass)
	v.SetDefault("isotopic-mass", d.IsotopicMass)
	v.SetDefault("clip-nterm-methionine", d.ClipNTermMethionine)
	v.SetDefault("decoy-format", d.DecoyFormat)
	v.SetDefault("decoy-prefix", d.DecoyPrefix)
	v.SetDefault("keep-terminal-aminos", d.KeepTerminalAminos)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("output-dir", d.OutputDir)
	v.SetDefault("fileroot", d.Fileroot)
	v.SetDefault("overwrite", d.Overwrite)
	v.SetDefault("catalog", d.Catalog)
}

// ReadParameterFile merges a YAML, TOML or JSON parameter file into v.
func ReadParameterFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read parameter file %s: %w", path, err)
	}
	return nil
}

// Load unmarshals and validates the parameters held by v.
func Load(v *viper.Viper) (Params, error) {
	var p Params
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks every parameter and reports all problems at once.
func (p Params) Validate() error {
	var errs []error
	if _, err := p.EnzymeRule(); err != nil {
		errs = append(errs, invalid("%v", err))
	}
	if _, err := digest.ParseMode(p.Digestion); err != nil {
		errs = append(errs, invalid("digestion: %v", err))
	}
	if p.MissedCleavages < 0 {
		errs = append(errs, invalid("missed-cleavages %d < 0", p.MissedCleavages))
	}
	if p.MinLength < 1 || p.MaxLength > 255 || p.MinLength > p.MaxLength {
		errs = append(errs, invalid("length range [%d, %d] outside 1..255", p.MinLength, p.MaxLength))
	}
	if p.MinMass < 0 || p.MinMass > p.MaxMass {
		errs = append(errs, invalid("mass range [%g, %g]", p.MinMass, p.MaxMass))
	}
	if _, err := mass.ParseType(p.IsotopicMass); err != nil {
		errs = append(errs, invalid("isotopic-mass: %v", err))
	}
	if _, err := decoy.ParseStrategy(p.DecoyFormat); err != nil {
		errs = append(errs, invalid("decoy-format: %v", err))
	}
	if _, err := decoy.ParseTerminal(p.KeepTerminalAminos); err != nil {
		errs = append(errs, invalid("keep-terminal-aminos: %v", err))
	}
	if _, err := decoy.ParseSeed(p.Seed); err != nil {
		errs = append(errs, invalid("seed: %v", err))
	}
	return errors.Join(errs...)
}

// EnzymeRule returns the configured enzyme. A custom enzyme pattern takes
// precedence over the enzyme name; nil means no enzyme.
func (p Params) EnzymeRule() (*digest.Enzyme, error) {
	if strings.TrimSpace(p.CustomEnzyme) != "" {
		return digest.ParseCustom(p.CustomEnzyme)
	}
	return digest.Lookup(p.Enzyme)
}

// DigestOptions returns the cleavage settings.
func (p Params) DigestOptions() (digest.Options, error) {
	e, err := p.EnzymeRule()
	if err != nil {
		return digest.Options{}, err
	}
	mode, err := digest.ParseMode(p.Digestion)
	if err != nil {
		return digest.Options{}, err
	}
	return digest.Options{
		Enzyme:              e,
		Mode:                mode,
		MissedCleavages:     p.MissedCleavages,
		MinLength:           p.MinLength,
		MaxLength:           p.MaxLength,
		ClipNTermMethionine: p.ClipNTermMethionine,
	}, nil
}

// Constraint returns the mass and length filter.
func (p Params) Constraint() (mass.Constraint, error) {
	t, err := mass.ParseType(p.IsotopicMass)
	if err != nil {
		return mass.Constraint{}, err
	}
	c := mass.Constraint{
		MinMass:   p.MinMass,
		MaxMass:   p.MaxMass,
		MinLength: p.MinLength,
		MaxLength: p.MaxLength,
		Type:      t,
	}
	if err := c.Validate(); err != nil {
		return mass.Constraint{}, err
	}
	return c, nil
}

// NewGenerator returns a decoy generator for the configured format,
// terminal mode and seed.
func (p Params) NewGenerator() (*decoy.Generator, error) {
	s, err := decoy.ParseStrategy(p.DecoyFormat)
	if err != nil {
		return nil, err
	}
	t, err := decoy.ParseTerminal(p.KeepTerminalAminos)
	if err != nil {
		return nil, err
	}
	seed, err := decoy.ParseSeed(p.Seed)
	if err != nil {
		return nil, err
	}
	return decoy.NewGenerator(s, t, seed), nil
}

// CanGenerateDecoyProteins reports whether decoy proteins can be written.
// Protein-level reversal always can. Peptide-level decoys can only be
// stitched back into proteins under a real enzyme, full digestion and no
// missed cleavages, where the peptides tile each protein.
func (p Params) CanGenerateDecoyProteins() bool {
	s, err := decoy.ParseStrategy(p.DecoyFormat)
	if err != nil || s == decoy.None {
		return false
	}
	if s == decoy.ProteinReverse {
		return true
	}
	e, err := p.EnzymeRule()
	if err != nil || e == nil {
		return false
	}
	mode, err := digest.ParseMode(p.Digestion)
	return err == nil && mode == digest.Full && p.MissedCleavages == 0
}

// OutputPath returns name inside the output directory, prefixed with the
// fileroot when one is set.
func (p Params) OutputPath(name string) string {
	if p.Fileroot != "" {
		name = p.Fileroot + "." + name
	}
	return filepath.Join(p.OutputDir, name)
}

// IndexKey returns a canonical string of the parameters that determine
// index content.
func (p Params) IndexKey() string {
	enzyme := p.Enzyme
	if strings.TrimSpace(p.CustomEnzyme) != "" {
		enzyme = "custom:" + strings.TrimSpace(p.CustomEnzyme)
	}
	fields := []string{
		"enzyme=" + strings.ToLower(enzyme),
		"digestion=" + strings.ToLower(p.Digestion),
		"missed-cleavages=" + strconv.Itoa(p.MissedCleavages),
		"length=" + strconv.Itoa(p.MinLength) + "-" + strconv.Itoa(p.MaxLength),
		"mass=" + strconv.FormatFloat(p.MinMass, 'g', -1, 64) + "-" + strconv.FormatFloat(p.MaxMass, 'g', -1, 64),
		"isotopic-mass=" + strings.ToLower(p.IsotopicMass),
		"clip-nterm-methionine=" + strconv.FormatBool(p.ClipNTermMethionine),
		"decoy-format=" + strings.ToLower(p.DecoyFormat),
		"decoy-prefix=" + p.DecoyPrefix,
	}
	return strings.Join(fields, ";")
}
