package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/pepdb/internal/config"
	"github.com/inodb/pepdb/internal/pipeline"
)

// addParamFlags registers the run parameters on cmd. Unset flags fall back
// to the parameter file, the user config and the defaults.
func addParamFlags(cmd *cobra.Command) {
	d := config.Defaults()
	f := cmd.Flags()
	f.String("enzyme", d.Enzyme, "Protease name, or no-enzyme")
	f.String("custom-enzyme", d.CustomEnzyme, "Custom cleavage rule such as [KR]|{P}; overrides --enzyme")
	f.String("digestion", d.Digestion, "full-digest or partial-digest")
	f.Int("missed-cleavages", d.MissedCleavages, "Maximum missed cleavages per peptide")
	f.Int("min-length", d.MinLength, "Minimum peptide length")
	f.Int("max-length", d.MaxLength, "Maximum peptide length")
	f.Float64("min-mass", d.MinMass, "Minimum peptide mass (Da)")
	f.Float64("max-mass", d.MaxMass, "Maximum peptide mass (Da)")
	f.String("isotopic-mass", d.IsotopicMass, "average or mono")
	f.Bool("clip-nterm-methionine", d.ClipNTermMethionine, "Also emit peptides without the initial methionine")
	f.String("decoy-format", d.DecoyFormat, "none, reverse, shuffle or protein-reverse")
	f.String("decoy-prefix", d.DecoyPrefix, "Prefix of decoy protein ids")
	f.String("keep-terminal-aminos", d.KeepTerminalAminos, "Residues fixed in decoys: none, N, C or NC")
	f.String("seed", d.Seed, "Random seed, or time")
	f.String("output-dir", d.OutputDir, "Directory for output files")
	f.String("fileroot", d.Fileroot, "Prefix of output file names")
	f.Bool("overwrite", d.Overwrite, "Replace existing output")
}

func (a *app) newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-decoys [options] <fasta>",
		Short: "Write target peptides, matched decoys and decoy proteins",
		Long: `Digest every protein in a FASTA file (plain, gzip or zstd; '-' for stdin)
and write the distinct target peptides that pass the length and mass
filters, one matched decoy per target, and decoy proteins when the
digestion allows them.`,
		Example: `  pepdb generate-decoys proteins.fasta
  pepdb generate-decoys --decoy-format protein-reverse --fileroot run1 proteins.fasta.gz
  pepdb generate-decoys --catalog peptides.duckdb proteins.fasta`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.params(cmd)
			if err != nil {
				return err
			}
			r := pipeline.NewRunner(p)
			r.SetLogger(a.logger)
			res, err := r.GenerateDecoys(args[0])
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "Read %d proteins\n", res.Proteins)
			fmt.Fprintf(w, "  Targets: %d -> %s\n", res.Targets, res.TargetsPath)
			if res.DecoysPath != "" {
				fmt.Fprintf(w, "  Decoys:  %d -> %s\n", res.Decoys, res.DecoysPath)
			}
			if res.Failed > 0 {
				fmt.Fprintf(w, "  Targets without a unique decoy: %d\n", res.Failed)
			}
			if res.ProteinsPath != "" {
				fmt.Fprintf(w, "  Decoy proteins -> %s\n", res.ProteinsPath)
			}
			if res.CatalogPath != "" {
				fmt.Fprintf(w, "  Catalog -> %s\n", res.CatalogPath)
			}
			return nil
		},
	}
	addParamFlags(cmd)
	cmd.Flags().String("catalog", "", "Also write target/decoy pairs to this DuckDB file")
	return cmd
}
