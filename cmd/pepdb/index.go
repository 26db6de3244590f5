package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/pepdb/internal/pipeline"
)

func (a *app) newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-index [options] <fasta> <index-dir>",
		Short: "Build a binary peptide index from a FASTA file",
		Long: `Digest a FASTA file into an index directory holding proteins.bin,
peptides.bin and index.meta. Identical peptides are stored once with all
their sources, sorted by mass. An index built from the same file and
parameters is reused.`,
		Example: `  pepdb create-index proteins.fasta idx
  pepdb create-index --decoy-format protein-reverse --overwrite proteins.fasta idx`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.params(cmd)
			if err != nil {
				return err
			}
			r := pipeline.NewRunner(p)
			r.SetLogger(a.logger)
			res, err := r.BuildIndex(args[0], args[1])
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			if res.UpToDate {
				fmt.Fprintf(w, "Index %s is up to date\n", args[1])
				return nil
			}
			fmt.Fprintf(w, "Wrote index %s\n", args[1])
			fmt.Fprintf(w, "  Proteins: %d (+%d decoy)\n", res.Proteins, res.DecoyProteins)
			fmt.Fprintf(w, "  Peptides: %d from %d occurrences\n", res.Peptides, res.Sources)
			return nil
		},
	}
	addParamFlags(cmd)
	return cmd
}
