package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/pepdb/internal/catalog"
)

func (a *app) newCatalogCmd() *cobra.Command {
	var kind string
	var minMass, maxMass float64
	cmd := &cobra.Command{
		Use:   "catalog [options] <catalog.duckdb> [sequence...]",
		Short: "Query a target/decoy catalog",
		Long: `Print catalog rows written by generate-decoys --catalog, one
tab-separated line per row: sequence, kind, mass and the paired peptide.

With sequences, every row for each sequence is printed. Otherwise rows of
one kind are listed by increasing mass.`,
		Example: `  pepdb catalog peptides.duckdb PEPTIDEK
  pepdb catalog --kind decoy --min-mass 1000 --max-mass 1200 peptides.duckdb`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := catalog.Kind(kind)
			if k != catalog.Target && k != catalog.Decoy {
				return usageError{fmt.Errorf("--kind must be %q or %q, got %q", catalog.Target, catalog.Decoy, kind)}
			}
			if maxMass > 0 && minMass > maxMass {
				return usageError{fmt.Errorf("--min-mass %g exceeds --max-mass %g", minMass, maxMass)}
			}
			hi := maxMass
			if hi <= 0 {
				hi = math.MaxFloat64
			}
			// Open would create a missing catalog.
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			store, err := catalog.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []catalog.Entry
			if len(args) > 1 {
				for _, seq := range args[1:] {
					found, err := store.Lookup(seq)
					if err != nil {
						return err
					}
					if len(found) == 0 {
						a.logger.Warn("peptide not in catalog", zap.String("sequence", seq))
					}
					entries = append(entries, found...)
				}
			} else {
				entries, err = store.InMassRange(k, minMass, hi)
				if err != nil {
					return err
				}
				total, err := store.Count(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d %s peptides in mass range\n", len(entries), total, k)
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(catalog.Target), "Kind of rows to list: target or decoy")
	cmd.Flags().Float64Var(&minMass, "min-mass", 0, "Only list peptides at least this heavy")
	cmd.Flags().Float64Var(&maxMass, "max-mass", 0, "Only list peptides at most this heavy (0 for no limit)")
	return cmd
}

func writeEntries(out io.Writer, entries []catalog.Entry) error {
	w := bufio.NewWriter(out)
	fmt.Fprintln(w, "sequence\tkind\tmass\tpaired")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\n", e.Sequence, e.Kind, e.Mass, e.Paired)
	}
	return w.Flush()
}
