package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/pepdb/internal/index"
	"github.com/inodb/pepdb/internal/protein"
)

func (a *app) newPeptidesCmd() *cobra.Command {
	var minMass, maxMass float64
	cmd := &cobra.Command{
		Use:   "peptides [options] <index-dir>",
		Short: "List the peptides of an index",
		Long: `Print one tab-separated line per indexed peptide: sequence, mass and
the protein:offset of every occurrence. Peptides are listed by
increasing mass.`,
		Example: `  pepdb peptides idx
  pepdb peptides --min-mass 1000 --max-mass 1200 idx`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxMass > 0 && minMass > maxMass {
				return usageError{fmt.Errorf("--min-mass %g exceeds --max-mass %g", minMass, maxMass)}
			}
			hi := maxMass
			if hi <= 0 {
				hi = math.Inf(1)
			}
			r, err := index.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			r.Proteins().SetLogger(a.logger)
			n, err := listPeptides(cmd.OutOrStdout(), r, minMass, hi)
			if err != nil {
				return err
			}
			a.logger.Debug("listed peptides", zap.String("dir", args[0]), zap.Int("peptides", n))
			return nil
		},
	}
	cmd.Flags().Float64Var(&minMass, "min-mass", 0, "Only list peptides at least this heavy")
	cmd.Flags().Float64Var(&maxMass, "max-mass", 0, "Only list peptides at most this heavy (0 for no limit)")
	return cmd
}

// listPeptides writes the peptides of r with mass in [lo, hi] and returns
// how many were written. The scan stops at the first peptide above hi.
func listPeptides(out io.Writer, r *index.Reader, lo, hi float64) (int, error) {
	w := bufio.NewWriter(out)
	fmt.Fprintln(w, "sequence\tmass\tproteins")
	n := 0
	for {
		pep, err := r.Next()
		if err != nil {
			return n, err
		}
		if pep == nil {
			break
		}
		m := pep.Mass()
		if m < lo {
			continue
		}
		if m > hi {
			break
		}
		seq, err := pep.ModifiedSequence()
		if err != nil {
			return n, err
		}
		srcs, err := formatSources(pep.Sources())
		if err != nil {
			return n, err
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\n", seq, m, srcs)
		n++
	}
	return n, w.Flush()
}

func formatSources(sources []protein.Source) (string, error) {
	parts := make([]string, len(sources))
	for i, s := range sources {
		id, err := s.Protein.ID()
		if err != nil {
			return "", err
		}
		parts[i] = id + ":" + strconv.Itoa(s.Offset)
	}
	return strings.Join(parts, ","), nil
}
