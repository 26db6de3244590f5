package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/pepdb/internal/decoy"
	"github.com/inodb/pepdb/internal/digest"
	"github.com/inodb/pepdb/internal/index"
	"github.com/inodb/pepdb/internal/mass"
	"github.com/inodb/pepdb/internal/protein"
)

// IndexResult summarizes a BuildIndex run.
type IndexResult struct {
	UpToDate      bool // the existing index already matched; nothing was written
	Proteins      int
	DecoyProteins int
	Peptides      int // distinct peptides written
	Sources       int // peptide occurrences across all proteins
}

// peptideSet merges occurrences of identical sequences into one peptide.
type peptideSet struct {
	bySeq   map[string]*protein.Peptide
	entries []index.Entry
	sources int
}

func newPeptideSet() *peptideSet {
	return &peptideSet{bySeq: make(map[string]*protein.Peptide)}
}

func (s *peptideSet) add(seq string, pep *protein.Peptide) error {
	s.sources++
	if existing, ok := s.bySeq[seq]; ok {
		return existing.Merge(pep)
	}
	s.bySeq[seq] = pep
	s.entries = append(s.entries, index.Entry{Sequence: seq, Peptide: pep})
	return nil
}

// BuildIndex digests a FASTA file into a binary index directory. An index
// built from the same file and parameters is left untouched.
func (r *Runner) BuildIndex(fastaPath, dir string) (*IndexResult, error) {
	p := r.params
	opts, err := p.DigestOptions()
	if err != nil {
		return nil, err
	}
	constraint, err := p.Constraint()
	if err != nil {
		return nil, err
	}
	strategy, err := decoy.ParseStrategy(p.DecoyFormat)
	if err != nil {
		return nil, err
	}

	fp, err := index.StatFile(fastaPath)
	if err != nil {
		return nil, fmt.Errorf("stat fasta file: %w", err)
	}
	key := p.IndexKey()
	if !p.Overwrite && index.Valid(dir, fp, key) {
		r.logger.Info("index is up to date", zap.String("dir", dir))
		return &IndexResult{UpToDate: true}, nil
	}

	layout, err := index.Create(dir, p.Overwrite)
	if err != nil {
		return nil, err
	}

	db, err := protein.OpenFASTA(fastaPath, false, r.logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	res := &IndexResult{Proteins: db.Len()}
	targets, err := digestTargets(db, opts, constraint)
	if err != nil {
		return nil, err
	}
	var decoys *peptideSet
	if strategy == decoy.ProteinReverse {
		if decoys, err = digestReversed(db, p.DecoyPrefix, opts, constraint, targets.bySeq); err != nil {
			return nil, err
		}
		res.DecoyProteins = db.Len() - res.Proteins
	}

	entries := targets.entries
	res.Sources = targets.sources
	if decoys != nil {
		entries = append(entries, decoys.entries...)
		res.Sources += decoys.sources
	}
	index.SortByMass(entries)
	res.Peptides = len(entries)

	r.logger.Info("writing index",
		zap.String("dir", dir),
		zap.Int("proteins", db.Len()),
		zap.Int("peptides", res.Peptides))
	if err := index.Write(layout, db, entries, index.Meta{Fasta: fp, Params: key}); err != nil {
		return nil, err
	}
	return res, nil
}

// digested is a peptide that passed the mass filter.
type digested struct {
	digest.Peptide
	mass  float64
	class digest.Class
}

// digestSequence cleaves seq and keeps the peptides within the mass range.
func digestSequence(seq string, opts digest.Options, c mass.Constraint) []digested {
	// Cleave never clips the methionine under partial digestion.
	clipMet := opts.ClipNTermMethionine && opts.Mode != digest.Partial
	var out []digested
	for _, d := range digest.Cleave(seq, opts) {
		m := mass.Sequence(d.Sequence, c.Type)
		if !c.AcceptMass(m) {
			continue
		}
		out = append(out, digested{
			Peptide: d,
			mass:    m,
			class:   digest.Classify(seq, d.Offset, len(d.Sequence), opts.Enzyme, clipMet),
		})
	}
	return out
}

// addPeptides records the digested peptides of prot in set, skipping
// sequences present in exclude.
func addPeptides(set *peptideSet, prot *protein.Protein, peps []digested, exclude map[string]*protein.Peptide) error {
	for _, d := range peps {
		if _, skip := exclude[d.Sequence]; skip {
			continue
		}
		pep, err := protein.NewPeptide(len(d.Sequence), d.mass, protein.Source{
			Protein: prot,
			Offset:  d.Offset,
			Class:   d.class,
		})
		if err != nil {
			return err
		}
		if err := set.add(d.Sequence, pep); err != nil {
			return err
		}
	}
	return nil
}

// digestTargets digests every protein of db in order. Each protein is
// demoted once digested.
func digestTargets(db *protein.Database, opts digest.Options, c mass.Constraint) (*peptideSet, error) {
	set := newPeptideSet()
	for _, prot := range db.Proteins() {
		seq, err := prot.Sequence()
		if err != nil {
			return nil, err
		}
		if err := addPeptides(set, prot, digestSequence(seq, opts, c), nil); err != nil {
			return nil, err
		}
		prot.Demote()
	}
	return set, nil
}

// digestReversed appends the reverse of every protein in db under prefix
// and digests it. Peptides whose sequence is a target are dropped.
func digestReversed(db *protein.Database, prefix string, opts digest.Options, c mass.Constraint, targets map[string]*protein.Peptide) (*peptideSet, error) {
	set := newPeptideSet()
	n := db.Len()
	for i := 0; i < n; i++ {
		prot, err := db.ProteinAt(i)
		if err != nil {
			return nil, err
		}
		id, err := prot.ID()
		if err != nil {
			return nil, err
		}
		desc, err := prot.Description()
		if err != nil {
			return nil, err
		}
		seq, err := prot.Sequence()
		if err != nil {
			return nil, err
		}
		rev := decoy.ReverseProtein(seq)
		prot.Demote()

		decoyProt := db.Add(prefix+id, desc, rev)
		if err := addPeptides(set, decoyProt, digestSequence(rev, opts, c), targets); err != nil {
			return nil, err
		}
	}
	return set, nil
}
