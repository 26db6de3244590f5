package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/pepdb/internal/catalog"
	"github.com/inodb/pepdb/internal/decoy"
	"github.com/inodb/pepdb/internal/digest"
	"github.com/inodb/pepdb/internal/fasta"
	"github.com/inodb/pepdb/internal/mass"
	"github.com/inodb/pepdb/internal/protein"
)

// Output file names, before the fileroot prefix.
const (
	TargetsFile       = "peptides.target.txt"
	DecoysFile        = "peptides.decoy.txt"
	ProteinDecoysFile = "proteins.decoy.txt"
)

// DecoyResult summarizes a GenerateDecoys run.
type DecoyResult struct {
	Proteins     int
	Targets      int // targets written after the mass filter
	Decoys       int
	Failed       int // targets without a unique decoy
	TargetsPath  string
	DecoysPath   string // empty when no decoys were requested
	ProteinsPath string // empty when decoy proteins are not possible
	CatalogPath  string
}

// GenerateDecoys reads a FASTA file, writes the distinct target peptides
// that pass the mass filter, a matched decoy per target and, when possible,
// decoy proteins.
func (r *Runner) GenerateDecoys(fastaPath string) (res *DecoyResult, err error) {
	p := r.params
	opts, err := p.DigestOptions()
	if err != nil {
		return nil, err
	}
	constraint, err := p.Constraint()
	if err != nil {
		return nil, err
	}
	gen, err := p.NewGenerator()
	if err != nil {
		return nil, err
	}
	gen.SetLogger(r.logger)
	strategy := gen.Strategy()
	proteinReverse := strategy == decoy.ProteinReverse

	res = &DecoyResult{}
	var targetsOut, decoysOut, proteinsOut *outputFile
	defer func() {
		for _, o := range []*outputFile{targetsOut, decoysOut, proteinsOut} {
			if cerr := o.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	if targetsOut, err = createOutput(p.OutputPath(TargetsFile), p.Overwrite); err != nil {
		return nil, err
	}
	res.TargetsPath = targetsOut.path
	if strategy != decoy.None {
		if decoysOut, err = createOutput(p.OutputPath(DecoysFile), p.Overwrite); err != nil {
			return nil, err
		}
		res.DecoysPath = decoysOut.path
	}
	if p.CanGenerateDecoyProteins() {
		if proteinsOut, err = createOutput(p.OutputPath(ProteinDecoysFile), p.Overwrite); err != nil {
			return nil, err
		}
		res.ProteinsPath = proteinsOut.path
	}

	r.logger.Info("reading proteins", zap.String("path", fastaPath))
	db, err := r.readProteins(fastaPath, opts, gen, proteinsOut)
	if err != nil {
		return nil, err
	}
	res.Proteins = db.Len()

	if decoysOut != nil {
		r.logger.Info("making decoys and writing peptide files")
	} else {
		r.logger.Info("writing peptide file")
	}

	var entries []catalog.Entry
	targetToDecoy := make(map[string]string)
	for _, target := range gen.Targets.Sorted() {
		m := mass.Sequence(target, constraint.Type)
		if !constraint.AcceptMass(m) {
			continue
		}
		if err := targetsOut.line(target); err != nil {
			return nil, fmt.Errorf("write target: %w", err)
		}
		res.Targets++

		entry := catalog.Entry{Sequence: target, Kind: catalog.Target, Mass: m}
		if decoysOut != nil && !proteinReverse {
			d, ok := gen.Pair(target)
			if ok {
				targetToDecoy[target] = d
				entry.Paired = d
				entries = append(entries, catalog.Entry{Sequence: d, Kind: catalog.Decoy, Mass: m, Paired: target})
			}
			if err := decoysOut.line(d); err != nil {
				return nil, fmt.Errorf("write decoy: %w", err)
			}
			res.Decoys++
		}
		entries = append(entries, entry)
	}
	res.Failed = gen.Failed()

	if proteinReverse {
		for _, d := range gen.Decoys.Sorted() {
			m := mass.Sequence(d, constraint.Type)
			if !constraint.AcceptMass(m) {
				continue
			}
			if err := decoysOut.line(d); err != nil {
				return nil, fmt.Errorf("write decoy: %w", err)
			}
			res.Decoys++
			entries = append(entries, catalog.Entry{Sequence: d, Kind: catalog.Decoy, Mass: m})
		}
	}

	if proteinsOut != nil && !proteinReverse {
		r.logger.Info("writing decoy proteins")
		if err := writeDecoyProteins(proteinsOut, db, opts.Enzyme, targetToDecoy, p.DecoyPrefix); err != nil {
			return nil, err
		}
	}

	if p.Catalog != "" {
		if err := writeCatalog(p.Catalog, entries); err != nil {
			return nil, err
		}
		res.CatalogPath = p.Catalog
	}

	r.logger.Info("generated peptides",
		zap.Int("proteins", res.Proteins),
		zap.Int("targets", res.Targets),
		zap.Int("decoys", res.Decoys),
		zap.Int("failed", res.Failed))
	return res, nil
}

// readProteins digests every protein into gen.Targets. Under protein-level
// reversal each reversed protein is written to proteinsOut and digested into
// gen.Decoys.
func (r *Runner) readProteins(path string, opts digest.Options, gen *decoy.Generator, proteinsOut *outputFile) (*protein.Database, error) {
	rd, err := fasta.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	rd.SetLogger(r.logger)

	proteinReverse := gen.Strategy() == decoy.ProteinReverse
	db := protein.New()
	peptides := 0
	for {
		rec, err := rd.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		r.logger.Debug("read protein", zap.String("protein", rec.ID))
		db.Add(rec.ID, rec.Description, rec.Sequence)

		peps := digest.Cleave(rec.Sequence, opts)
		peptides += len(peps)
		for _, pep := range peps {
			gen.Targets.Add(pep.Sequence)
		}

		if proteinReverse {
			rev := decoy.ReverseProtein(rec.Sequence)
			if proteinsOut != nil {
				if err := protein.WriteFASTA(proteinsOut.w, r.params.DecoyPrefix+rec.ID, "", rev); err != nil {
					return nil, err
				}
			}
			for _, pep := range digest.Cleave(rev, opts) {
				gen.Decoys.Add(pep.Sequence)
			}
		}
	}
	r.logger.Debug("read proteins", zap.Int("proteins", db.Len()), zap.Int("peptides", peptides))
	return db, nil
}

// writeDecoyProteins rebuilds each protein from its cleavage segments,
// substituting the decoy of every segment that has one.
func writeDecoyProteins(out *outputFile, db *protein.Database, e *digest.Enzyme, targetToDecoy map[string]string, prefix string) error {
	for _, prot := range db.Proteins() {
		id, err := prot.ID()
		if err != nil {
			return err
		}
		seq, err := prot.Sequence()
		if err != nil {
			return err
		}
		var sb strings.Builder
		sb.Grow(len(seq))
		for _, seg := range digest.Segments(seq, e) {
			if d, ok := targetToDecoy[seg.Sequence]; ok {
				sb.WriteString(d)
			} else {
				sb.WriteString(seg.Sequence)
			}
		}
		if err := protein.WriteFASTA(out.w, prefix+id, "", sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeCatalog(path string, entries []catalog.Entry) (err error) {
	store, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	if err := store.WriteEntries(entries); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}
