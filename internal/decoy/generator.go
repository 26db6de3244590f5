package decoy

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ParseSeed parses a seed value. "time" seeds from the wall clock.
func ParseSeed(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "time") {
		return uint64(time.Now().UnixNano()), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seed %q: %w", s, err)
	}
	return uint64(v), nil
}

// Generator is the state of one decoy-generation run: the random source
// and the target and decoy sets. It is not safe for concurrent use.
type Generator struct {
	Targets Set
	Decoys  Set

	strategy Strategy
	terminal Terminal
	rng      *rand.Rand
	logger   *zap.Logger

	failed int
}

// NewGenerator returns a generator seeded with seed. The seed is fixed for
// the lifetime of the generator.
func NewGenerator(strategy Strategy, terminal Terminal, seed uint64) *Generator {
	return &Generator{
		Targets:  make(Set),
		Decoys:   make(Set),
		strategy: strategy,
		terminal: terminal,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for decoy-exhaustion warnings.
func (g *Generator) SetLogger(logger *zap.Logger) {
	g.logger = logger
}

// Strategy returns the configured decoy format.
func (g *Generator) Strategy() Strategy { return g.strategy }

// Failed returns the number of targets for which no decoy was found.
func (g *Generator) Failed() int { return g.failed }

// Pair returns the decoy for target and records it in Decoys. When no
// unique decoy exists it logs a warning and returns target and false.
func (g *Generator) Pair(target string) (string, bool) {
	d, ok := MakeDecoy(g.rng, target, g.Targets, g.Decoys, g.strategy == Shuffle, g.terminal)
	if !ok {
		g.failed++
		g.logger.Warn("could not make decoy", zap.String("peptide", target))
		return target, false
	}
	g.Decoys.Add(d)
	return d, true
}
