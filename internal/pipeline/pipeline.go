// Package pipeline drives the digestion, filtering, decoy and
// serialization steps end to end.
package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/pepdb/internal/config"
)

// Runner executes pipeline commands for one set of parameters.
type Runner struct {
	params config.Params
	logger *zap.Logger
}

// NewRunner creates a runner. The parameters must already be validated.
func NewRunner(p config.Params) *Runner {
	return &Runner{
		params: p,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warnings and progress.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// outputFile is a buffered output stream.
type outputFile struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func createOutput(path string, overwrite bool) (*outputFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("output file %s exists, use --overwrite to replace it: %w", path, err)
		}
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &outputFile{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (o *outputFile) line(s string) error {
	if _, err := o.w.WriteString(s); err != nil {
		return err
	}
	return o.w.WriteByte('\n')
}

// Close flushes and closes the file. It is safe to call on nil and more
// than once.
func (o *outputFile) Close() error {
	if o == nil || o.f == nil {
		return nil
	}
	err := o.w.Flush()
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	o.f = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", o.path, err)
	}
	return nil
}
