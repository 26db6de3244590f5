// Package main provides the pepdb command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/pepdb/internal/config"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if home, err := os.UserHomeDir(); err == nil {
		a.configPath = filepath.Join(home, ".pepdb.yaml")
	}
	os.Exit(run(a, os.Args[1:]))
}

// usageError marks errors caused by bad command-line usage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// app holds the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	logger     *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
	configPath string // user config, empty to skip
	paramFile  string
	verbosity  int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		logger: zap.NewNop(),
		stdout: stdout,
		stderr: stderr,
	}
}

func run(a *app, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.Execute()
	_ = a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pepdb",
		Short: "Digest protein databases into peptides and matched decoys",
		Long: `pepdb digests the proteins of a FASTA file with a protease, filters the
peptides by length and mass, and generates matched decoy peptides and
proteins. It can also build a memory-mapped binary peptide index.

Parameters come from flags, a --parameter-file, ~/.pepdb.yaml and
built-in defaults, in that order.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.paramFile, "parameter-file", "", "YAML, TOML or JSON file of parameters")
	pf.IntVar(&a.verbosity, "verbosity", 2, "Log level: 0 error, 1 warn, 2 info, 3 debug")

	root.AddCommand(a.newGenerateCmd())
	root.AddCommand(a.newIndexCmd())
	root.AddCommand(a.newPeptidesCmd())
	root.AddCommand(a.newCatalogCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// load builds the logger and loads the user config and parameter file.
func (a *app) load() error {
	a.logger = newLogger(a.verbosity, a.stderr)
	config.SetDefaults(a.v)

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err == nil {
			a.v.SetConfigFile(a.configPath)
			if err := a.v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", a.configPath, err)
			}
		}
	}
	if a.paramFile != "" {
		if err := config.ReadParameterFile(a.v, a.paramFile); err != nil {
			return err
		}
	}
	return nil
}

// params binds the command's flags and returns the validated parameters.
func (a *app) params(cmd *cobra.Command) (config.Params, error) {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return config.Params{}, err
	}
	p, err := config.Load(a.v)
	if err != nil {
		return config.Params{}, usageError{err}
	}
	return p, nil
}

func newLogger(verbosity int, w io.Writer) *zap.Logger {
	var level zapcore.Level
	switch {
	case verbosity <= 0:
		level = zapcore.ErrorLevel
	case verbosity == 1:
		level = zapcore.WarnLevel
	case verbosity == 2:
		level = zapcore.InfoLevel
	default:
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pepdb version %s (%s) built %s\n", version, commit, date)
		},
	}
}
