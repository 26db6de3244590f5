package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/pepdb/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pepdb configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.pepdb.yaml.",
		Example: `  pepdb config                             # show all config
  pepdb config set enzyme lys-c            # default to Lys-C digestion
  pepdb config get enzyme                  # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(a.newConfigSetCmd())
	cmd.AddCommand(a.newConfigGetCmd())

	return cmd
}

func (a *app) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// userConfig loads only the user config file, without defaults or flags.
func (a *app) userConfig() (*viper.Viper, error) {
	if a.configPath == "" {
		return nil, errors.New("cannot determine home directory for ~/.pepdb.yaml")
	}
	v := viper.New()
	v.SetConfigFile(a.configPath)
	v.SetConfigType("yaml")
	if _, err := os.Stat(a.configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func (a *app) runConfigShow(w io.Writer) error {
	v, err := a.userConfig()
	if err != nil {
		return err
	}
	settings := v.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: %s\n", a.configPath)
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func (a *app) runConfigSet(w io.Writer, key, value string) error {
	key = strings.ToLower(key)
	known := viper.New()
	config.SetDefaults(known)
	if !slices.Contains(known.AllKeys(), key) {
		return usageError{fmt.Errorf("unknown parameter %q", key)}
	}

	v, err := a.userConfig()
	if err != nil {
		return err
	}
	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		v.Set(key, true)
	case "false", "no", "off":
		v.Set(key, false)
	default:
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(a.configPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, a.configPath)
	return nil
}

func (a *app) runConfigGet(w io.Writer, key string) error {
	v, err := a.userConfig()
	if err != nil {
		return err
	}
	val := v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
