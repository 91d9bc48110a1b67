package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/varsim-tools/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage varsim-tools configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + config.FileName + ".",
		Example: `  varsim-tools config                          # show effective config
  varsim-tools config set merge.reference hs37d5.fa  # contig order for sorting
  varsim-tools config get reconcile.subset_check     # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))

	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(args[0])
		},
	}
}

func (a *app) runConfigShow() error {
	out, err := yaml.Marshal(a.v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(a.stdout, string(out))
	return nil
}

func (a *app) runConfigSet(key, value string) error {
	kind, ok := config.Keys()[key]
	if !ok {
		return usagef("unknown config key %q", key)
	}
	parsed, err := parseValue(kind, value)
	if err != nil {
		return usagef("%s: %v", key, err)
	}

	cfgFile := a.v.ConfigFileUsed()
	if cfgFile == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfgFile = path
	}

	// Only values already in the file and the new one are written, not defaults.
	fv := viper.New()
	fv.SetConfigFile(cfgFile)
	fv.SetConfigType("yaml")
	if err := fv.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	fv.Set(key, parsed)

	if err := fv.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(key string) error {
	if _, ok := config.Keys()[key]; !ok {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(a.stdout, a.v.Get(key))
	return nil
}

// parseValue converts a command-line value to the type of its config field.
func parseValue(kind reflect.Kind, value string) (any, error) {
	switch kind {
	case reflect.Bool:
		switch value {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %q", value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", value)
		}
		return n, nil
	}
	return value, nil
}
