package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/confer"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newGetCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <section> <key>",
		Short: "Print a value",
		Long: `Print the value stored at section.key.

Strings are printed verbatim; other values are printed as TOML literals.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}
			section, key := args[0], args[1]

			if _, err := store.ListKeys(section); err != nil {
				return err
			}
			v, ok := store.GetValue(section, key)
			if !ok {
				return &confer.MissingKeyError{Section: section, Key: key}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				return enc.Encode(confer.Native(v))
			}
			text, err := formatValue(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the value as JSON")
	return cmd
}

func newSetCmd(opts *options) *cobra.Command {
	var asString bool

	cmd := &cobra.Command{
		Use:   "set <section> <key> <value>",
		Short: "Store a value",
		Long: `Store a value at section.key and save the file.

The value is a TOML literal such as 8080, true, "text", 1979-05-27 or
[1, 2]. Use --string to store the argument verbatim as a string.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(true)
			if err != nil {
				return err
			}
			section, key, raw := args[0], args[1], args[2]

			var v confer.Value = confer.String(raw)
			if !asString {
				v, err = confer.ParseLiteral(raw)
				if err != nil {
					return err
				}
			}
			if err := store.SetValue(section, key, v); err != nil {
				return err
			}
			return store.SaveFile(opts.file)
		},
	}

	cmd.Flags().BoolVarP(&asString, "string", "s", false, "store the value verbatim as a string")
	return cmd
}

func newRmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <section> [key]",
		Short: "Remove a key, or a whole section",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				err = store.RemoveKey(args[0], args[1])
			} else {
				err = store.RemoveSection(args[0])
			}
			if err != nil {
				return err
			}
			return store.SaveFile(opts.file)
		},
	}
}

func newSectionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}
			for _, name := range store.ListSections() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newKeysCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <section>",
		Short: "List the keys of a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}
			keys, err := store.ListKeys(args[0])
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

// formatValue renders v for display. Strings are returned verbatim, tables
// as TOML key/value lines, and everything else as a TOML literal.
func formatValue(v confer.Value) (string, error) {
	switch x := v.(type) {
	case confer.String:
		return string(x), nil
	case confer.Datetime:
		return x.String(), nil
	case confer.Table:
		out, err := toml.Marshal(confer.Native(x))
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(out), "\n"), nil
	default:
		out, err := toml.Marshal(map[string]any{"v": confer.Native(v)})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(strings.TrimPrefix(string(out), "v = ")), nil
	}
}
