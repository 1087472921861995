package main

import (
	"fmt"

	"github.com/dshills/confer"
	"github.com/spf13/cobra"
)

func newFmtCmd(opts *options) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt",
		Short: "Rewrite the document in canonical form",
		Long: `Parse the document and print it back with sorted keys.

With --write the file is replaced instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}
			if write {
				return store.SaveFile(opts.file)
			}
			text, err := store.SaveString()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return cmd
}

func newConvertCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Convert a document between TOML and YAML",
		Long: `Read src and write dst. Formats are chosen from the file extensions.

Example:
  confer convert app.toml app.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeOpts, err := opts.storeOptions()
			if err != nil {
				return err
			}
			store, err := confer.FromFile(args[0], storeOpts...)
			if err != nil {
				return err
			}
			if err := store.SaveFile(args[1]); err != nil {
				return err
			}
			opts.logger.Info().Str("src", args[0]).Str("dst", args[1]).Msg("document converted")
			return nil
		},
	}
}
