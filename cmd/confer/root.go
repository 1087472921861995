package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dshills/confer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options holds the global flags shared by every subcommand.
type options struct {
	file     string
	format   string
	logLevel string
	logger   zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "confer",
		Short: "Inspect and edit sectioned TOML configuration files",
		Long: `confer reads and writes sectioned configuration documents.

Documents are TOML by default; files ending in .yaml or .yml are read and
written as YAML. Every write replaces the file atomically.

Examples:
  confer sections
  confer get App port
  confer set App port 8080
  confer set App tags "['a', 'b']"
  confer rm App legacy
  confer convert app.toml app.yaml
  confer serve --addr :8080 --watch`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
			}
			opts.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).
				With().
				Timestamp().
				Logger()
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "confer.toml", "document file path")
	root.PersistentFlags().StringVar(&opts.format, "format", "", "document format when the extension is not recognized (toml, yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newGetCmd(opts),
		newSetCmd(opts),
		newRmCmd(opts),
		newSectionsCmd(opts),
		newKeysCmd(opts),
		newFmtCmd(opts),
		newConvertCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// storeOptions builds the store options implied by the global flags.
func (o *options) storeOptions(extra ...confer.Option) ([]confer.Option, error) {
	storeOpts := []confer.Option{confer.WithLogger(o.logger)}
	if o.format != "" {
		format, err := confer.ParseFormat(o.format)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, confer.WithFormat(format))
	}
	return append(storeOpts, extra...), nil
}

// open loads the document file. A missing file yields an empty store when
// allowMissing is set.
func (o *options) open(allowMissing bool, extra ...confer.Option) (*confer.Store, error) {
	storeOpts, err := o.storeOptions(extra...)
	if err != nil {
		return nil, err
	}
	store, err := confer.FromFile(o.file, storeOpts...)
	if err != nil && allowMissing && errors.Is(err, fs.ErrNotExist) {
		o.logger.Debug().Str("path", o.file).Msg("document does not exist, starting empty")
		return confer.New(storeOpts...), nil
	}
	return store, err
}
