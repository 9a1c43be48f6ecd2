// Package cli implements the docpager command line: cursor inspection and
// paging through a bolt-backed document file.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/docpager"
)

// RootOptions holds global flags and the state derived from them.
type RootOptions struct {
	LogLevel  string
	LogFormat string // "text" | "json"

	// Config is loaded from DOCPAGER_* variables before any command runs.
	Config docpager.Config
}

// ValidLogFormats defines the allowed log formats.
var ValidLogFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the docpager CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "docpager",
		Short:         "Keyset pagination over document stores",
		Long:          "Inspect pagination cursors and page through documents stored in a bolt file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidLogFormats, opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats)
			}

			var level slog.Level
			if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
			}

			cfg, err := docpager.LoadConfig()
			if err != nil {
				return err
			}

			handlerOpts := &slog.HandlerOptions{Level: level}
			if opts.LogFormat == "json" {
				cfg.Logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts))
			} else {
				cfg.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts))
			}

			opts.Config = cfg

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")

	cmd.AddCommand(NewCursorCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewPageCommand(opts))

	return cmd
}
