package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// List selection. Flags override the values read from Config.
	Config   string
	Database string
	Table    string
	Codec    string
	Key      string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlist CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlist",
		Short: "sqlist - a list that lives in SQLite",
		Long: `Inspect and edit persistent lists stored in SQLite tables.

Values are read and printed as JSON. The list is selected by --db and
--table, or by a YAML or CUE file given with --config. The ordering key is
not stored in the database: pass --key (or set key in the config file) on
every command that inserts values into a keyed list.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "list configuration file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Table, "table", "", "table holding the list (default \"data\")")
	cmd.PersistentFlags().StringVar(&opts.Codec, "codec", "", "value codec (cbor|json, optionally +zstd or +lz4)")
	cmd.PersistentFlags().StringVar(&opts.Key, "key", "", "ordering key (identity|len|fold|nfc|collate:<tag>|field:<name>)")

	// Add subcommands
	cmd.AddCommand(NewLenCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewDelCommand(opts))
	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewExtendCommand(opts))
	cmd.AddCommand(NewPopCommand(opts))
	cmd.AddCommand(NewSortCommand(opts))
	cmd.AddCommand(NewRekeyCommand(opts))
	cmd.AddCommand(NewContainsCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
