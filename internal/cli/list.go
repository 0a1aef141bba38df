package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlist"
	"github.com/roach88/sqlist/internal/config"
	"github.com/roach88/sqlist/internal/store"
	"github.com/roach88/sqlist/keys"
)

// session is an open list together with the configuration it was opened
// with and the command's output.
type session struct {
	list *sqlist.List[any]
	file config.File
	out  *OutputFormatter
	log  *slog.Logger
}

// listFunc runs one command against an open list.
type listFunc func(ctx context.Context, s *session, args []string) error

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) logger(out *OutputFormatter) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out.GetErrWriter(), &slog.HandlerOptions{Level: level}))
}

// listFile merges the configuration file with the global flags. The CLI
// always works on persisted tables, so KeepExisting is forced on and an
// in-memory path is rejected.
func (o *RootOptions) listFile() (config.File, error) {
	f, err := config.Load(o.Config)
	if err != nil {
		return config.File{}, err
	}
	if o.Database != "" {
		f.Path = o.Database
	}
	if o.Table != "" {
		f.Table = o.Table
	}
	if o.Codec != "" {
		f.Codec = o.Codec
	}
	if o.Key != "" {
		f.Key = o.Key
	}
	f.KeepExisting = true
	f.AutoRemove = false
	return f, nil
}

// listCommand completes cmd so that it opens the selected list, runs fn and
// closes the list again.
func listCommand(opts *RootOptions, cmd *cobra.Command, fn listFunc) *cobra.Command {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		out := opts.formatter(cmd)
		logger := opts.logger(out)

		f, err := opts.listFile()
		if err != nil {
			return out.Fail(ErrCodeConfig, err)
		}
		if f.Path == store.MemoryPath {
			_ = out.Error(ErrCodeNoDB, "no database: use --db or set path in --config", nil)
			return NewExitError(ExitCommandError, "no database given")
		}
		cfg, err := f.ListConfig()
		if err != nil {
			return out.Fail(ErrCodeConfig, err)
		}
		cfg.Logger = logger

		ctx := cmd.Context()
		logger.Debug("opening list", "path", f.Path, "table", f.Table, "codec", f.Codec)
		l, err := sqlist.Open(ctx, cfg)
		if err != nil {
			_ = out.Error(ErrCodeOpen, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open list", err)
		}
		defer func() {
			if closeErr := l.Close(); closeErr != nil {
				logger.Error("error closing list", "error", closeErr)
			}
		}()

		return fn(ctx, &session{list: l, file: f, out: out, log: logger}, args)
	}
	return cmd
}

// parseValue decodes a command-line argument as a JSON value.
func parseValue(arg string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON value %q: %w", arg, err)
	}
	return v, nil
}

func parseValues(args []string) ([]any, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		v, err := parseValue(arg)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return i, nil
}

// sizeResult is the JSON payload of a mutation.
type sizeResult struct {
	Len     int `json:"len"`
	Removed int `json:"removed,omitempty"`
}

func (s *session) done(ctx context.Context, removed int) error {
	n, err := s.list.Len(ctx)
	if err != nil {
		return s.out.Fail(ErrCodeGeneric, err)
	}
	return s.out.Done(sizeResult{Len: n, Removed: removed})
}

// NewLenCommand creates the len command.
func NewLenCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "len",
		Short: "Print the number of values",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, s *session, _ []string) error {
		n, err := s.list.Len(ctx)
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.out.Value(n)
	})
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "get <index|range>",
		Short: "Print the value at an index or the values in a range",
		Long: `Print the value at an index or the values in a range.

Negative indexes count from the end. A range is start:stop with either
bound optional and is clamped to the list. Put negative indexes after --
so they are not read as flags.

Examples:
  sqlist get 0 --db words.db
  sqlist get --db words.db -- -1
  sqlist get 2:5 --db words.db`,
		Args: cobra.ExactArgs(1),
	}, func(ctx context.Context, s *session, args []string) error {
		sel, err := sqlist.ParseSelector(args[0])
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		if sel.IsRange {
			values, err := s.list.Slice(ctx, sel.Range)
			if err != nil {
				return s.out.Fail(ErrCodeGeneric, err)
			}
			return s.out.Value(values)
		}
		v, err := s.list.Get(ctx, sel.Index)
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.out.Value(v)
	})
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "set <index> <json>",
		Short: "Replace the value at an index",
		Args:  cobra.ExactArgs(2),
	}, func(ctx context.Context, s *session, args []string) error {
		i, err := parseIndex(args[0])
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		v, err := parseValue(args[1])
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		if err := s.list.Set(ctx, i, v); err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.done(ctx, 0)
	})
}

// NewDelCommand creates the del command.
func NewDelCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "del <index|range>",
		Short: "Delete the value at an index or the values in a range",
		Args:  cobra.ExactArgs(1),
	}, func(ctx context.Context, s *session, args []string) error {
		sel, err := sqlist.ParseSelector(args[0])
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		removed := 1
		if sel.IsRange {
			removed, err = s.list.DeleteRange(ctx, sel.Range)
		} else {
			err = s.list.Delete(ctx, sel.Index)
		}
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.done(ctx, removed)
	})
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "append <json>...",
		Short: "Append values one at a time",
		Long: `Append values one at a time.

Each value is its own transaction: if a later value fails, the earlier
ones stay. Use extend to add a batch atomically.`,
		Args: cobra.MinimumNArgs(1),
	}, func(ctx context.Context, s *session, args []string) error {
		values, err := parseValues(args)
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		for _, v := range values {
			if err := s.list.Append(ctx, v); err != nil {
				return s.out.Fail(ErrCodeGeneric, err)
			}
		}
		return s.done(ctx, 0)
	})
}

// NewExtendCommand creates the extend command.
func NewExtendCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "extend <json>...",
		Short: "Append a batch of values in one transaction",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, s *session, args []string) error {
		values, err := parseValues(args)
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		if err := s.list.Extend(ctx, values...); err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.done(ctx, 0)
	})
}

// NewPopCommand creates the pop command.
func NewPopCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "pop [index]",
		Short: "Remove and print the value at an index (default -1)",
		Args:  cobra.MaximumNArgs(1),
	}, func(ctx context.Context, s *session, args []string) error {
		i := -1
		if len(args) == 1 {
			var err error
			if i, err = parseIndex(args[0]); err != nil {
				return s.out.Fail(ErrCodeValue, err)
			}
		}
		v, err := s.list.Pop(ctx, i)
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.out.Value(v)
	})
}

// SortOptions holds flags for the sort command.
type SortOptions struct {
	*RootOptions
	Reverse bool
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SortOptions{RootOptions: rootOpts}

	cmd := listCommand(rootOpts, &cobra.Command{
		Use:   "sort",
		Short: "Sort the list in place",
		Long: `Sort the list in place, stably.

The global --key selects the sort key; without one the values themselves
are compared. The sorted order is stored as natural order, so later
appends go to the end.

Examples:
  sqlist sort --db words.db
  sqlist sort --db words.db --key len --reverse`,
		Args: cobra.NoArgs,
	}, func(ctx context.Context, s *session, _ []string) error {
		key, err := keys.Named(s.file.Key)
		if err != nil {
			return s.out.Fail(ErrCodeConfig, err)
		}
		if err := s.list.Sort(ctx, sqlist.SortOptions[any]{Key: key, Reverse: opts.Reverse}); err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		s.log.Debug("list sorted", "key", s.file.Key, "reverse", opts.Reverse, "strategy", s.file.Strategy)
		return s.done(ctx, 0)
	})

	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "sort descending")

	return cmd
}

// NewRekeyCommand creates the rekey command.
func NewRekeyCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "rekey",
		Short: "Recompute every stored key with --key",
		Long: `Recompute every stored key with the global --key.

Without --key the stored keys are cleared and the list falls back to
natural order.`,
		Args: cobra.NoArgs,
	}, func(ctx context.Context, s *session, _ []string) error {
		key, err := keys.Named(s.file.Key)
		if err != nil {
			return s.out.Fail(ErrCodeConfig, err)
		}
		if err := s.list.Rekey(ctx, key); err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.done(ctx, 0)
	})
}

// NewContainsCommand creates the contains command.
func NewContainsCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "contains <json>",
		Short: "Report whether a value is in the list",
		Args:  cobra.ExactArgs(1),
	}, func(ctx context.Context, s *session, args []string) error {
		v, err := parseValue(args[0])
		if err != nil {
			return s.out.Fail(ErrCodeValue, err)
		}
		ok, err := s.list.Contains(ctx, v)
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		return s.out.Value(ok)
	})
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "dump",
		Short: "Print every value in order, one JSON value per line",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, s *session, _ []string) error {
		if s.out.Format == "json" {
			values, err := s.list.ToSlice(ctx)
			if err != nil {
				return s.out.Fail(ErrCodeGeneric, err)
			}
			return s.out.Success(values)
		}
		for v, err := range s.list.Values(ctx) {
			if err != nil {
				return s.out.Fail(ErrCodeGeneric, err)
			}
			if err := s.out.Value(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListInfo describes an open list.
type ListInfo struct {
	Path     string `json:"path"`
	Table    string `json:"table"`
	Codec    string `json:"codec"`
	Key      string `json:"key,omitempty"`
	Strategy string `json:"strategy"`
	Len      int    `json:"len"`
	Preview  string `json:"preview"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, &cobra.Command{
		Use:   "info",
		Short: "Describe the list",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, s *session, _ []string) error {
		n, err := s.list.Len(ctx)
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		preview, err := s.list.Format(ctx)
		if err != nil {
			return s.out.Fail(ErrCodeGeneric, err)
		}
		info := ListInfo{
			Path:     s.list.Path(),
			Table:    s.file.Table,
			Codec:    s.list.Codec().Name(),
			Strategy: s.file.Strategy,
			Len:      n,
			Preview:  preview,
		}
		if s.list.HasKey() {
			info.Key = s.file.Key
		}
		if s.out.Format == "json" {
			return s.out.Success(info)
		}

		w := s.out.Writer
		fmt.Fprintf(w, "Path:     %s\n", info.Path)
		fmt.Fprintf(w, "Table:    %s\n", info.Table)
		fmt.Fprintf(w, "Codec:    %s\n", info.Codec)
		if info.Key != "" {
			fmt.Fprintf(w, "Key:      %s\n", info.Key)
		}
		fmt.Fprintf(w, "Strategy: %s\n", info.Strategy)
		fmt.Fprintf(w, "Len:      %d\n", info.Len)
		fmt.Fprintf(w, "Values:   %s\n", info.Preview)
		return nil
	})
}
