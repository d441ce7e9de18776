package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath is a CUE config file; flags below override its values.
	ConfigPath string
	Backend    string
	Path       string
	Owner      string
	Subject    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the notevault CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notevault",
		Short: "notevault - sealed session notes over a key-value ledger",
		Long: `Manage sealed therapy session notes stored on a single-key remote store.

Every mutation is applied optimistically, confirmed by the store and then
reconciled with a full reload. Records move pending -> analyzed -> archived.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "CUE config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "remote store backend (sqlite|badger|memory)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "database file or directory")
	cmd.PersistentFlags().StringVar(&opts.Owner, "owner", "", "session owner address")
	cmd.PersistentFlags().StringVar(&opts.Subject, "subject", "", "session subject address")

	// Add subcommands
	cmd.AddCommand(NewProbeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewReindexCommand(opts))

	return cmd
}

// Execute runs the root command with args and returns the process exit
// code. SIGINT and SIGTERM cancel the command context.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra itself.
		fmt.Fprintln(stderr, "Error:", err)
		return ExitCommandError
	}
	if exitErr.Code == ExitCommandError {
		fmt.Fprintln(stderr, "Error:", exitErr.Error())
	}
	return exitErr.Code
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
