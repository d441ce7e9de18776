package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/transform"
)

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the remote store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.store.Probe(cmd.Context())
			if err == nil && !ok {
				err = remote.ErrUnavailable
			}
			if err != nil {
				return a.formatter.Fail("probe failed", fmt.Errorf("probe: %w", err), nil)
			}
			return a.formatter.Result(
				fmt.Sprintf("Remote store available (%s).", a.cfg.Backend),
				map[string]any{"available": true, "backend": a.cfg.Backend},
			)
		},
	}
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Records []RecordView  `json:"records"`
	Skipped []SkippedView `json:"skipped,omitempty"`
}

// SkippedView is one indexed id that could not be loaded.
type SkippedView struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every indexed note, newest first",
		Long: `List every note in the key index, newest first.

Notes whose blob is missing or malformed are skipped; use --verbose to see
which ids were skipped and why.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.repo.LoadAllWithReport(cmd.Context())
			if err != nil {
				return a.formatter.Fail("list failed", err, nil)
			}

			result := ListResult{Records: make([]RecordView, 0, len(report.Records))}
			for _, r := range report.Records {
				result.Records = append(result.Records, newRecordView(r, a.engine.Session()))
			}
			for _, s := range report.Skipped {
				result.Skipped = append(result.Skipped, SkippedView{ID: s.ID, Error: s.Err.Error()})
				a.formatter.VerboseLog("skipped %s: %v", s.ID, s.Err)
			}

			return a.formatter.Result(renderTable(result.Records), result)
		},
	}
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Open bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one note, indexed or not",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.repo.Get(cmd.Context(), args[0])
			if err != nil {
				return a.formatter.Fail("show failed", err, map[string]string{"id": args[0]})
			}
			view := newRecordView(rec, a.engine.Session())

			if !opts.Open {
				return a.formatter.Result(renderRecord(view), view)
			}

			draft, err := transform.Envelope{}.Open(rec.Content)
			if err != nil {
				return a.formatter.Fail("cannot open sealed content", err, map[string]string{"id": args[0]})
			}
			text := renderRecord(view) + fmt.Sprintf("\nPlaintext:   %s\nFelt:        %s", draft.Content, draft.Emotion)
			return a.formatter.Result(text, map[string]any{"record": view, "plaintext": draft})
		},
	}

	cmd.Flags().BoolVar(&opts.Open, "open", false, "unseal the content envelope")

	return cmd
}

// StatsResult is the JSON payload of the stats command.
type StatsResult struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Analyzed int `json:"analyzed"`
	Archived int `json:"archived"`
	Mine     int `json:"mine"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count notes by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.engine.Reload(cmd.Context()); err != nil {
				return a.formatter.Fail("stats failed", err, nil)
			}
			s := a.engine.Stats()
			result := StatsResult{
				Total:    s.Total,
				Pending:  s.Pending,
				Analyzed: s.Analyzed,
				Archived: s.Archived,
				Mine:     s.Owned,
			}

			text := fmt.Sprintf("Total: %d\nPending: %d\nAnalyzed: %d\nArchived: %d",
				result.Total, result.Pending, result.Analyzed, result.Archived)
			if a.cfg.Owner != "" {
				text += fmt.Sprintf("\nMine: %d", result.Mine)
			}
			return a.formatter.Result(text, result)
		},
	}
}

// WriteView is the JSON shape of one ledger journal row.
type WriteView struct {
	Seq       int64  `json:"seq"`
	WrittenAt string `json:"written_at"`
	Value     string `json:"value"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show every confirmed write of a note (sqlite backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.ledger == nil {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("history needs the sqlite backend, have %s", a.cfg.Backend))
			}

			writes, err := a.ledger.History(cmd.Context(), remote.RecordKey(args[0]))
			if err != nil {
				return a.formatter.Fail("history failed", err, map[string]string{"id": args[0]})
			}

			views := make([]WriteView, 0, len(writes))
			lines := make([]string, 0, len(writes))
			for _, w := range writes {
				v := WriteView{Seq: w.Seq, WrittenAt: w.WrittenAt.Format("2006-01-02T15:04:05.000Z07:00"), Value: string(w.Value)}
				views = append(views, v)
				lines = append(lines, fmt.Sprintf("#%d %s %s", v.Seq, v.WrittenAt, v.Value))
			}
			text := strings.Join(lines, "\n")
			if len(lines) == 0 {
				text = "No writes recorded."
			}
			return a.formatter.Result(text, views)
		},
	}
}
