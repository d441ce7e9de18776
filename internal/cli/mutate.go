package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/notevault/internal/engine"
	"github.com/roach88/notevault/internal/record"
	"github.com/roach88/notevault/internal/repository"
)

// MutationResult is the JSON payload of a mutation command.
type MutationResult struct {
	Record      *RecordView      `json:"record,omitempty"`
	Transitions []TransitionView `json:"transitions"`
}

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Content string
	Emotion string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Seal and submit a new note",
		Long: `Seal a new session note and submit it.

The note is written as its own record and then appended to the key index.
If the index append fails the record is stored but not listed; the error
names its id so that 'notevault reindex <id>' can repair it.

Example:
  notevault create --owner 0xTherapist --content "Slept badly" --emotion Anxious`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := record.Draft{Content: opts.Content, Emotion: opts.Emotion}
			return runMutation(opts.RootOptions, cmd, "create failed", func(ctx context.Context, e *engine.Engine) (record.Record, error) {
				return e.Create(ctx, draft)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Content, "content", "", "note text (required)")
	cmd.Flags().StringVar(&opts.Emotion, "emotion", "Calm", "how the session felt")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Analyze a pending note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, "analyze failed", func(ctx context.Context, e *engine.Engine) (record.Record, error) {
				return e.Analyze(ctx, args[0])
			})
		},
	}
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, "archive failed", func(ctx context.Context, e *engine.Engine) (record.Record, error) {
				return e.Archive(ctx, args[0])
			})
		},
	}
}

// NewReindexCommand creates the reindex command.
func NewReindexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <id>",
		Short: "Append a stored but unlisted note to the key index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(rootOpts, cmd, "reindex failed", func(ctx context.Context, e *engine.Engine) (record.Record, error) {
				return e.RetryIndex(ctx, args[0])
			})
		},
	}
}

// runMutation opens a session, runs op on its engine and reports the
// record together with every transition the engine published.
func runMutation(opts *RootOptions, cmd *cobra.Command, failMessage string, op func(context.Context, *engine.Engine) (record.Record, error)) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}

	sub, err := a.engine.Subscribe()
	if err != nil {
		return WrapExitError(ExitFailure, "subscribe", err)
	}
	defer sub.Close()

	rec, opErr := op(cmd.Context(), a.engine)

	result := MutationResult{Transitions: []TransitionView{}}
	var lines []string
	for sub.Pending() > 0 {
		t, ok, err := sub.Next(context.WithoutCancel(cmd.Context()))
		if err != nil || !ok {
			break
		}
		result.Transitions = append(result.Transitions, TransitionView{
			Seq:     t.Seq,
			State:   t.State.String(),
			Message: t.Message,
		})
		if t.Message != "" && t.State != engine.StateFailed {
			lines = append(lines, t.Message)
		}
	}

	if opErr != nil {
		for _, line := range lines {
			a.formatter.VerboseLog("%s", line)
		}
		var details any
		if id, ok := repository.OrphanedID(opErr); ok {
			details = map[string]string{
				"id":   id,
				"hint": "notevault reindex " + id,
			}
		}
		return a.formatter.Fail(failMessage, opErr, details)
	}

	view := newRecordView(rec, a.engine.Session())
	result.Record = &view
	lines = append(lines, "", renderRecord(view))
	return a.formatter.Result(strings.Join(lines, "\n"), result)
}
