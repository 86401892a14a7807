package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/skein/internal/feed"
	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/skein"
)

// BatchSummary describes one applied batch.
type BatchSummary struct {
	Source   string   `json:"source,omitempty"`
	Seq      int64    `json:"seq"`
	Inserted []int64  `json:"inserted"`
	Replaced []int64  `json:"replaced"`
	Removed  []int64  `json:"removed"`
	Issues   []string `json:"issues,omitempty"`
}

// ApplyData is the result of the apply and select commands.
type ApplyData struct {
	Batches []BatchSummary `json:"batches"`
	View    ViewData       `json:"view"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <batch-file>...",
		Short: "Apply batch files to the skein",
		Long: `Restore the session from the batch log, apply each batch file in
argument order, persist the batches and a snapshot, and print the result.

Batch files may be JSON, YAML, or CUE. Each is validated against the
batch schema before anything is applied; a file that fails validation
stops the command before any batch is logged.

Records that break a tree invariant are skipped or repaired and reported,
never fatal.

Examples:
  skein apply initial.json
  skein apply --db ./cloak.db 001-load.yaml 002-bless.yaml
  skein apply update.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runApply(opts *RootOptions, files []string, cmd *cobra.Command) error {
	ctx := cmd.Context()

	type loaded struct {
		path  string
		batch knot.Batch
	}
	batches := make([]loaded, 0, len(files))
	for _, path := range files {
		b, err := feed.LoadBatch(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}
		batches = append(batches, loaded{path: path, batch: b})
	}

	st, s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	data := ApplyData{Batches: make([]BatchSummary, 0, len(batches))}
	for _, l := range batches {
		res, err := s.Apply(ctx, l.batch)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to apply %s", l.path), err)
		}
		data.Batches = append(data.Batches, summarize(l.path, res))
		out.VerboseLog("applied %s as seq %d", l.path, res.Seq)
	}

	if err := checkpoint(ctx, s); err != nil {
		return err
	}

	data.View = buildView(s)
	if opts.Format == "json" {
		return out.Success(data)
	}
	writeApplyText(out.Writer, data)
	return nil
}

func checkpoint(ctx context.Context, s *session.Session) error {
	if err := s.Checkpoint(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}
	slog.Debug("snapshot saved", "seq", s.Seq(), "knots", s.Tree().Len())
	return nil
}

// summarize converts an apply result for output.
func summarize(source string, res session.Result) BatchSummary {
	sum := BatchSummary{
		Source:   source,
		Seq:      res.Seq,
		Inserted: nonNil(res.Report.Inserted),
		Replaced: nonNil(res.Report.Replaced),
		Removed:  nonNil(res.Report.Removed),
	}
	for _, issue := range res.Report.Issues {
		sum.Issues = append(sum.Issues, issue.Error())
	}
	return sum
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func writeBatchText(w io.Writer, b BatchSummary) {
	mark := checkMark
	if len(b.Issues) > 0 {
		mark = newColor.Sprint("!")
	}
	name := b.Source
	if name == "" {
		name = "batch"
	}
	fmt.Fprintf(w, "%s %s (seq %d): %d inserted, %d replaced, %d removed\n",
		mark, name, b.Seq, len(b.Inserted), len(b.Replaced), len(b.Removed))
	for _, issue := range b.Issues {
		fmt.Fprintf(w, "  %s\n", issue)
	}
}

func writeApplyText(w io.Writer, data ApplyData) {
	for _, b := range data.Batches {
		writeBatchText(w, b)
	}
	fmt.Fprintln(w)
	writeViewText(w, data.View)
}

// issueCodes lists the codes of a report's issues, for logging.
func issueCodes(report skein.ApplyReport) []string {
	codes := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		codes = append(codes, string(issue.Code))
	}
	return codes
}
