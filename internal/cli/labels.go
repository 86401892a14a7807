package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/skein/internal/knot"
)

// LabelsData is the label index of a session.
type LabelsData struct {
	Labels []knot.LabelEntry `json:"labels"`
}

// NewLabelsCommand creates the labels command.
func NewLabelsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Show the label index",
		Long: `Print every labeled knot, "START" (the root) first, then by label.

Examples:
  skein labels --db ./skein.db
  skein labels --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabels(rootOpts, cmd)
		},
	}
	return cmd
}

func runLabels(opts *RootOptions, cmd *cobra.Command) error {
	if err := requireDatabase(opts.Database); err != nil {
		return err
	}
	st, s, err := openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer st.Close()

	labels := s.Tree().Views().Labels

	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(LabelsData{Labels: labels})
	}
	writeLabelsText(out.Writer, labels)
	return nil
}

func writeLabelsText(w io.Writer, labels []knot.LabelEntry) {
	if len(labels) == 0 {
		fmt.Fprintln(w, "No labels.")
		return
	}
	rows := make([][]any, 0, len(labels))
	for _, e := range labels {
		rows = append(rows, []any{e.Label, e.ID})
	}
	printTable(w, []any{"LABEL", "ID"}, rows)
}
