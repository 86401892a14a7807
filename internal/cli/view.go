package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/skein/internal/knot"
	"github.com/roach88/skein/internal/session"
	"github.com/roach88/skein/internal/skein"
)

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	Knot int64 // show this knot's child menu instead of the display path
}

// KnotRow is one knot as printed by view.
type KnotRow struct {
	ID           int64         `json:"id"`
	Command      string        `json:"command"`
	Label        string        `json:"label,omitempty"`
	Category     knot.Category `json:"category"`
	TreeCategory knot.Category `json:"tree_category"`
	Response     *string       `json:"response,omitempty"`
	Unblessed    *string       `json:"unblessed,omitempty"`
	Children     int           `json:"children"`
}

// ViewData is the derived state of a session.
type ViewData struct {
	Title       string            `json:"title,omitempty"`
	Seq         int64             `json:"seq"`
	Knots       int               `json:"knots"`
	DisplayPath []KnotRow         `json:"display_path"`
	Labels      []knot.LabelEntry `json:"labels"`
	Totals      skein.Totals      `json:"totals"`
	Violations  []string          `json:"violations,omitempty"`
}

// ChildrenData is the child menu of one knot.
type ChildrenData struct {
	Parent   int64         `json:"parent"`
	Children []skein.Child `json:"children"`
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the display path, labels, and totals",
		Long: `Restore the session from the batch log and print its derived state:
the display path from the root following each selection, colored by
tree category (error red, new yellow), the label index, and per-category
totals.

With --knot, print that knot's child menu instead.

Examples:
  skein view --db ./skein.db
  skein view --knot 3
  skein view --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Knot, "knot", 0, "show the child menu of this knot")

	return cmd
}

func runView(opts *ViewOptions, cmd *cobra.Command) error {
	if err := requireDatabase(opts.Database); err != nil {
		return err
	}
	st, s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)

	if cmd.Flags().Changed("knot") {
		if _, ok := s.Tree().Knot(opts.Knot); !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("knot %d not found", opts.Knot))
		}
		data := ChildrenData{Parent: opts.Knot, Children: s.Tree().Children(opts.Knot)}
		if opts.Format == "json" {
			return out.Success(data)
		}
		writeChildrenText(out.Writer, data)
		return nil
	}

	data := buildView(s)
	if opts.Format == "json" {
		return out.Success(data)
	}
	writeViewText(out.Writer, data)
	return nil
}

// buildView collects the derived state of s.
func buildView(s *session.Session) ViewData {
	tree := s.Tree()
	views := tree.Views()

	data := ViewData{
		Title:       s.Envelope().Title,
		Seq:         s.Seq(),
		Knots:       tree.Len(),
		DisplayPath: make([]KnotRow, 0, len(views.DisplayPath)),
		Labels:      views.Labels,
		Totals:      views.Totals,
	}

	for _, id := range views.DisplayPath {
		k, ok := tree.Knot(id)
		if !ok {
			continue
		}
		data.DisplayPath = append(data.DisplayPath, KnotRow{
			ID:           id,
			Command:      k.Command,
			Label:        k.Label,
			Category:     views.Self.Of(id),
			TreeCategory: views.Tree.Of(id),
			Response:     k.Response,
			Unblessed:    k.Unblessed,
			Children:     len(k.Children),
		})
	}
	for _, v := range views.Violations {
		data.Violations = append(data.Violations, v.Error())
	}
	return data
}

func writeViewText(w io.Writer, data ViewData) {
	if data.Title != "" {
		fmt.Fprintln(w, bold.Sprint(data.Title))
	}
	fmt.Fprintf(w, "%d knots, seq %d\n\n", data.Knots, data.Seq)

	if len(data.DisplayPath) == 0 {
		fmt.Fprintln(w, "Empty skein.")
	} else {
		rows := make([][]any, 0, len(data.DisplayPath))
		for _, r := range data.DisplayPath {
			rows = append(rows, []any{r.ID, paint(r.TreeCategory, string(r.TreeCategory)), commandText(r.ID, r.Command), r.Label})
		}
		printTable(w, []any{"ID", "TREE", "COMMAND", "LABEL"}, rows)
	}
	fmt.Fprintln(w)

	writeLabelsText(w, data.Labels)
	fmt.Fprintln(w)
	writeTotalsText(w, data.Totals)

	if len(data.Violations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, errorColor.Sprint("Violations:"))
		for _, v := range data.Violations {
			fmt.Fprintf(w, "  %s\n", v)
		}
	}
}

func writeChildrenText(w io.Writer, data ChildrenData) {
	if len(data.Children) == 0 {
		fmt.Fprintf(w, "Knot %d has no children.\n", data.Parent)
		return
	}
	rows := make([][]any, 0, len(data.Children))
	for _, c := range data.Children {
		mark := ""
		if c.Selected {
			mark = "*"
		}
		rows = append(rows, []any{mark, c.ID, paint(c.TreeCategory, string(c.TreeCategory)), c.Command, c.Label})
	}
	printTable(w, []any{"", "ID", "TREE", "COMMAND", "LABEL"}, rows)
}

func writeTotalsText(w io.Writer, t skein.Totals) {
	fmt.Fprintf(w, "Totals: %d ok, %s, %s",
		t.OK,
		paint(knot.CategoryNew, fmt.Sprintf("%d new", t.New)),
		paint(knot.CategoryError, fmt.Sprintf("%d error", t.Error)),
	)
	if t.Invalid > 0 {
		fmt.Fprintf(w, ", %d invalid", t.Invalid)
	}
	fmt.Fprintln(w)
}

// commandText renders the root's empty command as a placeholder.
func commandText(id int64, command string) string {
	if id == knot.RootID && command == "" {
		return "(start)"
	}
	return command
}
