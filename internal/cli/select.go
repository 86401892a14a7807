package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/skein/internal/skein"
)

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <parent-id> <child-id>",
		Short: "Change which child the display path follows",
		Long: `Make child-id the selected child of parent-id. The change is logged as
an ordinary batch, so it survives replay.

Exit codes:
  0 - Selection applied
  2 - Command error (unknown knot, child-id is not a child of parent-id)

Examples:
  skein select 0 4
  skein select 3 7 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runSelect(opts *RootOptions, args []string, cmd *cobra.Command) error {
	parent, err := parseKnotID(args[0])
	if err != nil {
		return err
	}
	child, err := parseKnotID(args[1])
	if err != nil {
		return err
	}

	if err := requireDatabase(opts.Database); err != nil {
		return err
	}
	ctx := cmd.Context()
	st, s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := s.Select(ctx, parent, child)
	if err != nil {
		if skein.HasCode(err, skein.ErrCodeInvalidSelection) {
			return WrapExitError(ExitCommandError, "invalid selection", err)
		}
		return WrapExitError(ExitCommandError, "failed to select", err)
	}
	if err := checkpoint(ctx, s); err != nil {
		return err
	}

	data := ApplyData{
		Batches: []BatchSummary{summarize("", res)},
		View:    buildView(s),
	}
	out := opts.formatter(cmd)
	if opts.Format == "json" {
		return out.Success(data)
	}
	writeApplyText(out.Writer, data)
	return nil
}

func parseKnotID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid knot id %q", s))
	}
	return id, nil
}
