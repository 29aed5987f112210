package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prlens/internal/changeset"
	"github.com/sprite-ai/prlens/internal/pipeline"
	"github.com/sprite-ai/prlens/internal/report"
	"github.com/sprite-ai/prlens/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review [ref|range|-]",
	Short: "Analyze changes and browse the report interactively",
	Long: `Run the analysis pipeline and open the report in a terminal viewer.
By default, reviews uncommitted changes against HEAD.

Examples:
  prlens review                     # working tree vs HEAD
  prlens review HEAD~1..HEAD        # last commit
  prlens review main...HEAD         # branch vs main
  git diff | prlens review -        # pipe any diff`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	addInputFlags(reviewCmd)
	reviewCmd.Flags().Bool("stat", false, "print the report header and exit (non-interactive)")
}

func runReview(cmd *cobra.Command, args []string) error {
	b, err := builder(cmd, args)
	if err != nil {
		return err
	}

	rep, err := pipeline.New(cfg, logger).Run(cmd.Context(), b)
	if errors.Is(err, changeset.ErrEmpty) {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes to review.")
		return nil
	}
	if err != nil {
		return err
	}

	if stat, _ := cmd.Flags().GetBool("stat"); stat {
		fmt.Fprintln(cmd.OutOrStdout(), report.Header(rep))
		return nil
	}
	return tui.Run(rep)
}
