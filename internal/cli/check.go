package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prlens/internal/changeset"
	"github.com/sprite-ai/prlens/internal/pipeline"
	"github.com/sprite-ai/prlens/internal/publish"
	"github.com/sprite-ai/prlens/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check [ref|range|-]",
	Short: "Analyze changes and print a report (non-interactive)",
	Long: `Run the analysis pipeline over a change set and print the report.
Useful for CI, pre-commit hooks, and piping into other tools.

Examples:
  prlens check                          # working tree vs HEAD
  prlens check main...HEAD -f markdown  # branch vs main
  git diff | prlens check -             # any diff on stdin
  prlens check --context pr.json        # a prepared change-set document

Exit codes:
  0  report produced
  1  the run failed
  2  risk score above --fail-above`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	addInputFlags(checkCmd)
	checkCmd.Flags().StringP("format", "f", "text", "output format: text, markdown, html, json, yaml")
	checkCmd.Flags().Bool("publish", false, "publish the markdown report to the report directory")
	checkCmd.Flags().Int("fail-above", -1, "exit with code 2 when the risk score exceeds this value")
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	b, err := builder(cmd, args)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if pub, _ := cmd.Flags().GetBool("publish"); pub {
		store := publish.NewDir(cfg.Publish.Dir)
		opts = append(opts, pipeline.WithPublisher(publish.New(store, logger)))
	}

	rep, runErr := pipeline.New(cfg, logger, opts...).Run(cmd.Context(), b)
	if errors.Is(runErr, changeset.ErrEmpty) {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes to check.")
		return nil
	}
	if rep == nil {
		return runErr
	}

	if err := report.Render(cmd.OutOrStdout(), format, rep, cfg.Pipeline.Marker); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	failAbove, _ := cmd.Flags().GetInt("fail-above")
	if failAbove >= 0 && rep.RiskScore > failAbove {
		return &ExitError{Code: 2, Msg: fmt.Sprintf("risk score %d exceeds %d", rep.RiskScore, failAbove)}
	}
	return nil
}
