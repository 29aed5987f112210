// Package cli implements the prlens command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sprite-ai/prlens/internal/config"
	"github.com/sprite-ai/prlens/internal/logging"
)

// Loaded by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "prlens",
	Short: "Risk and quality reports for pull requests",
	Long: `prlens analyzes a change set (a unified diff plus pull request metadata)
and reports a summary, a changelog, detected secrets, dependency changes,
a bounded risk score, test suggestions and a review checklist.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ./prlens.toml or ~/.prlens.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(checkCmd, reviewCmd, serveCmd, initCmd, versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		c.Log.Level = level
	}
	l, err := logging.Setup(c.Log)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	var ee *ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ee):
		return ee.Code
	default:
		return 1
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}
