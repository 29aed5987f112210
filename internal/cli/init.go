package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prlens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "prlens.toml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.Init(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}
