package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/triton/core"
)

// builtinsCmd lists the commands the shell serves itself
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		var builtins []string
		for name := range core.AllBuiltins {
			builtins = append(builtins, name)
		}

		sort.Strings(builtins)

		for _, v := range builtins {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
