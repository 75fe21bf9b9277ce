package cmd

import (
	"github.com/spf13/cobra"

	"github.com/josephlewis42/triton/core/history"
)

var historyNumbered bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the command history log.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		historyLog, err := cfg.OpenHistory()
		if err != nil {
			return err
		}
		defer historyLog.Close()

		builtinArgs := []string{"history"}
		if historyNumbered {
			builtinArgs = append(builtinArgs, "-n")
		}
		if code := history.Main(historyLog, builtinArgs, cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
			return exitStatus(code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVarP(&historyNumbered, "numbered", "n", false, "prefix each entry with its line number")
}
