package cmd

import (
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/triton/core/config"
)

// initCmd writes the default configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the config path.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		return config.Initialize(afero.NewOsFs(), cfgPath, logger)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
