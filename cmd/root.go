package cmd

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/triton/core"
	"github.com/josephlewis42/triton/core/config"
)

var (
	cfgPath     string
	commandLine string
)

// exitStatus carries a non-zero shell status out of a command.
type exitStatus int

func (e exitStatus) Error() string {
	return "exit status"
}

func loadConfig() (*config.Configuration, error) {
	return config.Load(afero.NewOsFs(), cfgPath)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "triton",
	Short: "A small pipeline executing shell",
	Long: `triton reads command lines, runs each pipeline stage as its own process
connected by pipes, and reports how every process exited.

Supported syntax: cmd args... [> file] [2> file] [| cmd ...]`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "triton: ", 0)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := core.NewShell(cfg, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		if cmd.Flags().Changed("command") {
			stop := s.Jobs.Notify()
			defer stop()

			if err := s.RunCommand(commandLine); err != nil {
				return err
			}
			if code := s.LastStatus(); code != 0 {
				return exitStatus(code)
			}
			return nil
		}

		terminal, err := core.NewTerminal(cfg)
		if err != nil {
			return err
		}
		s.Readline = terminal

		return s.RunInteractive()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	var status exitStatus
	if errors.As(err, &status) {
		os.Exit(int(status))
	}
	cobra.CheckErr(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single command line and exit")
}
