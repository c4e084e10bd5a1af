package cmd

import (
	"strings"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt...>",
	Short: "Ask a question and stream the answer",
	Long: `Start a new search session for the prompt and stream the answer as it is
written. Press Ctrl+C to stop generating.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(newClient(config.Get()), cmd.OutOrStdout(), cmd.ErrOrStderr(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.runner.Ask(cmd.Context(), strings.Join(args, " "))
		return err
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Show an existing session",
	Long: `Look up a session on the server and render it. When the server cannot be
reached the locally cached copy is shown instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(newClient(config.Get()), cmd.OutOrStdout(), cmd.ErrOrStderr(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.runner.Resume(cmd.Context(), args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(resumeCmd)
}
