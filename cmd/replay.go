package cmd

import (
	"github.com/dailydev/searchstream/pkg/transport"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.sse>",
	Short: "Replay a captured event stream without contacting the server",
	Long: `Render a recorded text/event-stream capture exactly as a live search would.
Useful for debugging rendering and stream handling offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		save, _ := cmd.Flags().GetBool("save")

		a, err := newApp(transport.FileTransport{Path: args[0]}, cmd.OutOrStdout(), cmd.ErrOrStderr(), save)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.runner.Ask(cmd.Context(), prompt)
		return err
	},
}

func init() {
	replayCmd.Flags().StringP("prompt", "p", "replay", "prompt attributed to the replayed session")
	replayCmd.Flags().Bool("save", false, "store the replayed session in the local history")
	rootCmd.AddCommand(replayCmd)
}
