package cmd

import (
	"errors"
	"fmt"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/dailydev/searchstream/pkg/history"
	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/session"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <session-id> <up|down|none>",
	Short: "Rate the answer of a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := session.ParseFeedback(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		cfg := config.Get()
		client := newClient(cfg)
		key := session.Key{UserID: cfg.User.ID, SessionID: args[0]}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		// The chunk id comes from the cache when possible
		var snap *session.Session
		if store != nil {
			snap, err = store.Load(ctx, key)
			if err != nil && !errors.Is(err, history.ErrNotFound) {
				return err
			}
		}
		if snap == nil {
			if snap, err = client.Lookup(ctx, key.SessionID); err != nil {
				return err
			}
		}

		chunk := snap.Current()
		if chunk == nil {
			return fmt.Errorf("session %s has no answer to rate", key.SessionID)
		}

		if err := client.Feedback(ctx, chunk.ID, value); err != nil {
			return err
		}

		if store != nil {
			if err := store.SetFeedback(ctx, key, chunk.ID, value); err != nil && !errors.Is(err, history.ErrNotFound) {
				logger.Warn("failed to record feedback locally: %v", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Feedback %s recorded for %s\n", value, key.SessionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}
