package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/dailydev/searchstream/pkg/headless"
	"github.com/dailydev/searchstream/pkg/history"
	"github.com/dailydev/searchstream/pkg/session"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage the local session history",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withStore(func(cfg *config.Config, store *history.Store) error {
			list, err := store.List(cmd.Context(), cfg.User.ID, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tUPDATED\tPROMPT")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.Key.SessionID, s.State, s.UpdatedAt.Local().Format(time.DateTime), truncate(s.Prompt, 60))
			}
			return w.Flush()
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Render a cached session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(cfg *config.Config, store *history.Store) error {
			snap, err := store.Load(cmd.Context(), session.Key{UserID: cfg.User.ID, SessionID: args[0]})
			if err != nil {
				return err
			}
			out := headless.NewOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), headless.OptionsFromConfig(cfg.Output, cmd.OutOrStdout()))
			out.Session(snap)
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>...",
	Short: "Remove sessions from the history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(cfg *config.Config, store *history.Store) error {
			var errs []error
			for _, id := range args {
				if err := store.Delete(cmd.Context(), session.Key{UserID: cfg.User.ID, SessionID: id}); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove sessions older than the retention period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		return withStore(func(cfg *config.Config, store *history.Store) error {
			if olderThan == 0 {
				olderThan = cfg.Store.Retention
			}
			if olderThan <= 0 {
				return fmt.Errorf("no retention period configured; pass --older-than")
			}

			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d session(s) older than %s\n", n, olderThan)
			return nil
		})
	},
}

// withStore opens the history for the duration of fn
func withStore(fn func(cfg *config.Config, store *history.Store) error) error {
	cfg := config.Get()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("session history is disabled (store.enabled=false)")
	}
	defer store.Close()
	return fn(cfg, store)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	sessionsListCmd.Flags().IntP("limit", "n", 20, "maximum number of sessions to list (0 for all)")
	sessionsPruneCmd.Flags().Duration("older-than", 0, "remove sessions not updated within this duration (default store.retention)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsPruneCmd)
	rootCmd.AddCommand(sessionsCmd)
}
