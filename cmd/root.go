package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "searchstream",
	Short: "Search daily.dev from the terminal",
	Long: `Ask daily.dev search a question and watch the answer stream in.
Finished sessions are cached locally and can be resumed, listed and rated.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .searchstream/settings.yaml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("user", "u", "", "user id the local session history is kept for")
	rootCmd.PersistentFlags().Bool("logging.persist", false, "append to the log file instead of truncating it")
}

// initConfig loads configuration with command line overrides and starts
// the logger
func initConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if f := flags.Lookup("log-level"); f != nil && f.Changed {
		viper.BindPFlag("logging.level", f)
	}
	if f := flags.Lookup("user"); f != nil && f.Changed {
		viper.BindPFlag("user.id", f)
	}
	if f := flags.Lookup("logging.persist"); f != nil && f.Changed {
		viper.BindPFlag("logging.persist", f)
	}

	if _, err := config.Load(cfgFile); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("using config file %q", config.GetConfigFileUsed())
	return nil
}
