package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a settings file with the default configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		if err := config.WriteDefaults(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created default settings file at %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().String("path", filepath.Join(config.DirName, "settings.yaml"), "where to write the settings file")
	initCmd.Flags().Bool("force", false, "overwrite an existing settings file")
	rootCmd.AddCommand(initCmd)
}
