// root.go viper root command code, grounded on the teacher's cobra root
// (PersistentPreRunE init hook, viper flag binding), rewired for a single
// playback daemon rather than a CLI with analysis/backup/benchmark
// subcommands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tunewave/tunewaved/internal/config"
)

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tunewaved",
		Short: "tunewaved audio playback daemon",
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		fmt.Printf("error binding debug flag: %v\n", err)
	}

	rootCmd.AddCommand(
		runCommand(),
		validateConfigCommand(),
		versionCommand(),
	)

	return rootCmd
}

// loadSettings wraps config.Load with the command's usage context, so
// every subcommand reports load failures the same way.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return settings, nil
}
