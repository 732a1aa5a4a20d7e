package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set by the release build process; left at "dev" otherwise.
var version = "dev"

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the daemon version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("tunewaved " + version)
			return nil
		},
	}
}

func validateConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "load and validate the configuration file without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadSettings(); err != nil {
				return err
			}
			fmt.Println("configuration OK")
			return nil
		},
	}
}
