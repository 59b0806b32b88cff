package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "csvdocctl",
	Short: "Inspect CSV-to-document import configuration and state",
	Long: `csvdocctl is a read-only operator tool for the csvdoc importer.
It validates metadata sidecars and prints checkpoint state; it never
opens a data file or a database connection itself.`,
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(); it only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
