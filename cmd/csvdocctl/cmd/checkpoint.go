package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"csvdoc/internal/checkpoint"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect checkpoint state recorded by csvdocimport",
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <checkpoint-dir> <table>",
	Short: "Print the last saved checkpoint record for a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, table := args[0], args[1]

		store, err := checkpoint.Open(dir)
		if err != nil {
			return fmt.Errorf("open checkpoint db %s: %w", dir, err)
		}
		defer store.Close()

		rec, ok, err := store.Load(table)
		if err != nil {
			return fmt.Errorf("load checkpoint for %s: %w", table, err)
		}
		if !ok {
			fmt.Printf("%s: no checkpoint recorded\n", table)
			return nil
		}

		fmt.Printf("%s:\n", table)
		fmt.Printf("  fingerprint:       %x\n", rec.Fingerprint)
		fmt.Printf("  size:              %d\n", rec.Size)
		fmt.Printf("  records_returned:  %d\n", rec.Stats.RecordsReturned)
		fmt.Printf("  total_errors:      %d\n", rec.Stats.TotalErrors)
		fmt.Printf("  non_compliant:     %d\n", rec.Stats.NonCompliantSchema)
		return nil
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointShowCmd)
	rootCmd.AddCommand(checkpointCmd)
}
