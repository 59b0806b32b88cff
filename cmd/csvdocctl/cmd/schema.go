package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"csvdoc/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and validate metadata sidecars",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <metadata-file>",
	Short: "Parse a metadata sidecar and report its fields, or the parse error",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read %s: %w", path, err)
		}
		line = strings.TrimRight(line, "\r\n")

		sch, err := schema.Load(line)
		if err != nil {
			return fmt.Errorf("invalid metadata in %s: %w", path, err)
		}

		fmt.Printf("%s: %d field(s)\n", path, len(sch.Fields))
		for i, field := range sch.Fields {
			fmt.Printf("  %d. %s/%s\n", i, field.Name, field.Kind)
		}
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaValidateCmd)
	rootCmd.AddCommand(schemaCmd)
}
