package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/internal/changes"
)

var schemaOutputFile string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON Schema for the resource definitions file",
	Long: `Generate a JSON Schema for resource-definitions.yml.

The schema can be used for IDE autocompletion and validation.

Examples:
  # Output schema to stdout
  tgrender schema

  # Write schema to file
  tgrender schema -o resource-definitions.schema.json`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaOutputFile, "output", "o", "", "output file (default: stdout)")
}

func runSchema(_ *cobra.Command, _ []string) error {
	schema := changes.GenerateJSONSchema()

	if schemaOutputFile != "" {
		if err := os.WriteFile(schemaOutputFile, []byte(schema), 0o600); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Schema written to %s\n", schemaOutputFile)
	} else {
		fmt.Print(schema)
	}
	return nil
}
