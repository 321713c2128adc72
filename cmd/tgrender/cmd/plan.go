package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/internal/plan"
)

var planJSONInput bool

var planCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Convert terraform plan output to structured JSON",
	Long: `Parse terraform/tofu plan output into a JSON summary of planned
changes. The input is either the human-readable plan log (ANSI colours
and CI timestamps are stripped) or, with --json, a terraform show -json
document. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().BoolVar(&planJSONInput, "json", false, "input is a terraform show -json plan")
}

func runPlan(_ *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	var summary *plan.Summary
	if planJSONInput || looksLikeJSON(data) {
		summary, err = plan.ParseJSON(data)
		if err != nil {
			return err
		}
	} else {
		summary = plan.ParseText(string(data))
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
