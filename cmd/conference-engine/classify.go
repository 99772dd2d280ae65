// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/conference-engine/internal/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <conference-name> [paper-title...]",
	Short: "Classify a conference by research field without storing anything",
	Long: `Classify runs the keyword classifier and the tier estimate offline. No
authors are looked up, so the estimate uses field tier and venue name only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		name, titles := args[0], args[1:]
		c := classify.Classify(name, titles)
		r := classify.Rank(name, c, nil)

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, map[string]any{"classification": c, "ranking": r})
		}
		if c.Error != "" {
			fmt.Fprintln(out, c.Error)
		}
		fmt.Fprintf(out, "Primary:    %s (confidence %.2f)\n", orDash(c.Primary), c.Confidence)
		fmt.Fprintf(out, "Secondary:  %s\n", orDash(strings.Join(c.Secondary, ", ")))
		fmt.Fprintf(out, "Rank:       %s (score %d, %s)\n", r.Rank, r.Score, r.Method)
		fmt.Fprintf(out, "Factors:    %s\n", orDash(strings.Join(r.Factors, ", ")))
		return nil
	},
}

func init() {
	classifyCmd.Flags().Bool("json", false, "output the classification and ranking as JSON")

	rootCmd.AddCommand(classifyCmd)
}
