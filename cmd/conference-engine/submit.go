// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/conference-engine/pkg/types"
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Enrich a conference submission and store it as pending",
	Long: `Submit reads a conference submission from a YAML or JSON file ("-" reads
standard input), resolves every author against Semantic Scholar, classifies
the conference, and stores the result for administrator review.

Example file:

  name: NeurIPS 2026
  organizers: NeurIPS Foundation
  location: Vancouver
  papers:
    - title: Attention Is All You Need
      authors: [Ashish Vaswani, Noam Shazeer]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readSubmission(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("kind")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.service.Submit(cmd.Context(), types.SubmissionKind(kind), raw)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, p)
		}
		fmt.Fprintf(out, "Submission %d stored as %s (%s)\n", p.ID, p.Status, p.Kind)
		fmt.Fprintf(out, "Classification: %s (confidence %.2f)  Rank: %s (%d, %s)\n",
			orDash(p.Payload.Classification.Primary), p.Payload.Classification.Confidence,
			p.Payload.Ranking.Rank, p.Payload.Ranking.Score, p.Payload.Ranking.Method)
		fmt.Fprintln(out, renderTable(
			[]string{"Paper", "Author", "h-index", "Affiliation", "Match", "Error"},
			enrichedAuthorRows(p.Payload),
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
		return nil
	},
}

func init() {
	submitCmd.Flags().String("kind", string(types.KindNewConference), "submission kind: new_conference, modification, cancellation")
	submitCmd.Flags().Bool("json", false, "print the stored submission as JSON")

	rootCmd.AddCommand(submitCmd)
}

// readSubmission decodes a submission file. JSON input parses as YAML.
func readSubmission(stdin io.Reader, path string) (types.RawSubmission, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return types.RawSubmission{}, fmt.Errorf("reading submission: %w", err)
	}

	var raw types.RawSubmission
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return types.RawSubmission{}, fmt.Errorf("parsing submission %s: %w", path, err)
	}
	if raw.Name == "" && len(raw.Papers) == 0 {
		return types.RawSubmission{}, fmt.Errorf("submission %s has no conference name and no papers", path)
	}
	return raw, nil
}

func enrichedAuthorRows(p types.EnrichedPayload) [][]string {
	var rows [][]string
	for _, paper := range p.Papers {
		for _, a := range paper.Authors {
			rows = append(rows, []string{
				paper.Title,
				a.Name,
				formatOptionalInt(a.Metric),
				formatOptionalString(a.Affiliation),
				strconv.FormatFloat(a.Confidence, 'f', 2, 64),
				a.Error,
			})
		}
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
