// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/conference-engine/internal/review"
)

var approveCmd = &cobra.Command{
	Use:   "approve <submission-id>",
	Short: "Approve a pending submission and merge it into the permanent records",
	Long: `Approve moves a pending submission to approved and, for new_conference
submissions, creates the conference and its papers and reconciles every
author against the existing author records in one transaction. A submission
that is no longer pending is refused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.service.Approve(cmd.Context(), id)
		if err != nil {
			return decisionError(id, err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, res)
		}
		fmt.Fprintf(out, "Submission %d approved.\n", res.SubmissionID)
		if res.ConferenceID == 0 {
			return nil
		}
		fmt.Fprintf(out, "Conference %d created with %d papers.\n", res.ConferenceID, len(res.PaperIDs))

		rows := make([][]string, 0, len(res.Authors))
		for _, m := range res.Authors {
			action := "matched"
			if m.Created {
				action = "created"
			}
			rows = append(rows, []string{strconv.FormatInt(m.AuthorID, 10), m.Name, action})
		}
		fmt.Fprintln(out, renderTable([]string{"Author ID", "Name", "Action"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft}))
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <submission-id>",
	Short: "Reject a pending submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.service.Reject(cmd.Context(), id)
		if err != nil {
			return decisionError(id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Submission %d %s.\n", p.ID, p.Status)
		return nil
	},
}

// decisionError adds a pointer to the current status when a submission was
// already decided.
func decisionError(id int64, err error) error {
	if errors.Is(err, review.ErrInvalidState) {
		return fmt.Errorf("%w (see \"conference-engine pending show %d\")", err, id)
	}
	return err
}

func init() {
	approveCmd.Flags().Bool("json", false, "print the merge result as JSON")

	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
}
