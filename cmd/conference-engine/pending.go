// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/conference-engine/pkg/types"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List submissions awaiting review, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var list []types.PendingSubmission
		switch s := types.SubmissionStatus(status); s {
		case types.StatusPending:
			list, err = a.service.ListPending(cmd.Context())
		case types.StatusApproved, types.StatusRejected:
			list, err = a.store.ListByStatus(cmd.Context(), s)
		default:
			return fmt.Errorf("invalid status %q: must be pending, approved, or rejected", status)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintf(out, "No %s submissions.\n", status)
			return nil
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Kind", "Conference", "Papers", "Field", "Rank", "Submitted"},
			pendingRows(list),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <submission-id>",
	Short: "Print one submission with its enriched payload as JSON",
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

		p, err := a.service.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	pendingCmd.Flags().String("status", string(types.StatusPending), "list submissions in this status: pending, approved, rejected")
	pendingCmd.Flags().Bool("json", false, "output results as JSON")

	pendingCmd.AddCommand(showCmd)
	rootCmd.AddCommand(pendingCmd)
}

func pendingRows(list []types.PendingSubmission) [][]string {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			string(p.Kind),
			p.Payload.Name,
			strconv.Itoa(len(p.Payload.Papers)),
			orDash(p.Payload.Classification.Primary),
			string(p.Payload.Ranking.Rank),
			formatTimestamp(p.SubmittedAt),
		})
	}
	return rows
}
