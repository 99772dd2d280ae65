// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/conference-engine/pkg/types"
)

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List permanent author records",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.store.ListAuthors(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No authors.")
			return nil
		}
		rows := make([][]string, 0, len(list))
		for _, au := range list {
			rows = append(rows, authorRow(au))
		}
		fmt.Fprintln(out, renderTable(authorHeaders, rows, authorAligns))
		return nil
	},
}

var refreshAuthorCmd = &cobra.Command{
	Use:   "refresh <author-id>",
	Short: "Re-resolve an author against Semantic Scholar, bypassing the cache",
	Long: `Refresh looks the author up again and overwrites the stored h-index and
affiliation. If the lookup fails the stored record is left unchanged and
the command exits non-zero.`,
	Args: cobra.ExactArgs(1),
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

		au, err := a.service.RefreshAuthor(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(authorHeaders, [][]string{authorRow(au)}, authorAligns))
		return nil
	},
}

var (
	authorHeaders = []string{"ID", "Name", "h-index", "External ID", "Affiliation", "Refreshed"}
	authorAligns  = []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
)

func authorRow(a types.Author) []string {
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.Name,
		formatOptionalInt(a.Metric),
		formatOptionalString(a.ExternalID),
		formatOptionalString(a.Affiliation),
		formatTimestamp(a.LastRefreshed),
	}
}

func init() {
	authorsCmd.Flags().Bool("json", false, "output results as JSON")

	authorsCmd.AddCommand(refreshAuthorCmd)
	rootCmd.AddCommand(authorsCmd)
}
