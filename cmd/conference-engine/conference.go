// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/conference-engine/pkg/types"
)

var conferenceCmd = &cobra.Command{
	Use:   "conference <conference-id>",
	Short: "Print an approved conference with its papers as JSON",
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

		c, err := a.store.GetConference(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("conference %d: %w", id, err)
		}
		papers, err := a.store.ListPapers(cmd.Context(), id)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), struct {
			types.Conference
			Papers []types.Paper `json:"papers"`
		}{c, papers})
	},
}

func init() {
	rootCmd.AddCommand(conferenceCmd)
}
