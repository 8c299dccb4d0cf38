package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/api"
)

func printRows(cmd *cobra.Command, headers []string, rows [][]string, aligns []columnAlignment) {
	out := cmd.OutOrStdout()
	if isTerminal(out) {
		fmt.Fprintln(out, renderTable(headers, rows, aligns))
		return
	}
	fmt.Fprintln(out, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
}

func printInstance(cmd *cobra.Command, view api.InstanceView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Instance:  %s\n", view.ID)
	fmt.Fprintf(out, "Document:  %s\n", view.DocumentID)
	if view.StageOrdinal > 0 {
		fmt.Fprintf(out, "Stage:     %d/8 %s (%s)\n", view.StageOrdinal, view.StageName, view.Stage)
	} else {
		fmt.Fprintf(out, "Stage:     %s\n", view.Stage)
	}
	fmt.Fprintf(out, "Active:    %s\n", yesNo(view.Active))
	fmt.Fprintf(out, "Version:   %d\n", view.Version)
	if view.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated:   %s\n", view.UpdatedAt)
	}
}

func printTransition(cmd *cobra.Command, result api.TransitionResult) {
	out := cmd.OutOrStdout()
	from := result.Entry.FromStageName
	if from == "" {
		from = "-"
	}
	fmt.Fprintf(out, "%s: %s -> %s\n", result.Entry.Kind, from, result.Entry.ToStageName)
	printInstance(cmd, result.Instance)
}

func historyRows(entries []api.TransitionView) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		from := entry.FromStageName
		if from == "" {
			from = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.Seq),
			entry.Kind,
			from,
			entry.ToStageName,
			entry.ActorRole,
			entry.Reason,
			entry.CreatedAt,
		})
	}
	return rows
}

func stageRows(stages []api.StageView) [][]string {
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Ordinal),
			s.ID,
			s.DisplayName,
			strings.Join(s.OwnerRoles, ", "),
		})
	}
	return rows
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
