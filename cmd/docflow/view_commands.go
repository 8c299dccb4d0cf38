package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show the workflow state for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				instance, err := engine.Status(runCtx, args[0])
				if err != nil {
					return err
				}
				if instance == nil {
					return fmt.Errorf("document %s has no workflow", args[0])
				}
				view := api.FromInstance(instance)
				if ctx.jsonEnabled() {
					return writeJSON(cmd, api.InstanceResponse{Instance: view})
				}
				printInstance(cmd, view)
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <instance-id>",
		Short: "Show a workflow's audit trail, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				entries, err := engine.History(runCtx, args[0])
				if err != nil {
					return err
				}
				views := api.FromAuditEntries(entries)
				if ctx.jsonEnabled() {
					return writeJSON(cmd, api.HistoryResponse{InstanceID: args[0], Entries: views})
				}
				printRows(cmd,
					[]string{"#", "Kind", "From", "To", "Role", "Reason", "At"},
					historyRows(views),
					[]columnAlignment{alignRight})
				return nil
			})
		},
	}
}

func newFeedbackCommand(ctx *commandContext) *cobra.Command {
	var comments string

	cmd := &cobra.Command{
		Use:   "feedback <instance-id> <stage> [content]",
		Short: "Show a stage's feedback, or submit it when content is given",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				if len(args) == 3 {
					act, err := ctx.actorValue()
					if err != nil {
						return err
					}
					record, err := engine.SubmitFeedback(runCtx, args[0], act, args[1], args[2], comments)
					if err != nil {
						return err
					}
					return emitFeedback(cmd, ctx, api.FromFeedback(record))
				}

				record, err := engine.Feedback(runCtx, args[0], args[1])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no feedback recorded for stage %s", args[1])
				}
				return emitFeedback(cmd, ctx, api.FromFeedback(record))
			})
		},
	}

	cmd.Flags().StringVar(&comments, "comments", "", "Additional reviewer comments")
	return cmd
}

func newPermissionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <instance-id>",
		Short: "Show which operations the given role may perform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ctx.actorValue()
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				intents, err := engine.Permissions(runCtx, args[0], act.Role)
				if err != nil {
					return err
				}
				names := make([]string, len(intents))
				for i, intent := range intents {
					names[i] = string(intent)
				}
				view := api.PermissionsView{Role: string(act.Role), Intents: names}
				if ctx.jsonEnabled() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintf(out, "%s: no operations permitted\n", view.Role)
					return nil
				}
				fmt.Fprintf(out, "%s: %s\n", view.Role, strings.Join(names, ", "))
				return nil
			})
		},
	}
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "stages",
		Short:       "Print the stage catalog with owner roles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := api.StageCatalog()
			if ctx.jsonEnabled() {
				return writeJSON(cmd, api.StagesResponse{Stages: catalog})
			}
			printRows(cmd,
				[]string{"#", "ID", "Name", "Owners"},
				stageRows(catalog),
				[]columnAlignment{alignRight})
			return nil
		},
	}
}

func emitFeedback(cmd *cobra.Command, ctx *commandContext, view api.FeedbackView) error {
	if ctx.jsonEnabled() {
		return writeJSON(cmd, view)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stage:     %s\n", view.StageName)
	fmt.Fprintf(out, "Content:   %s\n", view.Content)
	if view.Comments != "" {
		fmt.Fprintf(out, "Comments:  %s\n", view.Comments)
	}
	if view.AuthorIdentity != "" {
		fmt.Fprintf(out, "Author:    %s\n", view.AuthorIdentity)
	}
	if view.SubmittedAt != "" {
		fmt.Fprintf(out, "Submitted: %s\n", view.SubmittedAt)
	}
	return nil
}
