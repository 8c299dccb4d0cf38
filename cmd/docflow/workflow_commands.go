package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/api"
	"docflow/internal/workflow"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <document-id>",
		Short: "Start an approval workflow for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ctx.actorValue()
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				result, err := engine.Start(runCtx, args[0], act)
				if err != nil {
					return err
				}
				return emitTransition(cmd, ctx, result)
			})
		},
	}
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "advance <instance-id>",
		Short: "Advance a workflow to the next stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ctx.actorValue()
			if err != nil {
				return err
			}
			var data *workflow.TransitionData
			if strings.TrimSpace(notes) != "" {
				data = &workflow.TransitionData{Notes: notes}
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				result, err := engine.Advance(runCtx, args[0], act, data)
				if err != nil {
					return err
				}
				return emitTransition(cmd, ctx, result)
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Notes recorded with the transition")
	return cmd
}

func newBackwardCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "backward <instance-id> <target-stage>",
		Short: "Return a workflow to an earlier stage (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ctx.actorValue()
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				result, err := engine.MoveBackward(runCtx, args[0], act, args[1], reason, nil)
				if err != nil {
					return err
				}
				return emitTransition(cmd, ctx, result)
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason for the rollback (required)")
	return cmd
}

func newJumpCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "jump <instance-id> <target-stage>",
		Short: "Move a workflow to an arbitrary stage (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ctx.actorValue()
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				result, err := engine.AdminJump(runCtx, args[0], act, args[1], reason)
				if err != nil {
					return err
				}
				return emitTransition(cmd, ctx, result)
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the override (required)")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "reset <instance-id>",
		Short: "Reset a workflow to stage 1, keeping its history (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := ctx.actorValue()
			if err != nil {
				return err
			}
			return ctx.withEngine(cmd, func(runCtx context.Context, engine *workflow.Engine) error {
				result, err := engine.Reset(runCtx, args[0], act, confirm)
				if err != nil {
					return err
				}
				return emitTransition(cmd, ctx, result)
			})
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "Confirmation token (required)")
	return cmd
}

func emitTransition(cmd *cobra.Command, ctx *commandContext, result workflow.Result) error {
	payload := api.TransitionResult{
		Instance: api.FromInstance(result.Instance),
		Entry:    api.FromAuditEntry(result.Entry),
	}
	if ctx.jsonEnabled() {
		return writeJSON(cmd, payload)
	}
	printTransition(cmd, payload)
	return nil
}
