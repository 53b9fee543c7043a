package main

import (
	"context"
	"fmt"
	"io"
	"learnloop/internal/core"
	"learnloop/pkg/domain"

	"github.com/spf13/cobra"
)

func (a *app) outcomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outcome",
		Short: "Record experiment outcomes",
	}
	cmd.AddCommand(
		a.outcomeCreateCmd(),
		a.outcomeResultCmd(),
		a.outcomeDeleteCmd(),
		a.outcomeListCmd(),
	)
	return cmd
}

func (a *app) outcomeCreateCmd() *cobra.Command {
	var experimentID int64
	var result, notes string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an outcome; Success or Failed is linked onto the experiment",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			outcome, _, err := a.svc.CreateOutcome(ctx, experimentID, result, notes)
			if err != nil {
				return err
			}
			return a.emit(outcome, outcomeTable([]core.Outcome{outcome}))
		}),
	}
	cmd.Flags().Int64Var(&experimentID, "experiment", 0, "experiment id")
	cmd.Flags().StringVar(&result, "result", "", "result (Success, Failed or free text)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("experiment")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func (a *app) outcomeResultCmd() *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "result ID RESULT",
		Short: "Replace the result of an outcome",
		Args:  cobra.ExactArgs(2),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			outcome, _, err := a.svc.UpdateOutcomeResult(ctx, id, args[1], expected)
			if err != nil {
				return err
			}
			return a.emit(outcome, outcomeTable([]core.Outcome{outcome}))
		}),
	}
	versionFlag(cmd, &expected)
	return cmd
}

func (a *app) outcomeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an outcome that no reflection references",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			deleted, err := a.svc.DeleteOutcome(ctx, id)
			if err != nil {
				return err
			}
			return a.emitDeleted(domain.EntityOutcome, id, deleted)
		}),
	}
}

func (a *app) outcomeListCmd() *cobra.Command {
	var experimentID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outcomes, optionally for one experiment",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			var outcomes []core.Outcome
			var err error
			if cmd.Flags().Changed("experiment") {
				outcomes, err = a.svc.OutcomesForExperiment(ctx, experimentID)
			} else {
				outcomes, err = a.svc.ListOutcomes(ctx)
			}
			if err != nil {
				return err
			}
			return a.emit(outcomes, outcomeTable(outcomes))
		}),
	}
	cmd.Flags().Int64Var(&experimentID, "experiment", 0, "only outcomes of this experiment")
	return cmd
}

func outcomeTable(outcomes []core.Outcome) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tEXPERIMENT\tVERSION\tRESULT\tNOTES")
		for _, o := range outcomes {
			_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", o.ID, o.ExperimentID, o.Version, o.Result, o.Notes)
		}
	}
}
