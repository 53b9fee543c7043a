package main

import (
	"context"
	"fmt"
	"io"
	"learnloop/internal/core"
	"learnloop/pkg/domain"

	"github.com/spf13/cobra"
)

func (a *app) experimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Plan, run and complete experiments",
	}
	cmd.AddCommand(
		a.experimentCreateCmd(),
		a.experimentUpdateCmd(),
		a.experimentAdvanceCmd(),
		a.experimentDeleteCmd(),
		a.experimentGetCmd(),
		a.experimentListCmd(),
	)
	return cmd
}

func (a *app) experimentCreateCmd() *cobra.Command {
	var in core.ExperimentInput
	var status string
	var ideaID int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an experiment",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			in.Status = domain.ExperimentStatus(status)
			if cmd.Flags().Changed("idea") {
				in.LinkedIdeaID = &ideaID
			}
			exp, _, err := a.svc.CreateExperiment(ctx, in)
			if err != nil {
				return err
			}
			return a.emitExperiment(exp)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "experiment title")
	f.StringVar(&in.Description, "description", "", "what the experiment does")
	f.StringVar(&in.Hypothesis, "hypothesis", "", "expected effect")
	f.StringVar(&in.SuccessMetric, "success-metric", "", "how success is measured")
	f.StringVar(&in.Falsifiability, "falsifiability", "", "what result would disprove the hypothesis")
	f.StringVar(&status, "status", "", "initial status (planned, in-progress, completed; default planned)")
	f.Int64Var(&ideaID, "idea", 0, "id of the idea being tested")
	for _, name := range []string{"title", "description", "hypothesis", "success-metric", "falsifiability"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) experimentUpdateCmd() *cobra.Command {
	var (
		expected      int64
		title         string
		description   string
		hypothesis    string
		successMetric string
		falsifiable   string
		status        string
		outcomeResult string
		ideaID        int64
		unlinkIdea    bool
		clearOutcome  bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Patch an experiment; completed experiments accept only --outcome-result",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			var patch core.ExperimentPatch
			if changed("title") {
				patch.Title = &title
			}
			if changed("description") {
				patch.Description = &description
			}
			if changed("hypothesis") {
				patch.Hypothesis = &hypothesis
			}
			if changed("success-metric") {
				patch.SuccessMetric = &successMetric
			}
			if changed("falsifiability") {
				patch.Falsifiability = &falsifiable
			}
			if changed("status") {
				s := domain.ExperimentStatus(status)
				patch.Status = &s
			}
			if changed("idea") {
				patch.LinkedIdeaID = &ideaID
			}
			if changed("outcome-result") {
				r := domain.OutcomeResult(outcomeResult)
				patch.OutcomeResult = &r
			}
			patch.UnlinkIdea = unlinkIdea
			patch.ClearOutcome = clearOutcome
			exp, _, err := a.svc.UpdateExperiment(ctx, id, patch, expected)
			if err != nil {
				return err
			}
			return a.emitExperiment(exp)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "new title")
	f.StringVar(&description, "description", "", "new description")
	f.StringVar(&hypothesis, "hypothesis", "", "new hypothesis")
	f.StringVar(&successMetric, "success-metric", "", "new success metric")
	f.StringVar(&falsifiable, "falsifiability", "", "new falsifiability statement")
	f.StringVar(&status, "status", "", "next status")
	f.Int64Var(&ideaID, "idea", 0, "link to this idea")
	f.BoolVar(&unlinkIdea, "unlink-idea", false, "remove the idea link")
	f.StringVar(&outcomeResult, "outcome-result", "", "Success or Failed")
	f.BoolVar(&clearOutcome, "clear-outcome", false, "clear the outcome result")
	cmd.MarkFlagsMutuallyExclusive("idea", "unlink-idea")
	cmd.MarkFlagsMutuallyExclusive("outcome-result", "clear-outcome")
	versionFlag(cmd, &expected)
	return cmd
}

func (a *app) experimentAdvanceCmd() *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "advance ID STATUS",
		Short: "Advance an experiment one step (in-progress, completed)",
		Args:  cobra.ExactArgs(2),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			exp, _, err := a.svc.AdvanceExperimentStatus(ctx, id, domain.ExperimentStatus(args[1]), expected)
			if err != nil {
				return err
			}
			return a.emitExperiment(exp)
		}),
	}
	versionFlag(cmd, &expected)
	return cmd
}

func (a *app) experimentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an experiment that no outcome references",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			deleted, err := a.svc.DeleteExperiment(ctx, id)
			if err != nil {
				return err
			}
			return a.emitDeleted(domain.EntityExperiment, id, deleted)
		}),
	}
}

func (a *app) experimentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show an experiment with its progress and linked idea",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			detail, err := a.svc.GetExperimentDetail(ctx, id)
			if err != nil {
				return err
			}
			return a.emit(detail, func(w io.Writer) {
				exp := detail.Experiment
				_, _ = fmt.Fprintf(w, "ID\t%d\n", exp.ID)
				_, _ = fmt.Fprintf(w, "TITLE\t%s\n", exp.Title)
				_, _ = fmt.Fprintf(w, "STATUS\t%s (%d%%)\n", exp.Status, detail.Progress)
				_, _ = fmt.Fprintf(w, "VERSION\t%d\n", exp.Version)
				_, _ = fmt.Fprintf(w, "HYPOTHESIS\t%s\n", exp.Hypothesis)
				_, _ = fmt.Fprintf(w, "SUCCESS METRIC\t%s\n", exp.SuccessMetric)
				_, _ = fmt.Fprintf(w, "FALSIFIABILITY\t%s\n", exp.Falsifiability)
				_, _ = fmt.Fprintf(w, "OUTCOME\t%s\n", outcomeLabel(exp))
				_, _ = fmt.Fprintf(w, "IDEA\t%s\n", ideaLabel(detail.Idea))
			})
		}),
	}
}

func (a *app) experimentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List experiments in id order",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			exps, err := a.svc.ListExperiments(ctx)
			if err != nil {
				return err
			}
			return a.emit(exps, experimentTable(exps))
		}),
	}
}

func (a *app) emitExperiment(exp core.Experiment) error {
	return a.emit(exp, experimentTable([]core.Experiment{exp}))
}

func experimentTable(exps []core.Experiment) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tSTATUS\tVERSION\tPROGRESS\tOUTCOME\tTITLE")
		for _, exp := range exps {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d%%\t%s\t%s\n", exp.ID, exp.Status, exp.Version, exp.Progress(), outcomeLabel(exp), exp.Title)
		}
	}
}

func outcomeLabel(exp core.Experiment) string {
	if exp.OutcomeResult == nil {
		return "-"
	}
	return string(*exp.OutcomeResult)
}

func ideaLabel(ref core.IdeaRef) string {
	switch {
	case !ref.Linked:
		return "-"
	case ref.Missing:
		return fmt.Sprintf("%d (deleted)", ref.ID)
	default:
		return fmt.Sprintf("%d %s", ref.ID, ref.Idea.Title)
	}
}
