package main

import (
	"context"
	"fmt"
	"io"
	"learnloop/internal/core"
	"learnloop/pkg/domain"

	"github.com/spf13/cobra"
)

func (a *app) ideaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idea",
		Short: "Create, edit and advance ideas",
	}
	cmd.AddCommand(
		a.ideaCreateCmd("create", "Create an idea directly in the proposed stage", a.svcCreateIdea),
		a.ideaCreateCmd("draft", "Create a draft idea", a.svcCreateDraft),
		a.ideaUpdateCmd(),
		a.ideaPublishCmd(),
		a.ideaAdvanceCmd(),
		a.ideaDeleteCmd(),
		a.ideaGetCmd(),
		a.ideaListCmd(),
		a.ideaDraftsCmd(),
	)
	return cmd
}

type createIdeaFunc func(ctx context.Context, title, description string) (core.Idea, core.Result, error)

func (a *app) svcCreateIdea(ctx context.Context, title, description string) (core.Idea, core.Result, error) {
	return a.svc.CreateIdea(ctx, title, description)
}

func (a *app) svcCreateDraft(ctx context.Context, title, description string) (core.Idea, core.Result, error) {
	return a.svc.CreateDraft(ctx, title, description)
}

func (a *app) ideaCreateCmd(use, short string, create createIdeaFunc) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			idea, _, err := create(ctx, title, description)
			if err != nil {
				return err
			}
			return a.emitIdea(idea)
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "idea title")
	cmd.Flags().StringVar(&description, "description", "", "idea description")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func (a *app) ideaUpdateCmd() *cobra.Command {
	var title, description string
	var expected int64
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit the title and description of a draft idea",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			idea, _, err := a.svc.UpdateDraft(ctx, id, title, description, expected)
			if err != nil {
				return err
			}
			return a.emitIdea(idea)
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	versionFlag(cmd, &expected)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func (a *app) ideaPublishCmd() *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "publish ID",
		Short: "Move a draft idea to proposed",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			idea, _, err := a.svc.PublishIdea(ctx, id, expected)
			if err != nil {
				return err
			}
			return a.emitIdea(idea)
		}),
	}
	versionFlag(cmd, &expected)
	return cmd
}

func (a *app) ideaAdvanceCmd() *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "advance ID STATUS",
		Short: "Advance an idea one stage (proposed, experiment, outcome, reflection)",
		Args:  cobra.ExactArgs(2),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			idea, _, err := a.svc.AdvanceIdeaStatus(ctx, id, domain.IdeaStatus(args[1]), expected)
			if err != nil {
				return err
			}
			return a.emitIdea(idea)
		}),
	}
	versionFlag(cmd, &expected)
	return cmd
}

func (a *app) ideaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an idea",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			deleted, err := a.svc.DeleteIdea(ctx, id)
			if err != nil {
				return err
			}
			return a.emitDeleted(domain.EntityIdea, id, deleted)
		}),
	}
}

func (a *app) ideaGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one idea",
		Args:  cobra.ExactArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			idea, err := a.svc.GetIdea(ctx, id)
			if err != nil {
				return err
			}
			return a.emitIdea(idea)
		}),
	}
}

func (a *app) ideaListCmd() *cobra.Command {
	var published bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas in id order",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			list := a.svc.ListIdeas
			if published {
				list = a.svc.PublishedIdeas
			}
			ideas, err := list(ctx)
			if err != nil {
				return err
			}
			return a.emitIdeas(ideas)
		}),
	}
	cmd.Flags().BoolVar(&published, "published", false, "only ideas past the draft stage")
	return cmd
}

func (a *app) ideaDraftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List draft ideas",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			ideas, err := a.svc.DraftIdeas(ctx)
			if err != nil {
				return err
			}
			return a.emitIdeas(ideas)
		}),
	}
}

func versionFlag(cmd *cobra.Command, expected *int64) {
	cmd.Flags().Int64Var(expected, "version", 0, "version last read; the write fails if the record changed since")
	_ = cmd.MarkFlagRequired("version")
}

func (a *app) emitIdea(idea core.Idea) error {
	return a.emit(idea, ideaTable([]core.Idea{idea}))
}

func (a *app) emitIdeas(ideas []core.Idea) error {
	return a.emit(ideas, ideaTable(ideas))
}

func ideaTable(ideas []core.Idea) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tSTATUS\tVERSION\tPROGRESS\tTITLE")
		for _, idea := range ideas {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d%%\t%s\n", idea.ID, idea.Status, idea.Version, idea.Progress(), idea.Title)
		}
	}
}

type deleteReport struct {
	Entity  domain.EntityType `json:"entity"`
	ID      int64             `json:"id"`
	Deleted bool              `json:"deleted"`
}

func (a *app) emitDeleted(entity domain.EntityType, id int64, deleted bool) error {
	return a.emit(deleteReport{Entity: entity, ID: id, Deleted: deleted}, func(w io.Writer) {
		if deleted {
			_, _ = fmt.Fprintf(w, "deleted %s %d\n", entity, id)
			return
		}
		_, _ = fmt.Fprintf(w, "%s %d did not exist\n", entity, id)
	})
}
