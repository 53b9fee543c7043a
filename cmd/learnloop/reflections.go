package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"learnloop/internal/core"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) reflectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflection",
		Short: "Write and read reflections on outcomes",
	}
	cmd.AddCommand(a.reflectionCreateCmd(), a.reflectionListCmd())
	return cmd
}

func (a *app) reflectionCreateCmd() *cobra.Command {
	var file string
	var outcomeID int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a reflection from a JSON document (--file, or - for stdin)",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			in, err := a.readReflection(file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("outcome") {
				in.OutcomeID = outcomeID
			}
			reflection, _, err := a.svc.CreateReflection(ctx, in)
			if err != nil {
				return err
			}
			return a.emit(reflection, reflectionTable([]core.Reflection{reflection}))
		}),
	}
	cmd.Flags().StringVar(&file, "file", "-", "reflection JSON document")
	cmd.Flags().Int64Var(&outcomeID, "outcome", 0, "outcome id, overriding the document's outcomeId")
	return cmd
}

func (a *app) readReflection(path string) (core.ReflectionInput, error) {
	var r io.Reader = a.in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return core.ReflectionInput{}, usagef("open reflection: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var in core.ReflectionInput
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return core.ReflectionInput{}, usagef("decode reflection: %w", err)
	}
	return in, nil
}

func (a *app) reflectionListCmd() *cobra.Command {
	var outcomeID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reflections, optionally for one outcome",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			var reflections []core.Reflection
			var err error
			if cmd.Flags().Changed("outcome") {
				reflections, err = a.svc.ReflectionsForOutcome(ctx, outcomeID)
			} else {
				reflections, err = a.svc.ListReflections(ctx)
			}
			if err != nil {
				return err
			}
			return a.emit(reflections, reflectionTable(reflections))
		}),
	}
	cmd.Flags().Int64Var(&outcomeID, "outcome", 0, "only reflections on this outcome")
	return cmd
}

func reflectionTable(reflections []core.Reflection) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tOUTCOME\tVISIBILITY\tEMOTION\tCONFIDENCE\tTAGS\tLESSON")
		for _, r := range reflections {
			_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%d->%d\t%d->%d\t%s\t%s\n",
				r.ID, r.OutcomeID, r.Visibility,
				r.Context.EmotionBefore, r.Result.EmotionAfter,
				r.Context.ConfidenceBefore, r.Result.ConfidenceAfter,
				strings.Join(r.Tags, ","), r.Growth.LessonLearned)
		}
	}
}
