package main

import (
	"context"
	"fmt"
	"io"
	"learnloop/internal/blob"

	"github.com/spf13/cobra"
)

func (a *app) snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive and restore the whole store",
	}
	cmd.AddCommand(a.snapshotExportCmd(), a.snapshotImportCmd(), a.snapshotListCmd())
	return cmd
}

func (a *app) snapshotExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the current state to the archive",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			arch, err := a.archiver(ctx)
			if err != nil {
				return err
			}
			info, err := arch.Export(ctx)
			if err != nil {
				return err
			}
			return a.emit(info, blobTable([]blob.Info{info}))
		}),
	}
}

type importReport struct {
	Key         string `json:"key"`
	Format      string `json:"format"`
	Ideas       int    `json:"ideas"`
	Experiments int    `json:"experiments"`
	Outcomes    int    `json:"outcomes"`
	Reflections int    `json:"reflections"`
}

func (a *app) snapshotImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [KEY]",
		Short: "Replace the current state with an archived snapshot (latest when KEY is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			arch, err := a.archiver(ctx)
			if err != nil {
				return err
			}
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				latest, err := arch.Latest(ctx)
				if err != nil {
					return err
				}
				key = latest.Key
			}
			doc, err := arch.Import(ctx, key)
			if err != nil {
				return err
			}
			report := importReport{
				Key:         key,
				Format:      doc.Format,
				Ideas:       len(doc.Snapshot.Ideas),
				Experiments: len(doc.Snapshot.Experiments),
				Outcomes:    len(doc.Snapshot.Outcomes),
				Reflections: len(doc.Snapshot.Reflections),
			}
			return a.emit(report, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "imported %s\n", key)
				_, _ = fmt.Fprintf(w, "ideas\t%d\nexperiments\t%d\noutcomes\t%d\nreflections\t%d\n",
					report.Ideas, report.Experiments, report.Outcomes, report.Reflections)
			})
		}),
	}
}

func (a *app) snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			arch, err := a.archiver(ctx)
			if err != nil {
				return err
			}
			infos, err := arch.List(ctx)
			if err != nil {
				return err
			}
			return a.emit(infos, blobTable(infos))
		}),
	}
}

func blobTable(infos []blob.Info) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, info := range infos {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
}
