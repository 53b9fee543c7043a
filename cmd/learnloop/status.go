package main

import (
	"context"
	"fmt"
	"io"
	"learnloop/internal/core"
	"learnloop/pkg/domain"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type statusReport struct {
	Storage     string         `json:"storage"`
	Ideas       map[string]int `json:"ideas"`
	Experiments map[string]int `json:"experiments"`
	Outcomes    int            `json:"outcomes"`
	Reflections int            `json:"reflections"`
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the loop: ideas and experiments per stage, outcome and reflection counts",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			report, err := a.collectStatus(ctx)
			if err != nil {
				return err
			}
			return a.emit(report, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "storage\t%s\n", report.Storage)
				for _, status := range machineStates(domain.EntityIdea) {
					_, _ = fmt.Fprintf(w, "ideas %s\t%d\n", status, report.Ideas[status])
				}
				for _, status := range machineStates(domain.EntityExperiment) {
					_, _ = fmt.Fprintf(w, "experiments %s\t%d\n", status, report.Experiments[status])
				}
				_, _ = fmt.Fprintf(w, "outcomes\t%d\n", report.Outcomes)
				_, _ = fmt.Fprintf(w, "reflections\t%d\n", report.Reflections)
			})
		}),
	}
}

// collectStatus reads the four collections concurrently.
func (a *app) collectStatus(ctx context.Context) (statusReport, error) {
	var (
		ideas       []core.Idea
		experiments []core.Experiment
		outcomes    []core.Outcome
		reflections []core.Reflection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ideas, err = a.svc.ListIdeas(gctx)
		return err
	})
	g.Go(func() (err error) {
		experiments, err = a.svc.ListExperiments(gctx)
		return err
	})
	g.Go(func() (err error) {
		outcomes, err = a.svc.ListOutcomes(gctx)
		return err
	})
	g.Go(func() (err error) {
		reflections, err = a.svc.ListReflections(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return statusReport{}, err
	}

	report := statusReport{
		Storage:     a.cfg.Storage.Driver,
		Ideas:       zeroCounts(domain.EntityIdea),
		Experiments: zeroCounts(domain.EntityExperiment),
		Outcomes:    len(outcomes),
		Reflections: len(reflections),
	}
	for _, idea := range ideas {
		report.Ideas[string(idea.Status)]++
	}
	for _, exp := range experiments {
		report.Experiments[string(exp.Status)]++
	}
	return report, nil
}

// machineStates lists a kind's statuses from the initial one forward.
func machineStates(kind domain.EntityType) []string {
	m, ok := domain.MachineFor(kind)
	if !ok {
		return nil
	}
	states := []string{m.Initial}
	for current := m.Initial; !m.Terminal(current); {
		next := m.Allowed(current)
		if len(next) == 0 {
			break
		}
		current = next[0]
		states = append(states, current)
	}
	return states
}

func zeroCounts(kind domain.EntityType) map[string]int {
	counts := make(map[string]int)
	for _, status := range machineStates(kind) {
		counts[status] = 0
	}
	return counts
}
