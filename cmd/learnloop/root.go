package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"learnloop/internal/archive"
	"learnloop/internal/blob"
	"learnloop/internal/config"
	"learnloop/internal/core"
	natsevents "learnloop/internal/infra/events/nats"
	"learnloop/internal/logging"
	"strconv"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const annotationNoEnv = "learnloop/no-env"

// app holds the state shared by every command of one invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	jsonOut    bool
	inRun      bool

	cfg     config.Config
	logger  *logging.ServiceLogger
	svc     *core.Service
	closers []func() error
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{in: stdin, out: stdout, errOut: stderr}
	root := &cobra.Command{
		Use:           "learnloop",
		Short:         "Track ideas through experiments, outcomes and reflections",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoEnv] == "true" || cmd.Name() == "help" {
				return nil
			}
			if err := a.open(cmd.Context()); err != nil {
				return &systemError{err: err}
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./learnloop.yaml)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		a.ideaCmd(),
		a.experimentCmd(),
		a.outcomeCmd(),
		a.reflectionCmd(),
		a.snapshotCmd(),
		a.statusCmd(),
		a.versionCmd(),
	)
	return root, a
}

// open loads configuration and wires the service with its store and sinks.
func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	zl, err := logging.New(cfg.Logging(), a.errOut)
	if err != nil {
		return err
	}
	a.logger = logging.NewServiceLogger(zl).Named("learnloop")
	a.closers = append(a.closers, func() error {
		_ = a.logger.Sync()
		return nil
	})

	store, err := core.OpenPersistentStore(cfg.StorageOptions(), core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	if closer, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}

	opts := []core.ServiceOption{core.WithLogger(a.logger)}
	if ns := cfg.Metrics.Namespace; ns != "" {
		reg := prometheus.NewRegistry()
		recorder, err := core.NewPrometheusMetricsRecorder(reg, ns)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithMetricsRecorder(recorder))
		if path := cfg.Metrics.Textfile; path != "" {
			a.closers = append(a.closers, func() error {
				return prometheus.WriteToTextfile(path, reg)
			})
		}
	}
	if cfg.Metrics.Tracing {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(a.errOut))
		if err != nil {
			return fmt.Errorf("create span exporter: %w", err)
		}
		provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		opts = append(opts, core.WithTracer(core.NewOTelTracer(provider)))
		a.closers = append(a.closers, func() error {
			return provider.Shutdown(context.WithoutCancel(ctx))
		})
	}
	if url := cfg.Events.NATSURL; url != "" {
		pub, err := natsevents.Connect(url,
			natsevents.WithSubjectPrefix(cfg.Events.SubjectPrefix),
			natsevents.WithLogger(a.logger.Named("events")),
		)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithAuditRecorder(pub))
		a.closers = append(a.closers, pub.Close)
	}

	a.svc = core.NewService(store, opts...)
	return nil
}

// close releases everything open acquired, newest first.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// action marks the start of a command body so exit codes can tell argument
// mistakes apart from operation failures.
func (a *app) action(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a.inRun = true
		return fn(cmd.Context(), cmd, args)
	}
}

func (a *app) archiver(ctx context.Context) (*archive.Archiver, error) {
	store, err := blob.Open(ctx, a.cfg.Blob())
	if err != nil {
		return nil, &systemError{err: fmt.Errorf("open archive: %w", err)}
	}
	return archive.New(store, a.svc,
		archive.WithLogger(a.logger.Named("archive")),
		archive.WithPrefix(a.cfg.Archive.Prefix),
	), nil
}

// emit prints v as JSON with --json, otherwise through the table writer.
func (a *app) emit(v any, table func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the learnloop version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoEnv: "true"},
		RunE: a.action(func(_ context.Context, _ *cobra.Command, _ []string) error {
			return a.emit(map[string]string{"version": version}, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "learnloop %s\n", version)
			})
		}),
	}
}
