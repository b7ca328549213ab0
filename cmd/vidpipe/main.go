// Command vidpipe lexes, parses, and compiles a pipeline program, then runs
// it to completion against a Supervisor — the construction/wiring layer the
// rest of the module otherwise only exposes as a library.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vidpipe/vidpipe/builtins"
	"github.com/vidpipe/vidpipe/config"
	"github.com/vidpipe/vidpipe/di"
	"github.com/vidpipe/vidpipe/graph"
	"github.com/vidpipe/vidpipe/lang"
	"github.com/vidpipe/vidpipe/logger"
	"github.com/vidpipe/vidpipe/observability"
	"github.com/vidpipe/vidpipe/registry"
	"github.com/vidpipe/vidpipe/runtime"
)

func main() {
	programPath := flag.String("program", "", "path to a pipeline program source file (required)")
	configPath := flag.String("config", "", "path to a YAML config file (optional; viper's search path applies if omitted)")
	tracing := flag.Bool("tracing", false, "initialize the OpenTelemetry tracer/meter against the configured OTLP endpoint")
	flag.Parse()

	if *programPath == "" {
		fmt.Fprintln(os.Stderr, "vidpipe: -program is required")
		os.Exit(2)
	}

	if err := run(*programPath, *configPath, *tracing); err != nil {
		logger.Error("vidpipe exited with error", logger.Fields("error", err.Error()))
		os.Exit(1)
	}
}

// run wires config -> registry -> compiled graph -> supervisor through a
// di.Container (rather than constructing them inline) so each piece is
// independently resolvable and replaceable the way the container's
// Register/Resolve contract promises.
func run(programPath, configPath string, tracing bool) error {
	src, err := os.ReadFile(programPath)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}

	container := di.NewContainer()
	defer container.Close()

	var loaderOpts []config.LoaderOption
	if configPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(configPath))
	}
	if err := container.RegisterEager(di.Vidpipe.Config, func() (*config.VidpipeConfig, error) {
		return config.LoadVidpipeConfig("vidpipe", loaderOpts...)
	}); err != nil {
		return err
	}
	cfg, err := di.Resolve[*config.VidpipeConfig](container, di.Vidpipe.Config)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(logger.New(&cfg.Logging, cfg.Base.Name))

	if err := container.RegisterEager(di.Vidpipe.Registry, func() (*registry.Registry, error) {
		reg := registry.New()
		if err := builtins.Register(reg); err != nil {
			return nil, err
		}
		return reg, nil
	}); err != nil {
		return err
	}
	reg, err := di.Resolve[*registry.Registry](container, di.Vidpipe.Registry)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	if tracing {
		ctx := context.Background()
		tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig(cfg.Base.Name))
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer tp.Shutdown(ctx)

		meterCfg := observability.DefaultMeterConfig(cfg.Base.Name)
		mp, err := observability.InitMeter(ctx, &meterCfg)
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		defer mp.Shutdown(ctx)

		metrics, err = observability.NewMetrics(observability.Meter(cfg.Base.Name))
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	tokens, err := lang.Lex(string(src))
	if err != nil {
		return err
	}
	prog, err := lang.Parse(tokens)
	if err != nil {
		return err
	}
	g, err := graph.Compile(prog, reg)
	if err != nil {
		return err
	}

	if err := container.RegisterEager(di.Vidpipe.Supervisor, func() (*runtime.Supervisor, error) {
		var opts []runtime.SupervisorOption
		if metrics != nil {
			opts = append(opts, runtime.WithMetrics(metrics))
		}
		return runtime.NewSupervisor(g, reg, cfg.Runtime, opts...), nil
	}); err != nil {
		return err
	}
	sup, err := di.Resolve[*runtime.Supervisor](container, di.Vidpipe.Supervisor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan runtime.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			logger.Info("event", logger.Fields("node_id", string(ev.NodeID), "kind", string(ev.Kind), "detail", ev.Detail))
		}
	}()

	report, runErr := sup.Run(ctx, events)
	close(events)
	<-done

	logger.Info("run finished", logger.Fields("status", report.Status.String(), "reason", report.Reason))
	return runErr
}
