package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hashsearch/internal/search"
	"hashsearch/internal/server"
)

type serveOptions struct {
	root         *rootOptions
	flags        taskFlags
	addr         string
	exitOnFinish bool
}

var serveFlagKeys = func() map[string]string {
	keys := map[string]string{"addr": "server.addr"}
	for k, v := range taskFlagKeys {
		keys[k] = v
	}
	return keys
}()

func newServeCmd(root *rootOptions) *cobra.Command {
	o := &serveOptions{root: root}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a search behind an HTTP and WebSocket control surface",
		Long: `Serve runs one search task and exposes it over HTTP:

  GET  /api/health     liveness
  GET  /api/status     task, per-worker counters and result
  POST /api/pause      pause every worker
  POST /api/resume     resume every worker
  POST /api/stop       stop every worker
  PUT  /api/interval   {"interval":"250ms"}
  GET  /api/stream     WebSocket of progress, match and stopped events
  GET  /metrics        Prometheus metrics

The server keeps running after the task finishes until interrupted, unless
--exit-on-finish is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}
	o.flags.register(cmd.Flags())
	cmd.Flags().StringVar(&o.addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&o.exitOnFinish, "exit-on-finish", false, "shut the server down once the task finishes")
	return cmd
}

func (o *serveOptions) run(cmd *cobra.Command) error {
	o.flags.parsed(cmd.Flags())
	c, err := buildContainer(o.root, cmd.Flags(), serveFlagKeys, o.root.stderr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Cleanup() }()

	cfg, err := o.flags.taskConfig(c.Config.Search)
	if err != nil {
		return err
	}

	srvCfg := c.Config.Server
	srv := server.New(server.Config{
		Addr:            srvCfg.Addr,
		AllowOrigins:    srvCfg.AllowOrigins,
		ShutdownTimeout: srvCfg.ShutdownTimeout,
		Debug:           srvCfg.Debug,
		Version:         appVersion(),
	}, c.ComponentLogger("server"), c.Tracing.Tracer())

	task, err := search.NewTask(cfg, search.Dependencies{
		Sink:    srv,
		Logger:  c.ComponentLogger("search"),
		Metrics: c.SearchMetrics,
		Tracer:  c.Tracing.Tracer(),
	})
	if err != nil {
		return usageError(err)
	}
	info := taskInfo(task)
	srv.Attach(task, info)
	printHeader(o.root.stdout, info)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()

	if timeout := c.Config.Search.Timeout; timeout > 0 {
		timer := time.AfterFunc(timeout, task.StopAll)
		defer timer.Stop()
	}

	var res search.Result
	g := new(errgroup.Group)
	g.Go(func() error {
		err := srv.Run(serveCtx)
		if err != nil {
			task.StopAll()
		}
		return err
	})
	g.Go(func() error {
		c.Metrics.IncrementActiveTasks(ctx)
		defer c.Metrics.DecrementActiveTasks(context.Background())

		var err error
		res, err = task.Run(ctx)
		c.Metrics.RecordTaskRun(context.Background(), info.Algorithm, info.Mode, res.Outcome(), res.Elapsed, res.Total)
		if err != nil {
			cancelServe()
			return err
		}
		srv.Finish(res)
		printResult(o.root.stdout, res)
		if o.exitOnFinish {
			cancelServe()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if !res.Matched {
		return &ExitCodeError{Code: exitNoMatch}
	}
	return nil
}
