package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hashsearch/internal/search"
	"hashsearch/internal/server"
)

type searchOptions struct {
	root  *rootOptions
	flags taskFlags
	noTUI bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	o := &searchOptions{root: root}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a pattern's candidates for a plaintext matching a digest",
		Long: `Search hashes candidates drawn from a pattern until one matches the target
digest. Exit status is 0 on a match, 1 when the space is exhausted or the
search is stopped, 2 on invalid input or configuration, and 3 on any other
failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}
	o.flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&o.noTUI, "no-tui", false, "print progress lines instead of the interactive table")
	return cmd
}

func (o *searchOptions) run(cmd *cobra.Command) error {
	o.flags.parsed(cmd.Flags())
	interactive := isTTY()
	useTUI := interactive && !o.noTUI

	var logOut io.Writer = o.root.stderr
	if useTUI {
		logOut = io.Discard
	}
	c, err := buildContainer(o.root, cmd.Flags(), taskFlagKeys, logOut)
	if err != nil {
		return err
	}
	defer func() { _ = c.Cleanup() }()

	if interactive {
		if err := promptMissing(&o.flags, c.Config.Search.Algorithm, c.Config.Search.Alphabet); err != nil {
			return err
		}
	}
	cfg, err := o.flags.taskConfig(c.Config.Search)
	if err != nil {
		return err
	}

	b := newBoard()
	var sink search.Sink = search.MultiSink{b, newLinePrinter(o.root.stdout)}
	if useTUI {
		sink = b
	}

	task, err := search.NewTask(cfg, search.Dependencies{
		Sink:    sink,
		Logger:  c.ComponentLogger("search"),
		Metrics: c.SearchMetrics,
		Tracer:  c.Tracing.Tracer(),
	})
	if err != nil {
		return usageError(err)
	}
	info := taskInfo(task)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Config.Search.Timeout; timeout > 0 {
		timer := time.AfterFunc(timeout, task.StopAll)
		defer timer.Stop()
	}

	c.Metrics.IncrementActiveTasks(ctx)
	run := func() (search.Result, error) { return task.Run(ctx) }

	var res search.Result
	if useTUI {
		res, err = runTUI(c.ComponentLogger("tui"), task, b, info, run)
	} else {
		printHeader(o.root.stdout, info)
		res, err = run()
	}
	c.Metrics.DecrementActiveTasks(context.Background())
	c.Metrics.RecordTaskRun(context.Background(), info.Algorithm, info.Mode, res.Outcome(), res.Elapsed, res.Total)
	if err != nil {
		return err
	}

	printResult(o.root.stdout, res)
	if !res.Matched {
		return &ExitCodeError{Code: exitNoMatch}
	}
	return nil
}

func taskInfo(task *search.Task) server.TaskInfo {
	info := server.TaskInfo{
		ID:        task.ID(),
		Algorithm: task.Algorithm().Name,
		Pattern:   task.Pattern().String(),
		Mode:      task.Mode().String(),
		Workers:   task.WorkerCount(),
		SpaceSize: task.Pattern().Size(),
	}
	if task.Mode() == search.ModeRandom {
		info.Seed = task.Seed()
	}
	return info
}
