package main

import (
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/fatih/color"

	"hashsearch/internal/search"
	"hashsearch/internal/server"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// linePrinter is the non-interactive sink: one line per event.
type linePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func newLinePrinter(out io.Writer) *linePrinter {
	return &linePrinter{out: out}
}

func (p *linePrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *linePrinter) OnProgress(pr search.Progress) {
	p.printf("%s %-24q %12s  total %s\n", gray(fmt.Sprintf("[w%d]", pr.WorkerID)), pr.Candidate, formatRate(pr.Rate), pr.Cumulative)
}

func (p *linePrinter) OnMatchFound(workerID int, candidate string) {
	p.printf("%s %q (worker %d)\n", green(bold("plaintext found:")), candidate, workerID)
}

func (p *linePrinter) OnWorkerStopped(workerID int, matched bool) {
	if matched {
		p.printf("%s %s\n", gray(fmt.Sprintf("[w%d]", workerID)), green("stopped with match"))
		return
	}
	p.printf("%s %s\n", gray(fmt.Sprintf("[w%d]", workerID)), gray("stopped"))
}

func printHeader(out io.Writer, info server.TaskInfo) {
	fmt.Fprintf(out, "%s %s  %s %s  %s %s  %s %d  %s %s\n",
		cyan("task"), info.ID,
		cyan("algorithm"), info.Algorithm,
		cyan("mode"), info.Mode,
		cyan("workers"), info.Workers,
		cyan("space"), info.SpaceSize)
	fmt.Fprintf(out, "%s %s\n", cyan("pattern"), info.Pattern)
	if info.Seed != 0 {
		fmt.Fprintf(out, "%s %d\n", cyan("seed"), info.Seed)
	}
}

func printResult(out io.Writer, res search.Result) {
	switch {
	case res.Matched:
		fmt.Fprintf(out, "%s %s\n", green(bold("plaintext found:")), res.Candidate)
	case res.Exhausted:
		fmt.Fprintf(out, "%s\n", yellow("search space exhausted without a match"))
	default:
		fmt.Fprintf(out, "%s\n", red("search stopped without a match"))
	}
	fmt.Fprintf(out, "%s %s candidates in %s (%s)\n", gray("tried"), res.Total, res.Elapsed.Round(time.Millisecond), formatRate(rateOf(res)))
}

func rateOf(res search.Result) float64 {
	secs := res.Elapsed.Seconds()
	if secs <= 0 || res.Total == nil {
		return 0
	}
	total, _ := new(big.Float).SetInt(res.Total).Float64()
	return total / secs
}

// formatRate renders candidates per second with a metric suffix.
func formatRate(rate float64) string {
	switch {
	case rate >= 1e9:
		return fmt.Sprintf("%.2fG/s", rate/1e9)
	case rate >= 1e6:
		return fmt.Sprintf("%.2fM/s", rate/1e6)
	case rate >= 1e3:
		return fmt.Sprintf("%.2fk/s", rate/1e3)
	default:
		return fmt.Sprintf("%.0f/s", rate)
	}
}
