package main

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"hashsearch/internal/config"
	"hashsearch/internal/search"
)

// taskFlags are the search settings shared by search and serve.
type taskFlags struct {
	hash       string
	pattern    string
	patternSet bool
	algorithm  string
	workers    int
	random     bool
	interval   time.Duration
	seed       uint64
	dedup      int
	alphabet   string
	timeout    time.Duration
}

// taskFlagKeys binds flags to their config keys. Only flags the user set
// override the file and environment.
var taskFlagKeys = map[string]string{
	"algorithm": "search.algorithm",
	"workers":   "search.workers",
	"interval":  "search.interval",
	"seed":      "search.seed",
	"dedup":     "search.dedup",
	"alphabet":  "search.alphabet",
	"timeout":   "search.timeout",
}

func (f *taskFlags) register(fs *pflag.FlagSet) {
	d := config.Defaults().Search
	fs.StringVar(&f.hash, "hash", "", "target digest in hex")
	fs.StringVarP(&f.pattern, "pattern", "p", "", "pattern describing the candidate space")
	fs.StringVarP(&f.algorithm, "algorithm", "a", d.Algorithm, "hash algorithm (see 'hashsearch algorithms')")
	fs.IntVarP(&f.workers, "workers", "w", d.Workers, "number of workers (0 = number of CPUs)")
	fs.BoolVar(&f.random, "random", false, "sample candidates at random instead of enumerating")
	fs.DurationVar(&f.interval, "interval", d.Interval, "minimum time between progress reports per worker")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "random mode seed (0 = random)")
	fs.IntVar(&f.dedup, "dedup", d.Dedup, "random mode: skip candidates seen in the last N draws")
	fs.StringVar(&f.alphabet, "alphabet", d.Alphabet, "extra characters allowed in patterns")
	fs.DurationVar(&f.timeout, "timeout", d.Timeout, "stop the search after this long (0 = no limit)")
}

// parsed records which inputs were given explicitly. The empty pattern is
// valid, so presence is decided by the flag and not by its value.
func (f *taskFlags) parsed(fs *pflag.FlagSet) {
	f.patternSet = fs.Changed("pattern")
}

// taskConfig merges the parsed flags with the resolved configuration. The
// hash and pattern come from flags or prompts only.
func (f *taskFlags) taskConfig(cfg config.SearchConfig) (search.Config, error) {
	if f.hash == "" {
		return search.Config{}, &ExitCodeError{Code: exitUsage, Err: errors.New("--hash is required")}
	}
	if !f.patternSet {
		return search.Config{}, &ExitCodeError{Code: exitUsage, Err: errors.New("--pattern is required")}
	}

	mode, err := search.ParseMode(cfg.Mode)
	if err != nil {
		return search.Config{}, usageError(err)
	}
	if f.random {
		mode = search.ModeRandom
	}

	return search.Config{
		Target:         f.hash,
		Algorithm:      cfg.Algorithm,
		Pattern:        f.pattern,
		Alphabet:       cfg.Alphabet,
		Workers:        cfg.Workers,
		Mode:           mode,
		ReportInterval: cfg.Interval,
		Seed:           cfg.Seed,
		DedupWindow:    cfg.Dedup,
	}, nil
}
