package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	logFile    string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "hashsearch",
		Short: "Recover a plaintext from its hash by searching a pattern's candidates",
		Long: `hashsearch compiles a small pattern language into a space of candidate
strings and races a pool of workers over it, hashing each candidate until one
matches the target digest.

Examples:
  hashsearch search --hash 900150983cd24fb0d6963f7d28e17f72 --pattern '[a-z]{3}'
  hashsearch search --algorithm sha256 --random --pattern '(admin|root)[0-9]{1,4}' --hash ...
  hashsearch serve --addr 127.0.0.1:8080 --hash ... --pattern ...
  hashsearch space --count 10 '(ab|cd)[0-9]{2}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitCodeError{Code: exitUsage, Err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default: ./hashsearch.yaml or ~/.hashsearch/hashsearch.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&opts.logFile, "log-file", "", "append logs to this file")

	root.AddCommand(
		newSearchCmd(opts),
		newServeCmd(opts),
		newSpaceCmd(opts),
		newAlgorithmsCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hashsearch version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(opts.stdout, "hashsearch "+appVersion()+"\n")
			return err
		},
	}
}

// isTTY reports whether both stdin and stdout are terminals.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// writerIsTerminal reports whether w is a terminal file.
func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
