package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hashsearch/internal/candidate"
	"hashsearch/internal/pattern"
)

type spaceOptions struct {
	root     *rootOptions
	count    int
	random   bool
	seed     uint64
	alphabet string
	describe bool
}

func newSpaceCmd(root *rootOptions) *cobra.Command {
	o := &spaceOptions{root: root}
	cmd := &cobra.Command{
		Use:   "space PATTERN",
		Short: "Print the size of a pattern's candidate space and sample candidates",
		Example: `  hashsearch space '[a-z]{1,6}'
  hashsearch space --count 5 '(ab|cd)[0-9]{2}'
  hashsearch space --random --seed 7 --count 3 '[A-Z][a-z]{4}[0-9]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(args[0])
		},
	}
	cmd.Flags().IntVarP(&o.count, "count", "n", 0, "print this many candidates")
	cmd.Flags().BoolVar(&o.random, "random", false, "sample candidates at random instead of the first N")
	cmd.Flags().Uint64Var(&o.seed, "seed", 1, "random sampling seed")
	cmd.Flags().StringVar(&o.alphabet, "alphabet", "", "extra characters allowed in the pattern")
	cmd.Flags().BoolVar(&o.describe, "describe", false, "print the compiled segment structure")
	return cmd
}

func (o *spaceOptions) run(text string) error {
	p, err := pattern.Compile(text, pattern.WithAlphabet(o.alphabet))
	if err != nil {
		return usageError(err)
	}
	out := o.root.stdout

	fmt.Fprintf(out, "%s %s\n", cyan("size"), p.Size())
	if o.describe {
		fmt.Fprintf(out, "%s %s\n", cyan("segments"), p.Describe())
	}
	if o.count <= 0 {
		return nil
	}

	var stream candidate.Stream
	if o.random {
		stream = candidate.NewRandom(p, o.seed)
	} else {
		lex, err := candidate.NewLexicographic(p, candidate.Full(p))
		if err != nil {
			return err
		}
		stream = lex
	}
	for i := 0; i < o.count; i++ {
		c, ok := stream.Next()
		if !ok {
			break
		}
		fmt.Fprintln(out, c)
	}
	return nil
}
