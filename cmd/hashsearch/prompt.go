package main

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"

	"hashsearch/internal/digest"
	"hashsearch/internal/pattern"
)

// promptMissing asks for the hash and pattern when they were not given.
func promptMissing(f *taskFlags, algorithm, alphabet string) error {
	if !f.patternSet {
		p := promptui.Prompt{
			Label: "Pattern",
			Validate: func(input string) error {
				_, err := pattern.Compile(input, pattern.WithAlphabet(alphabet))
				return err
			},
		}
		value, err := p.Run()
		if err != nil {
			return promptError(err)
		}
		f.pattern = value
		f.patternSet = true
	}

	if f.hash == "" {
		alg, err := digest.Lookup(algorithm)
		if err != nil {
			return usageError(err)
		}
		p := promptui.Prompt{
			Label: "Target " + alg.Name + " digest",
			Validate: func(input string) error {
				_, err := digest.ParseTarget(input, alg)
				return err
			},
		}
		value, err := p.Run()
		if err != nil {
			return promptError(err)
		}
		f.hash = strings.TrimSpace(value)
	}
	return nil
}

func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return &ExitCodeError{Code: exitUsage, Err: errors.New("input cancelled")}
	}
	return err
}
