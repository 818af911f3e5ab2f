package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hashsearch/internal/digest"
)

func newAlgorithmsCmd(root *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:     "algorithms",
		Aliases: []string{"algs"},
		Short:   "List supported hash algorithms",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := algorithmsMarkdown()
			if plain || !writerIsTerminal(root.stdout) {
				_, err := fmt.Fprint(root.stdout, algorithmsPlain())
				return err
			}
			rendered, err := renderMarkdown(table)
			if err != nil {
				_, err = fmt.Fprint(root.stdout, algorithmsPlain())
				return err
			}
			_, err = fmt.Fprint(root.stdout, rendered)
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print a plain list even on a terminal")
	return cmd
}

func algorithmsMarkdown() string {
	var b strings.Builder
	b.WriteString("# Supported algorithms\n\n")
	b.WriteString("| Algorithm | Digest bytes | Hex length |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, alg := range digest.All() {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", alg.Name, alg.Size, alg.Size*2)
	}
	b.WriteString("\nNames match case-insensitively; `-` and `_` are ignored (`sha3_256` = `SHA3-256`).\n")
	return b.String()
}

func algorithmsPlain() string {
	var b strings.Builder
	for _, alg := range digest.All() {
		fmt.Fprintf(&b, "%-12s %3d bytes\n", alg.Name, alg.Size)
	}
	return b.String()
}

// renderMarkdown renders content for the current terminal width.
func renderMarkdown(content string) (string, error) {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = min(w-4, 120)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render(content)
}
