// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textgen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const helpText = `Commands:
  /generate <prompt>  - Generate text
  /query <term>       - Query knowledge base
  /knowledge          - Show knowledge stats
  /config             - Show configuration
  /save-config        - Save current config
  /help               - Show this help
  /quit               - Exit`

// REPL is the interactive text-generation session.
type REPL struct {
	gen *Generator
	in  io.Reader
	out io.Writer
}

// NewREPL builds an interactive session reading commands from in and
// writing to out.
func NewREPL(gen *Generator, in io.Reader, out io.Writer) *REPL {
	return &REPL{gen: gen, in: in, out: out}
}

// Run processes commands until /quit, EOF, or context cancellation.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, bannerStyle.Render("brainsim interactive text generation"))
	fmt.Fprintln(r.out, helpText)

	scanner := bufio.NewScanner(r.in)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(r.out, promptStyle.Render("brainsim> ")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}
		r.dispatch(ctx, line)
	}
}

func (r *REPL) dispatch(ctx context.Context, line string) {
	switch {
	case strings.HasPrefix(line, "/generate"):
		prompt := strings.TrimSpace(strings.TrimPrefix(line, "/generate"))
		if prompt == "" {
			fmt.Fprintln(r.out, errorStyle.Render("Please provide a prompt"))
			return
		}
		r.generate(ctx, prompt)

	case strings.HasPrefix(line, "/query"):
		term := strings.TrimSpace(strings.TrimPrefix(line, "/query"))
		if term == "" {
			fmt.Fprintln(r.out, errorStyle.Render("Please provide a query"))
			return
		}
		fmt.Fprintln(r.out, "Knowledge results:")
		for _, res := range r.gen.Query(term) {
			fmt.Fprintf(r.out, "  %s\n", res)
		}

	case line == "/knowledge":
		stats := r.gen.KnowledgeStats()
		fmt.Fprintf(r.out, "Knowledge base: %d things, %d relationships\n",
			stats.Things, stats.Relationships)

	case line == "/config":
		text, err := r.gen.cfg.JSON()
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
			return
		}
		fmt.Fprintln(r.out, "Current configuration:")
		fmt.Fprintln(r.out, text)

	case line == "/save-config":
		if err := r.gen.cfg.Save(); err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
			return
		}
		fmt.Fprintf(r.out, "Configuration saved to: %s\n", r.gen.cfg.Path())

	case line == "/help":
		fmt.Fprintln(r.out, helpText)

	default:
		// Bare input is a generation prompt.
		r.generate(ctx, line)
	}
}

func (r *REPL) generate(ctx context.Context, prompt string) {
	fmt.Fprintf(r.out, "Generating text for: %s\n", prompt)
	res, err := r.gen.Generate(ctx, prompt, 0)
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, resultStyle.Render("Generated: "+res.GeneratedText))
}
