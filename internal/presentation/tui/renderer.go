package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// stateColors groups states by how alarming they are.
var stateColors = map[domain.State]string{
	domain.StateValid:              "#22c55e",
	domain.StateActual:             "#facc15",
	domain.StateNotYet:             "#94a3b8",
	domain.StateSkipped:            "#64748b",
	domain.StateComputed:           "#818cf8",
	domain.StateOptionalUnanswered: "#94a3b8",
}

const problemColor = "#ef4444"

var summaryColors = map[domain.Summary]string{
	domain.SummaryOK:         "#22c55e",
	domain.SummaryIncomplete: "#facc15",
	domain.SummaryEmpty:      "#94a3b8",
	domain.SummaryProblems:   problemColor,
}

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", fmt.Errorf("markdown renderer unavailable: %w", err)
		}
		return r.Render(markdown)
	}
}

// RenderText formats a result as an aligned table, one variable per line.
// Colour is applied only when colour is true.
func RenderText(res *domain.Result, colour bool) string {
	p := termenv.Ascii
	if colour {
		p = termenv.ColorProfile()
	}

	width := len("variable")
	for _, name := range res.Order {
		width = max(width, len(name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-*s  %-28s  %s\n", width, "variable", "state", "next")
	for _, name := range res.Order {
		state, _ := res.StateOf(name)
		next := res.NextOf(name)
		if next == "" {
			next = "-"
		}

		marker := " "
		if name == res.Current {
			marker = ">"
		}

		cell := p.String(fmt.Sprintf("%-28s", state)).Foreground(p.Color(colorOf(state)))
		fmt.Fprintf(&sb, "%-*s %s%s  %s\n", width, name, marker, cell, next)
	}

	summary := p.String(string(res.Summary)).Foreground(p.Color(summaryColors[res.Summary])).Bold()
	fmt.Fprintf(&sb, "\nsummary: %s\n", summary)
	if res.Current != "" {
		fmt.Fprintf(&sb, "current: %s\n", res.Current)
	}
	if res.FirstFailure != "" {
		fmt.Fprintf(&sb, "first failure: %s\n", res.FirstFailure)
	}
	for _, name := range res.Order {
		if v, ok := res.AutoFilled[name]; ok {
			fmt.Fprintf(&sb, "suggested %s = %v\n", name, v)
		}
	}
	return sb.String()
}

func colorOf(state domain.State) string {
	if state.IsProblem() {
		return problemColor
	}
	if c, ok := stateColors[state]; ok {
		return c
	}
	return "#ffffff"
}

// MarkdownReport formats a result as a markdown document.
func MarkdownReport(res *domain.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Row: %s\n\n", res.Summary)

	if res.Current != "" {
		fmt.Fprintf(&sb, "Asking **%s**.", res.Current)
	} else {
		sb.WriteString("Nothing left to ask.")
	}
	if res.FirstFailure != "" {
		fmt.Fprintf(&sb, " First problem at **%s**.", res.FirstFailure)
	}
	sb.WriteString("\n\n| Variable | State | Next |\n|---|---|---|\n")

	for _, name := range res.Order {
		state, _ := res.StateOf(name)
		next := res.NextOf(name)
		if next == "" {
			next = "-"
		}
		if name == res.Current {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&sb, "| %s | `%s` | %s |\n", name, state, next)
	}

	if len(res.AutoFilled) > 0 {
		sb.WriteString("\n## Suggested values\n\n")
		for _, name := range res.Order {
			if v, ok := res.AutoFilled[name]; ok {
				fmt.Fprintf(&sb, "- %s: `%v`\n", name, v)
			}
		}
	}
	return sb.String()
}

// RenderMarkdown renders the markdown report for the terminal.
func RenderMarkdown(res *domain.Result) (string, error) {
	return NewRenderer()(MarkdownReport(res))
}
