package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/pairplot/pkg/model"
)

// recordMarkdown renders a record as markdown for the preview pane.
func recordMarkdown(r model.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Record %d\n\n", r.Index)
	sb.WriteString("### Instruction\n\n")
	sb.WriteString(quote(r.Instruction))
	if strings.TrimSpace(r.Input) != "" {
		sb.WriteString("\n### Input\n\n")
		sb.WriteString(quote(r.Input))
	}
	sb.WriteString("\n### Output\n\n")
	sb.WriteString(quote(r.Output))
	fmt.Fprintf(&sb, "\n| | x | y | words | avg len |\n|---|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| instruction | %s | %s | %d | %s |\n",
		formatFloat(r.InstructionX), formatFloat(r.InstructionY), r.InstructionWordCount, formatFloat(r.InstructionAvgWordLen))
	fmt.Fprintf(&sb, "| output | %s | %s | %d | %s |\n",
		formatFloat(r.OutputX), formatFloat(r.OutputY), r.OutputWordCount, formatFloat(r.OutputAvgWordLen))
	return sb.String()
}

func quote(s string) string {
	if strings.TrimSpace(s) == "" {
		return "_empty_\n"
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// Preview renders records through glamour, caching the renderer per width.
type Preview struct {
	renderer *glamour.TermRenderer
	width    int
}

// Render returns the styled markdown for r. On renderer failure the raw
// markdown is returned.
func (p *Preview) Render(r model.Record, width int) string {
	md := recordMarkdown(r)
	width = max(width, 20)
	if p.renderer == nil || p.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		p.renderer, p.width = renderer, width
	}
	out, err := p.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
