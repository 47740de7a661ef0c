// Package ui renders lineage results for the terminal: status lines on
// stderr, tables and trees on stdout, or indented JSON when requested.
package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Status icons.
const (
	iconOK   = "✓"
	iconFail = "✗"
	iconWarn = "⚠"
	iconInfo = "·"
)

// styles groups the lipgloss styles bound to one renderer.
type styles struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
	value   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	accent  lipgloss.Style
	boldRow lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	primary := lipgloss.Color("#00BFFF")
	return styles{
		title:   r.NewStyle().Foreground(primary).Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#00E676")).Bold(true),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#FF5252")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		value:   r.NewStyle().Foreground(lipgloss.Color("#EEEEEE")),
		header:  r.NewStyle().Foreground(primary).Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(lipgloss.Color("#636363")),
		accent:  r.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		boldRow: r.NewStyle().Padding(0, 1).Bold(true),
	}
}

// Printer writes results to out and status lines to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	json   bool
	st     styles
}

// New creates a Printer. Colors follow each writer's terminal profile, so
// output piped to a file or buffer is plain text. When asJSON is set,
// result methods emit JSON instead of tables.
func New(out, errOut io.Writer, asJSON bool) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		json:   asJSON,
		st:     newStyles(lipgloss.NewRenderer(out)),
	}
}

// JSONMode reports whether results are emitted as JSON.
func (p *Printer) JSONMode() bool {
	return p.json
}

// Title prints a heading line.
func (p *Printer) Title(text string) {
	if p.json {
		return
	}
	fmt.Fprintln(p.out, p.st.title.Render(text))
}

// Success prints a status line with a check mark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.errOut, p.st.ok.Render(iconOK)+" "+fmt.Sprintf(format, args...))
}

// Warn prints a warning status line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.errOut, p.st.warn.Render(iconWarn)+" "+fmt.Sprintf(format, args...))
}

// Error prints an error status line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.errOut, p.st.fail.Render(iconFail+" error:")+" "+msg)
}

// Info prints a de-emphasized status line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.errOut, p.st.muted.Render(iconInfo+" "+fmt.Sprintf(format, args...)))
}

// KeyValue prints "key: value" pairs in order. In JSON mode the pairs are
// emitted as one object.
func (p *Printer) KeyValue(pairs ...[2]string) error {
	if p.json {
		obj := make(map[string]string, len(pairs))
		for _, kv := range pairs {
			obj[kv[0]] = kv[1]
		}
		return p.JSON(obj)
	}
	width := 0
	for _, kv := range pairs {
		width = max(width, len(kv[0]))
	}
	for _, kv := range pairs {
		key := fmt.Sprintf("%-*s", width+1, kv[0]+":")
		fmt.Fprintln(p.out, p.st.muted.Render(key)+" "+p.st.value.Render(kv[1]))
	}
	return nil
}

// Lines prints one item per line, or a JSON array in JSON mode.
func (p *Printer) Lines(items []string) error {
	if p.json {
		if items == nil {
			items = []string{}
		}
		return p.JSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(p.out, p.st.muted.Render("(none)"))
		return nil
	}
	for _, it := range items {
		fmt.Fprintln(p.out, it)
	}
	return nil
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("ui: encode json: %w", err)
	}
	return nil
}
