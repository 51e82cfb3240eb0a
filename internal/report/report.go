// Package report renders fetch results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apifetch/pkg/fetch"
	"github.com/charmbracelet/lipgloss"
)

// Options controls what a report includes.
type Options struct {
	Headers bool
	// Styled enables colors and indented JSON. It should only be set
	// when writing to a terminal.
	Styled bool
}

// Printer writes fetch reports to an io.Writer.
type Printer struct {
	w    io.Writer
	opts Options
}

// NewPrinter creates a new Printer.
func NewPrinter(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts}
}

func (p *Printer) paint(style lipgloss.Style, s string) string {
	if !p.opts.Styled {
		return s
	}
	return style.Render(s)
}

func (p *Printer) line(label, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(LabelStyle, label+":"), value)
}

// Title prints the endpoint heading used in batch runs.
func (p *Printer) Title(name, target string) {
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.paint(HighlightStyle, BulletPoint+" "+name),
		p.paint(DimStyle, ArrowRight),
		p.paint(DimStyle, target))
}

// Response prints a successful response. An optional selected value is
// printed after the payload, including a JSON null selection.
func (p *Printer) Response(resp *fetch.Response, selected ...any) error {
	p.line("Status Code", p.paint(SuccessStyle, fmt.Sprint(resp.StatusCode)))

	if p.opts.Headers {
		p.line("Headers", "")
		for _, h := range formatHeaders(resp) {
			fmt.Fprintf(p.w, "  %s\n", h)
		}
	}

	if !resp.Decoded {
		p.line("Content", resp.Text())
		return nil
	}

	data, err := p.marshal(resp.Payload)
	if err != nil {
		return err
	}
	p.line("JSON DATA", data)

	if len(selected) > 0 {
		data, err := p.marshal(selected[0])
		if err != nil {
			return err
		}
		p.line("Selected", p.paint(ValueStyle, data))
	}
	return nil
}

// Failure prints a failed fetch.
func (p *Printer) Failure(err error) {
	if code, ok := fetch.StatusCode(err); ok {
		p.line("Status Code", p.paint(ErrorStyle, fmt.Sprint(code)))
	}
	fmt.Fprintf(p.w, "%s\n", p.paint(ErrorStyle, CrossMark+" "+err.Error()))
}

// Skipped prints an endpoint that was not fetched.
func (p *Printer) Skipped(reason string) {
	fmt.Fprintf(p.w, "%s\n", p.paint(WarningStyle, SkipMark+" skipped: "+reason))
}

func (p *Printer) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)
	if p.opts.Styled {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

func formatHeaders(resp *fetch.Response) []string {
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+strings.Join(resp.Header[name], ", "))
	}
	return lines
}
