package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/devinsight/devrag/internal/index"
	"github.com/devinsight/devrag/internal/store"
	"github.com/devinsight/devrag/internal/telemetry"
)

// snippetLimit bounds how much chunk text a result row shows.
const snippetLimit = 200

// Printer renders command results to a writer.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer for out. Styling is enabled only when
// out is a terminal and noColor is false.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	styled := false
	if f, ok := out.(*os.File); ok && !noColor {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{out: out, styles: GetStyles(!styled)}
}

// PrintBuildSummary renders the result of an index build.
func (p *Printer) PrintBuildSummary(summary *index.BuildSummary) {
	s := p.styles
	fmt.Fprintln(p.out, s.Header.Render("Index built"))
	fmt.Fprintf(p.out, "  %s %d\n", s.Label.Render("sources:"), summary.SourceCount)
	fmt.Fprintf(p.out, "  %s %d\n", s.Label.Render("chunks:"), summary.ChunkCount)
	fmt.Fprintf(p.out, "  %s %s (dim %d)\n", s.Label.Render("embedder:"), summary.EmbedderID, summary.Dimension)
	fmt.Fprintf(p.out, "  %s %s\n", s.Label.Render("duration:"), summary.Duration.Round(time.Millisecond))

	if len(summary.Warnings) > 0 {
		fmt.Fprintf(p.out, "  %s\n", s.Warning.Render(fmt.Sprintf("%d item(s) skipped:", len(summary.Warnings))))
		for _, w := range summary.Warnings {
			fmt.Fprintf(p.out, "    %s\n", s.Dim.Render(w))
		}
	}
}

// PrintResults renders query hits, best first.
func (p *Printer) PrintResults(results []store.Result) {
	s := p.styles
	if len(results) == 0 {
		fmt.Fprintln(p.out, s.Dim.Render("no results"))
		return
	}

	for i, r := range results {
		origin := ""
		if r.Chunk.Origin != "" {
			origin = string(r.Chunk.Origin)
		}
		fmt.Fprintf(p.out, "%s %s %s %s\n",
			s.Score.Render(fmt.Sprintf("%d. [%.3f]", i+1, r.Score)),
			s.Path.Render(r.Chunk.SourcePath),
			s.Dim.Render(fmt.Sprintf("#%d", r.Chunk.Position)),
			s.Label.Render(origin))
		fmt.Fprintf(p.out, "   %s\n", snippet(r.Chunk.Text))
	}
}

// PrintDescription renders index status.
func (p *Printer) PrintDescription(desc index.Description) {
	s := p.styles
	fmt.Fprintln(p.out, s.Header.Render("Index"))
	fmt.Fprintf(p.out, "  %s %s\n", s.Label.Render("embedder:"), desc.EmbedderID)
	fmt.Fprintf(p.out, "  %s %d\n", s.Label.Render("dimension:"), desc.Dimension)
	fmt.Fprintf(p.out, "  %s %d\n", s.Label.Render("chunks:"), desc.ChunkCount)
	fmt.Fprintf(p.out, "  %s %s (%s ago)\n", s.Label.Render("built:"),
		desc.BuiltAt.Local().Format(time.RFC1123), age(time.Since(desc.BuiltAt)))
}

// age renders a duration at day/hour/minute granularity.
func age(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}

// PrintMetrics renders a telemetry snapshot.
func (p *Printer) PrintMetrics(snap telemetry.Snapshot) {
	s := p.styles
	fmt.Fprintln(p.out, s.Header.Render("Metrics"))
	fmt.Fprintf(p.out, "  %s %d\n", s.Label.Render("queries:"), snap.QueryCount)
	fmt.Fprintf(p.out, "  %s %d (%.1f%%)\n", s.Label.Render("zero-result:"),
		snap.ZeroResultCount, snap.ZeroResultPercentage())
	fmt.Fprintf(p.out, "  %s %d\n", s.Label.Render("builds:"), snap.BuildCount)
}

// Errorf renders an error line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Warnf renders a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Successf renders a success line.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// snippet collapses chunk text to a single bounded line.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > snippetLimit {
		cut := snippetLimit
		for cut > 0 && text[cut]&0xC0 == 0x80 {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}
