package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/boardcrawl/internal/model"
)

// bannerWidth is the width of the rule printed around the elapsed line.
const bannerWidth = 75

// SimpleWriter prints the end-of-run banner:
//
//	###########################################################################
//	12 seconds elapsed(  14 requests,     45 players)
//	###########################################################################
//
// In verbose mode a block of run statistics follows.
type SimpleWriter struct {
	baseWriter

	// verbose adds the statistics block.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the statistics block.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the banner.
func (w *SimpleWriter) Write(s *model.RunSummary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(Banner(s))

	if w.verbose {
		w.writeStats(&sb, s)
	}
	return io.WriteString(w.output, sb.String())
}

// Banner returns the three banner lines with a trailing newline.
func Banner(s *model.RunSummary) string {
	rule := strings.Repeat("#", bannerWidth)
	return rule + "\n" + ElapsedLine(s) + "\n" + rule + "\n"
}

// ElapsedLine formats the elapsed seconds, request count and player count.
func ElapsedLine(s *model.RunSummary) string {
	secs := s.ElapsedSeconds()
	plural := "s"
	if secs == 1 {
		plural = ""
	}
	return fmt.Sprintf("%d second%s elapsed(%4d requests, %6d players)", secs, plural, s.Requests, s.Players)
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Run:            %s\n", s.ID)
	fmt.Fprintf(sb, "Mode:           %s (%d workers)\n", s.Mode, s.Workers)
	fmt.Fprintf(sb, "Pages:          %s of %s\n", humanize.Comma(s.PagesFetched), humanize.Comma(int64(s.Manifest.Pages())))
	fmt.Fprintf(sb, "Records:        %s advertised\n", humanize.Comma(int64(s.Manifest.TotalRecords)))
	fmt.Fprintf(sb, "Duplicates:     %s\n", humanize.Comma(s.Duplicates))
	fmt.Fprintf(sb, "Parse failures: %s\n", humanize.Comma(s.ParseFailures))
	if s.ExportFile != "" {
		fmt.Fprintf(sb, "Export:         %s\n", s.ExportFile)
	}
	if s.Aborted() {
		fmt.Fprintf(sb, "Status:         ABORTED - %s\n", s.Error)
	} else {
		sb.WriteString("Status:         Complete\n")
	}
}
