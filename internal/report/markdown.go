package report

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/boardcrawl/internal/model"
)

// MarkdownWriter outputs a run report in Markdown.
type MarkdownWriter struct {
	baseWriter

	// players, when set, adds a table of the top ranked players.
	players map[string]model.PlayerRecord

	// top is the number of players listed.
	top int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTopPlayers lists up to n players ordered by rank.
func WithTopPlayers(players map[string]model.PlayerRecord, n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.players = players
		w.top = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report.
func (w *MarkdownWriter) Write(s *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeStatus(md, s)
	w.writeRows(md, s)
	w.writeTopPlayers(md)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	md.H1("Leaderboard Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.ID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
			{"Mode", s.Mode},
			{"Workers", strconv.Itoa(s.Workers)},
			{"Requests", humanize.Comma(s.Requests)},
			{"Pages", humanize.Comma(s.PagesFetched) + " / " + humanize.Comma(int64(s.Manifest.Pages()))},
			{"Advertised records", humanize.Comma(int64(s.Manifest.TotalRecords))},
			{"Players", humanize.Comma(int64(s.Players))},
			{"Export", exportText(s)},
		},
	})
	md.PlainText("")
}

func exportText(s *model.RunSummary) string {
	if s.ExportFile == "" {
		return "-"
	}
	return "`" + s.ExportFile + "`"
}

func (w *MarkdownWriter) writeStatus(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Status")
	md.PlainText("")

	switch {
	case s.Aborted():
		md.Cautionf("The crawl aborted after %s requests: %s", humanize.Comma(s.Requests), s.Error)
	case s.Manifest.TotalRecords > 0 && s.Players < s.Manifest.TotalRecords:
		md.Warningf("Collected %s of %s advertised players. The leaderboard shifted during the crawl.",
			humanize.Comma(int64(s.Players)), humanize.Comma(int64(s.Manifest.TotalRecords)))
	default:
		md.Tip("Complete.")
	}
	md.PlainText("")
}

// writeRows breaks down what happened to every parsed row.
func (w *MarkdownWriter) writeRows(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Rows")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Unique players", humanize.Comma(int64(s.Players))},
			{"Duplicates", humanize.Comma(s.Duplicates)},
			{"Parse failures", humanize.Comma(s.ParseFailures)},
		},
	})
	md.PlainText("")

	if s.Players == 0 && s.Duplicates == 0 && s.ParseFailures == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Row outcomes"),
		piechart.WithShowData(true),
	)
	if s.Players > 0 {
		chart.LabelAndIntValue("Unique", uint64(s.Players))
	}
	if s.Duplicates > 0 {
		chart.LabelAndIntValue("Duplicate", uint64(s.Duplicates))
	}
	if s.ParseFailures > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.ParseFailures))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeTopPlayers(md *markdown.Markdown) {
	if len(w.players) == 0 || w.top <= 0 {
		return
	}

	md.H2("Top Players")
	md.PlainText("")

	ranked := RankedPlayers(w.players)
	if len(ranked) > w.top {
		ranked = ranked[:w.top]
	}

	rows := make([][]string, len(ranked))
	for i, p := range ranked {
		rows[i] = append([]string{p.Rank(), p.Key}, p.Stats()...)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Player", "Stat 1", "Stat 2", "Stat 3", "Stat 4", "Stat 5", "Stat 6", "Stat 7"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by boardcrawl*")
}

// RankedPlayers returns players ordered by numeric rank, then key.
// Players with a non-numeric rank sort last.
func RankedPlayers(players map[string]model.PlayerRecord) []model.PlayerRecord {
	out := make([]model.PlayerRecord, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, errI := strconv.Atoi(out[i].Rank())
		rj, errJ := strconv.Atoi(out[j].Rank())
		switch {
		case errI != nil && errJ != nil:
			return out[i].Key < out[j].Key
		case errI != nil:
			return false
		case errJ != nil:
			return true
		case ri != rj:
			return ri < rj
		default:
			return out[i].Key < out[j].Key
		}
	})
	return out
}
