package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/boardcrawl/internal/config"
	"github.com/nao1215/boardcrawl/internal/database"
	"github.com/nao1215/boardcrawl/internal/export"
	"github.com/nao1215/boardcrawl/internal/model"
)

// shortIDLen is the number of run id characters shown in tables.
const shortIDLen = 8

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id] [run-id]",
		Short: "List recorded crawls, compare two of them, or export the archive",
		Long: `History reads the run history database written by 'boardcrawl crawl'.

Without arguments it lists the recorded runs, newest first. Run ids may be
abbreviated to any unique prefix.

The leaderboard reorders while it is being crawled, so a single run misses
some players. Every run also updates a cumulative archive that keeps the
latest row seen for each player; --archive exports it as CSV.

Examples:
  # List the last 20 runs
  boardcrawl history

  # Show one run
  boardcrawl history 1f0c2b7a

  # Compare the players of two runs
  boardcrawl history --diff 1f0c2b7a 9d3e44c0

  # Export every player ever seen
  boardcrawl history --archive -o out`,
		Args: cobra.MaximumNArgs(2),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Number of runs to list (0 = all)")
	cmd.Flags().BoolP("diff", "d", false,
		"Compare the players of two runs")
	cmd.Flags().BoolP("archive", "a", false,
		"Export the cumulative player archive to CSV")
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for the archive export")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	diff, err := flags.GetBool("diff")
	if err != nil {
		return err
	}
	archive, err := flags.GetBool("archive")
	if err != nil {
		return err
	}
	// Arguments are checked before the database is opened.
	if diff && archive {
		return errors.New("--diff and --archive cannot be combined")
	}
	if diff && len(args) != 2 {
		return errors.New("--diff needs two run ids")
	}
	if !diff && len(args) > 1 {
		return errors.New("too many run ids (use --diff to compare two runs)")
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case archive:
		dir, err := flags.GetString("output-dir")
		if err != nil {
			return err
		}
		players, err := db.Archive(ctx)
		if err != nil {
			return err
		}
		path, err := export.WriteFile(dir, players)
		if err != nil {
			return fmt.Errorf("failed to export archive: %w", err)
		}
		fmt.Fprintf(out, "Outputting %s archived players to %s\n", humanize.Comma(int64(len(players))), path)
		return nil

	case diff:
		d, err := db.Diff(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printDiff(out, d)
		return nil

	case len(args) == 1:
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		printRun(out, run)
		return nil
	}

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'boardcrawl crawl' to collect the leaderboard.")
		return nil
	}
	printRuns(out, runs)
	return nil
}

// newTable returns a table that renders to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func runStatus(r *database.RunRecord) string {
	if r.Aborted() {
		return "aborted"
	}
	return "complete"
}

func printRuns(w io.Writer, runs []*database.RunRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Started", "Mode", "Workers", "Requests", "Pages", "Players", "Elapsed", "Status"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Workers,
			humanize.Comma(r.Requests),
			fmt.Sprintf("%s/%s", humanize.Comma(r.PagesFetched), humanize.Comma(int64(r.Manifest.Pages()))),
			humanize.Comma(int64(r.Players)),
			fmt.Sprintf("%ds", r.ElapsedSeconds()),
			runStatus(r),
		})
	}
	t.Render()
}

func printRun(w io.Writer, r *database.RunRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRows([]table.Row{
		{"Run", r.ID},
		{"Started", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST")},
		{"Mode", fmt.Sprintf("%s (%d workers)", r.Mode, r.Workers)},
		{"Requests", humanize.Comma(r.Requests)},
		{"Pages", fmt.Sprintf("%s of %s", humanize.Comma(r.PagesFetched), humanize.Comma(int64(r.Manifest.Pages())))},
		{"Advertised records", humanize.Comma(int64(r.Manifest.TotalRecords))},
		{"Players", humanize.Comma(int64(r.Players))},
		{"Duplicates", humanize.Comma(r.Duplicates)},
		{"Parse failures", humanize.Comma(r.ParseFailures)},
		{"Elapsed", r.Elapsed.String()},
		{"Export", r.ExportFile},
		{"Digest", r.Digest},
		{"Status", runStatus(r)},
	})
	if r.Aborted() {
		t.AppendRow(table.Row{"Error", r.Error})
	}
	t.Render()
}

func printDiff(w io.Writer, d *database.RunDiff) {
	fmt.Fprintf(w, "Comparing %s (%s players) with %s (%s players)\n\n",
		shortID(d.From.ID), humanize.Comma(int64(d.From.Players)),
		shortID(d.To.ID), humanize.Comma(int64(d.To.Players)))

	if d.Empty() {
		fmt.Fprintf(w, "No differences (%s players unchanged).\n", humanize.Comma(int64(d.Unchanged)))
		return
	}

	fmt.Fprintf(w, "Added: %d  Removed: %d  Changed: %d  Unchanged: %d\n\n",
		len(d.Added), len(d.Removed), len(d.Changed), d.Unchanged)

	if len(d.Added)+len(d.Removed) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"", "Player", "Rank", "Stats"})
		for _, p := range d.Added {
			t.AppendRow(table.Row{"+", p.Key, p.Rank(), joinStats(p)})
		}
		for _, p := range d.Removed {
			t.AppendRow(table.Row{"-", p.Key, p.Rank(), joinStats(p)})
		}
		t.Render()
	}

	if len(d.Changed) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Player", "Rank", "Before", "After"})
		for _, c := range d.Changed {
			rank := c.Before.Rank()
			if c.After.Rank() != rank {
				rank += " -> " + c.After.Rank()
			}
			t.AppendRow(table.Row{c.Key, rank, joinStats(c.Before), joinStats(c.After)})
		}
		t.Render()
	}
}

func joinStats(p model.PlayerRecord) string {
	return strings.Join(p.Stats(), " ")
}
