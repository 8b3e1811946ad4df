package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/pagesift"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/corpus"
	"github.com/poiesic/pagesift/loader"
	"github.com/poiesic/pagesift/render"
	"github.com/poiesic/pagesift/render/pdfcpu"
	"github.com/poiesic/pagesift/search"
	"github.com/poiesic/pagesift/watcher"
	"github.com/urfave/cli/v2"
)

func searchFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory holding an ingested corpus",
		},
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Corpus CSV file to search directly",
		},
		&cli.StringSliceFlag{
			Name:    "term",
			Aliases: []string{"t"},
			Usage:   "Search term (repeatable)",
		},
		&cli.StringFlag{
			Name:  "terms-file",
			Usage: "File with one search term per line",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "Minimum fuzzy similarity (0-100)",
			Value: core.DefaultSimilarityThreshold,
		},
		&cli.IntFlag{
			Name:  "min-terms",
			Usage: "Distinct terms required on one page (default: all terms)",
		},
		&cli.StringSliceFlag{
			Name:  "negation",
			Usage: "Exclude matches near this term (repeatable)",
		},
		&cli.Float64Flag{
			Name:  "negation-distance",
			Usage: "Distance from a match within which a negation term excludes it",
			Value: core.DefaultNegationDistance,
		},
		&cli.StringFlag{
			Name:  "start-date",
			Usage: "Earliest page date, YYYY-MM-DD",
		},
		&cli.StringFlag{
			Name:  "end-date",
			Usage: "Latest page date, YYYY-MM-DD",
		},
		&cli.StringFlag{
			Name:  "results-csv",
			Usage: "Write the ranked matches to this CSV file",
		},
	}, renderFlags()...)
}

// renderFlags are shared by every command that writes a highlighted PDF.
func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write a merged, highlighted PDF to this path",
		},
		&cli.StringFlag{
			Name:  "base-folder",
			Usage: "Folder holding the source PDFs, required with --output",
		},
		&cli.BoolFlag{
			Name:  "watermarks",
			Usage: "Watermark each rendered page with its file name",
		},
		&cli.BoolFlag{
			Name:  "bookmarks",
			Usage: "Add a bookmark for each rendered file",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent matching and rendering workers (default: half the CPUs)",
		},
		&cli.Float64Flag{
			Name:  "open-rate",
			Usage: "Maximum source PDFs opened per second (0 for unlimited)",
		},
	}
}

func searchCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	q, err := buildQuery(c)
	if err != nil {
		return err
	}
	if err := checkOutputFlags(c); err != nil {
		return err
	}

	store, err := openCorpus(ctx, c, q)
	if err != nil {
		return err
	}
	return runSearch(ctx, c, store, q, os.Stdout)
}

func watchCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	csvPath := c.String("csv")
	if csvPath == "" {
		return fmt.Errorf("watch requires --csv")
	}
	q, err := buildQuery(c)
	if err != nil {
		return err
	}
	if err := checkOutputFlags(c); err != nil {
		return err
	}

	w, err := watcher.New(watcher.WithDebounce(c.Duration("debounce")))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	events, err := w.Watch(ctx, csvPath)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", csvPath, err)
	}

	run := func() {
		store, err := openCorpus(ctx, c, q)
		if err == nil {
			err = runSearch(ctx, c, store, q, os.Stdout)
		}
		if err != nil && ctx.Err() == nil {
			slog.Error("search failed", "err", err)
		}
	}

	run()
	slog.Info("watching corpus for changes", "path", csvPath)
	for ev := range events {
		if ev.Op == watcher.Removed {
			slog.Warn("corpus file removed, waiting for it to return", "path", ev.Path)
			continue
		}
		slog.Info("corpus changed, searching again", "path", ev.Path)
		run()
	}
	return nil
}

// buildQuery turns flags into a validated query.
func buildQuery(c *cli.Context) (*core.Query, error) {
	terms := cleanTerms(c.StringSlice("term"))
	if path := c.String("terms-file"); path != "" {
		fromFile, err := readTermsFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read terms file: %w", err)
		}
		terms = append(terms, fromFile...)
	}

	start, err := parseDate("start-date", c.String("start-date"))
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end-date", c.String("end-date"))
	if err != nil {
		return nil, err
	}

	opts := []core.QueryOption{
		core.WithSimilarityThreshold(c.Int("threshold")),
		core.WithNegation(c.Float64("negation-distance"), cleanTerms(c.StringSlice("negation"))...),
		core.WithDateRange(start, end),
	}
	if c.IsSet("min-terms") {
		opts = append(opts, core.WithMinTermsRequired(c.Int("min-terms")))
	}
	return core.NewQuery(terms, opts...)
}

func cleanTerms(raw []string) []string {
	var terms []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// readTermsFile reads one term per line, skipping blank lines.
func readTermsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cleanTerms(lines), nil
}

func checkOutputFlags(c *cli.Context) error {
	if c.String("output") != "" && c.String("base-folder") == "" {
		return fmt.Errorf("--output requires --base-folder")
	}
	if c.Int("workers") < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Float64("open-rate") < 0 {
		return fmt.Errorf("open-rate must not be negative")
	}
	return nil
}

// openCorpus loads the corpus from --csv or, failing that, from --db.
// A database snapshot holds only the pages inside the query's date range.
func openCorpus(ctx context.Context, c *cli.Context, q *core.Query) (*corpus.Store, error) {
	if path := c.String("csv"); path != "" {
		return corpus.Open(ctx, loader.NewCSVLoader(path))
	}
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("either --db or --csv is required")
	}
	db, err := pagesift.NewDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorpusUnavailable, err)
	}
	defer db.Close()
	return db.SnapshotRange(ctx, q.DateRange)
}

func runSearch(ctx context.Context, c *cli.Context, store *corpus.Store, q *core.Query, out io.Writer) error {
	var opts []search.Option
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, search.WithPoolSize(n))
	}
	searcher, err := search.NewSearcher(store, opts...)
	if err != nil {
		return err
	}
	defer searcher.Release()

	result, err := searcher.SearchWithMonitor(ctx, q, search.NewStatsMonitor(os.Stderr, search.DefaultTopPages))
	if err != nil {
		return err
	}
	if result.Empty() {
		fmt.Fprintln(out, "no matches")
		return nil
	}

	printMatches(out, result.Matches)

	if path := c.String("results-csv"); path != "" {
		if err := writeResultsCSV(path, result.Matches); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		fmt.Fprintf(out, "Results written to %s\n", path)
	}

	if dest := c.String("output"); dest != "" {
		mode := render.ColorBySimilarity
		if q.IsCoOccurrence() {
			mode = render.ColorByTerm
		}
		return renderMatches(ctx, c, mode, result.Matches, dest, out)
	}
	return nil
}

func printMatches(out io.Writer, matches []core.Match) {
	for _, m := range matches {
		fmt.Fprintf(out, "%s\t%s\tpage %d\t%s %d%%\t%s\t%q\n",
			m.Span.SourceID, m.Span.PageDate, m.Span.PageSequence, m.Kind, m.Similarity, m.Term, m.Span.Text)
	}
}

func writeResultsCSV(path string, matches []core.Match) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return search.WriteCSV(f, matches)
}

func renderMatches(ctx context.Context, c *cli.Context, mode render.ColorMode, matches []core.Match, dest string, out io.Writer) error {
	opts := []render.Option{
		render.WithWatermarks(c.Bool("watermarks")),
		render.WithBookmarks(c.Bool("bookmarks")),
		render.WithColorMode(mode),
	}
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, render.WithPoolSize(n))
	}
	if r := c.Float64("open-rate"); r > 0 {
		opts = append(opts, render.WithOpenRate(r, 1))
	}

	renderer, err := render.NewRenderer(pdfcpu.NewStore(c.String("base-folder")), pdfcpu.NewAssembler(), opts...)
	if err != nil {
		return err
	}
	defer renderer.Release()

	report, err := renderer.Render(ctx, matches, dest)
	if report != nil {
		for _, skipped := range report.Skipped {
			fmt.Fprintf(os.Stderr, "Skipped %s\n", skipped)
		}
	}
	if err != nil {
		if errors.Is(err, render.ErrNoDocumentsRendered) {
			return fmt.Errorf("no pages were rendered, no output written: %w", err)
		}
		return err
	}

	fmt.Fprintf(out, "Created %s with %d pages and %d highlighted terms\n", report.Output, report.Pages, report.Highlights)
	return nil
}
