package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/pagesift"
	"github.com/poiesic/pagesift/loader"
	"github.com/poiesic/pagesift/render"
	"github.com/urfave/cli/v2"
)

func highlightFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:     "results-csv",
			Usage:    "Search results CSV written by an earlier search",
			Required: true,
		},
	}, renderFlags()...)
}

// highlightCommand renders a saved results file without searching again.
func highlightCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	dest := c.String("output")
	if dest == "" {
		return fmt.Errorf("highlight requires --output")
	}
	if err := checkOutputFlags(c); err != nil {
		return err
	}

	path := c.String("results-csv")
	matches, err := loader.ReadMatchesFile(ctx, path, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%s holds no search results", path)
	}

	mode := render.ColorModeFor(matches)
	slog.Info("rendering saved results", "path", path, "matches", len(matches), "colors", mode)
	return renderMatches(ctx, c, mode, matches, dest, os.Stdout)
}

func statusCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	db, err := pagesift.NewDatabase(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return printStatus(ctx, db, os.Stdout)
}

// printStatus lists the ingested corpus files and the stored span count.
func printStatus(ctx context.Context, db *pagesift.Database, out io.Writer) error {
	checkpoints, err := db.CheckpointRepository().ListCheckpoints(ctx)
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		fmt.Fprintf(out, "%s\t%d spans\tingested %s\n", cp.Source, cp.Spans, cp.UpdatedAt.Local().Format(time.DateTime))
	}
	count, err := db.CorpusRepository().CountSpans(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d corpus files, %d spans stored\n", len(checkpoints), count)
	return nil
}
