// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/pagesift"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pagesift",
		Usage: "Fuzzy term search over OCR corpora with highlighted PDF output",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Load corpus CSV files into a database",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "csv",
						Usage:    "Corpus CSV file (repeatable)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of spans written per transaction",
						Value: ingestion.DefaultConfig().BatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N spans",
						Value: ingestion.DefaultConfig().ReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for a failed batch write",
						Value: ingestion.DefaultConfig().MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: ingestion.DefaultConfig().RetryDelay,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search a corpus and optionally render highlighted PDFs",
				Action: searchCommand,
				Flags:  searchFlags(),
			},
			{
				Name:   "highlight",
				Usage:  "Render a highlighted PDF from a saved search results CSV",
				Action: highlightCommand,
				Flags:  highlightFlags(),
			},
			{
				Name:   "status",
				Usage:  "List ingested corpus files",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Re-run a search whenever the corpus CSV changes",
				Action: watchCommand,
				Flags: append(searchFlags(),
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a change triggers a search",
						Value: 500 * time.Millisecond,
					},
				),
			},
		},
	}
}

// signalContext is cancelled on interrupt so scoped cleanup still runs.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func ingestCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	config := &ingestion.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	dbPath := c.String("db")
	db, err := pagesift.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(
		ingestion.WithConfig(config),
		ingestion.WithProgress(os.Stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	for _, path := range c.StringSlice("csv") {
		report, err := pipeline.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingesting %s failed: %w", path, err)
		}
		if report.Skipped {
			fmt.Fprintf(os.Stderr, "%s: unchanged, %d spans already stored\n", path, report.Spans)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: %d spans in %d batches (%d replaced) in %s\n",
			path, report.Spans, report.Batches, report.Replaced, report.Elapsed.Round(time.Millisecond))
	}

	count, err := db.CorpusRepository().CountSpans(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Database holds %d spans\n", count)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// parseDate parses a YYYY-MM-DD flag value. Malformed dates are query errors.
func parseDate(name, value string) (core.Date, error) {
	d, err := core.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s must be YYYY-MM-DD: %q", core.ErrInvalidQuery, name, value)
	}
	return d, nil
}
