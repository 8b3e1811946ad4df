package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/poiesic/pagesift"
	"github.com/poiesic/pagesift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testCorpus = "filename,date,page_number,text,bbx0,bby0,bbx1,bby1,font_size\n" +
	"1962-10-22_Page1.pdf,1962-10-22,1,the rain,10,10,60,20,10\n" +
	"1962-10-22_Page1.pdf,1962-10-22,1,in spain,10,30,60,40,10\n" +
	"1962-10-22_Page1.pdf,1962-10-22,1,stays mainly,10,50,60,60,10\n"

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %s not found", name)
	return nil
}

func TestIngestCommandFlags(t *testing.T) {
	app := newApp()

	t.Run("db is required", func(t *testing.T) {
		err := app.Run([]string{"pagesift", "ingest", "--csv", "corpus.csv"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("csv is required", func(t *testing.T) {
		err := app.Run([]string{"pagesift", "ingest", "--db", t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "csv")
	})

	t.Run("batch-size has default value of 1000", func(t *testing.T) {
		cmd := findCommand(t, app, "ingest")
		var batchFlag *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "batch-size" {
				batchFlag = f
				break
			}
		}
		require.NotNil(t, batchFlag)
		assert.Equal(t, 1000, batchFlag.Value)
	})

	t.Run("invalid batch size", func(t *testing.T) {
		err := app.Run([]string{"pagesift", "ingest", "--db", t.TempDir(), "--csv", "x.csv", "--batch-size", "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size")
	})
}

func TestIngestThenSearch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "corpus.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCorpus), 0644))
	dbPath := filepath.Join(dir, "db")

	require.NoError(t, newApp().Run([]string{"pagesift", "-l", "error", "ingest", "--db", dbPath, "--csv", csvPath}))

	resultsPath := filepath.Join(dir, "results.csv")
	require.NoError(t, newApp().Run([]string{"pagesift", "-l", "error", "search",
		"--db", dbPath, "--term", "rain", "--results-csv", resultsPath}))

	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "the rain")
	assert.NotContains(t, string(data), "in spain")
}

func TestSearchCommandValidation(t *testing.T) {
	app := newApp()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no terms", []string{"--csv", "c.csv"}, "search term"},
		{"threshold out of range", []string{"--csv", "c.csv", "-t", "rain", "--threshold", "101"}, "threshold"},
		{"min terms out of range", []string{"--csv", "c.csv", "-t", "a", "-t", "b", "--min-terms", "3"}, "min terms"},
		{"malformed date", []string{"--csv", "c.csv", "-t", "rain", "--start-date", "22/10/1962"}, "start-date"},
		{"inverted dates", []string{"--csv", "c.csv", "-t", "rain", "--start-date", "1963-01-01", "--end-date", "1962-01-01"}, "start is after end"},
		{"output without base folder", []string{"--csv", "c.csv", "-t", "rain", "--output", "out.pdf"}, "base-folder"},
		{"no corpus", []string{"-t", "rain"}, "--db or --csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := app.Run(append([]string{"pagesift", "search"}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing corpus file", func(t *testing.T) {
		err := app.Run([]string{"pagesift", "search", "--csv", filepath.Join(t.TempDir(), "none.csv"), "-t", "rain"})
		assert.ErrorIs(t, err, core.ErrCorpusUnavailable)
	})

	t.Run("watch requires csv", func(t *testing.T) {
		err := app.Run([]string{"pagesift", "watch", "--db", t.TempDir(), "-t", "rain"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--csv")
	})
}

func TestBuildQuery(t *testing.T) {
	termsFile := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(termsFile, []byte("beta\n\n  gamma  \n"), 0644))

	var got *core.Query
	app := &cli.App{
		Name:  "test",
		Flags: searchFlags(),
		Action: func(c *cli.Context) error {
			var err error
			got, err = buildQuery(c)
			return err
		},
	}

	err := app.Run([]string{"test",
		"-t", "alpha", "--terms-file", termsFile,
		"--min-terms", "2", "--threshold", "70",
		"--negation", "spain", "--negation-distance", "25",
		"--start-date", "1962-10-01"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got.Terms)
	assert.Equal(t, 2, got.MinTermsRequired)
	assert.Equal(t, 70, got.SimilarityThreshold)
	assert.Equal(t, []string{"spain"}, got.NegationTerms)
	assert.Equal(t, 25.0, got.NegationDistance)
	require.NotNil(t, got.DateRange)
	assert.Equal(t, core.NewDate(1962, 10, 1), got.DateRange.Start)
	assert.False(t, got.DateRange.End.Valid)

	require.NoError(t, app.Run([]string{"test", "-t", "alpha", "-t", "beta"}))
	assert.Equal(t, 2, got.MinTermsRequired, "defaults to all terms")
	assert.Nil(t, got.DateRange)
}

func TestRunSearch(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "corpus.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCorpus), 0644))

	var out bytes.Buffer
	app := &cli.App{
		Name:  "test",
		Flags: searchFlags(),
		Action: func(c *cli.Context) error {
			q, err := buildQuery(c)
			if err != nil {
				return err
			}
			store, err := openCorpus(context.Background(), c, q)
			if err != nil {
				return err
			}
			return runSearch(context.Background(), c, store, q, &out)
		},
	}

	require.NoError(t, app.Run([]string{"test", "--csv", csvPath, "-t", "rain"}))
	assert.Contains(t, out.String(), "the rain")
	assert.Contains(t, out.String(), "exact 100%")

	out.Reset()
	require.NoError(t, app.Run([]string{"test", "--csv", csvPath, "-t", "rain", "--negation", "spain", "--negation-distance", "1000"}))
	assert.Equal(t, "no matches\n", out.String())
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
				assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"pagesift", "--log-level", "invalid", "search"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				level := c.String("log-level")
				assert.Equal(t, "debug", level)
				return nil
			},
		}

		err := app.Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}

// writeSourcePDF creates a one-page PDF at path.
func writeSourcePDF(t *testing.T, path string) {
	t.Helper()
	api.DisableConfigDir()
	imgPath := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8))))
	require.NoError(t, f.Close())
	require.NoError(t, api.ImportImagesFile([]string{imgPath}, path, nil, nil))
}

func TestHighlightCommand(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "corpus.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCorpus), 0644))
	baseFolder := filepath.Join(dir, "scans")
	require.NoError(t, os.Mkdir(baseFolder, 0755))
	writeSourcePDF(t, filepath.Join(baseFolder, "1962-10-22_Page1.pdf"))

	resultsPath := filepath.Join(dir, "results.csv")
	require.NoError(t, newApp().Run([]string{"pagesift", "-l", "error", "search",
		"--csv", csvPath, "-t", "rain", "-t", "spain", "--min-terms", "2", "--results-csv", resultsPath}))

	outPath := filepath.Join(dir, "out", "highlighted.pdf")
	require.NoError(t, newApp().Run([]string{"pagesift", "-l", "error", "highlight",
		"--results-csv", resultsPath, "--base-folder", baseFolder, "-o", outPath, "--bookmarks"}))

	pages, err := api.PageCountFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	t.Run("requires output", func(t *testing.T) {
		err := newApp().Run([]string{"pagesift", "highlight", "--results-csv", resultsPath, "--base-folder", baseFolder})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--output")
	})

	t.Run("requires results", func(t *testing.T) {
		err := newApp().Run([]string{"pagesift", "highlight", "-o", outPath, "--base-folder", baseFolder})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "results-csv")
	})

	t.Run("missing results file", func(t *testing.T) {
		err := newApp().Run([]string{"pagesift", "highlight", "--results-csv", filepath.Join(dir, "none.csv"),
			"-o", outPath, "--base-folder", baseFolder})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestPrintStatus(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "corpus.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCorpus), 0644))

	db, err := pagesift.NewDatabase("", pagesift.InMemory())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	pipeline, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	_, err = pipeline.IngestFile(ctx, csvPath)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printStatus(ctx, db, &out))
	assert.Contains(t, out.String(), csvPath+"\t3 spans")
	assert.Contains(t, out.String(), "1 corpus files, 3 spans stored")
}
