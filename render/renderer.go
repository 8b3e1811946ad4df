package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pagesift/core"
	"golang.org/x/time/rate"
)

// Renderer turns ranked matches into one merged, highlighted document.
type Renderer struct {
	store      DocumentStore
	assembler  Assembler
	sink       OutputSink
	colorMode  ColorMode
	watermarks bool
	bookmarks  bool
	scratchDir string
	poolSize   int
	limiter    *rate.Limiter
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithWatermarks overlays each document's display name.
// Ignored, with a warning, when the document store cannot watermark.
func WithWatermarks(enabled bool) Option {
	return func(r *Renderer) error {
		r.watermarks = enabled
		return nil
	}
}

// WithBookmarks adds an outline entry for the first page of each document.
func WithBookmarks(enabled bool) Option {
	return func(r *Renderer) error {
		r.bookmarks = enabled
		return nil
	}
}

// WithColorMode selects the highlight palette. Default is ColorBySimilarity.
func WithColorMode(mode ColorMode) Option {
	return func(r *Renderer) error {
		r.colorMode = mode
		return nil
	}
}

// WithOutputSink sets where merged output goes. Default is FileSink.
func WithOutputSink(sink OutputSink) Option {
	return func(r *Renderer) error {
		if sink == nil {
			sink = FileSink{}
		}
		r.sink = sink
		return nil
	}
}

// WithScratchDir sets the parent of per-render scratch directories.
// Default is os.TempDir().
func WithScratchDir(dir string) Option {
	return func(r *Renderer) error {
		r.scratchDir = dir
		return nil
	}
}

// WithPoolSize sets how many documents are rendered concurrently.
// Default is half the CPUs, at least 1.
func WithPoolSize(size int) Option {
	return func(r *Renderer) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		r.poolSize = size
		return nil
	}
}

// WithOpenRate limits how many documents are opened per second.
// Default is unlimited.
func WithOpenRate(perSecond float64, burst int) Option {
	return func(r *Renderer) error {
		if perSecond <= 0 || burst < 1 {
			return ErrInvalidOpenRate
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// NewRenderer creates a renderer reading documents from store and merging them with assembler.
func NewRenderer(store DocumentStore, assembler Assembler, opts ...Option) (*Renderer, error) {
	if store == nil {
		return nil, ErrDocumentStoreRequired
	}
	if assembler == nil {
		return nil, ErrAssemblerRequired
	}

	r := &Renderer{
		store:     store,
		assembler: assembler,
		sink:      FileSink{},
		poolSize:  max(runtime.NumCPU()/2, 1),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.watermarks {
		capable, ok := store.(WatermarkCapable)
		if !ok || !capable.CanWatermark() {
			r.logger.Warn("document store cannot watermark, rendering without watermarks")
			r.watermarks = false
		}
	}

	pool, err := ants.NewPool(r.poolSize)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r, nil
}

// Release frees the worker pool.
func (r *Renderer) Release() {
	r.pool.Release()
}

// Report summarizes one render.
type Report struct {
	RunID      string
	Output     string
	Documents  int
	Pages      int
	Highlights int
	Skipped    []*ItemError
	Elapsed    time.Duration
}

// Render highlights matches in their source documents and writes the merged result to dest.
// Missing or broken documents are skipped and listed in the report; when no document
// renders, Render returns ErrNoDocumentsRendered and writes nothing.
func (r *Renderer) Render(ctx context.Context, matches []core.Match, dest string) (*Report, error) {
	plan := BuildPlan(matches, PlanOptions{
		ColorMode:  r.colorMode,
		Watermarks: r.watermarks,
		Bookmarks:  r.bookmarks,
	})
	return r.RenderPlan(ctx, plan, dest)
}

// RenderPlan renders a prepared plan. Merge order is plan order regardless of
// which documents finish first.
func (r *Renderer) RenderPlan(ctx context.Context, plan *Plan, dest string) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	start := time.Now()
	logger := r.logger.With("run", report.RunID)

	if len(plan.Entries) == 0 {
		return report, fmt.Errorf("%w: nothing to render", ErrNoDocumentsRendered)
	}

	scratch, err := os.MkdirTemp(r.scratchDir, "pagesift-render-*")
	if err != nil {
		return report, err
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn("failed to remove scratch directory", "dir", scratch, "err", err)
		}
	}()

	parts := make([]*Part, len(plan.Entries))
	errs := make([]error, len(plan.Entries))

	var wg sync.WaitGroup
	var submitErr error
	for i, entry := range plan.Entries {
		if ctx.Err() != nil {
			break
		}
		task := func() {
			defer wg.Done()
			parts[i], errs[i] = r.renderEntry(ctx, scratch, entry)
		}
		wg.Add(1)
		if err := r.pool.Submit(task); err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return report, submitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	var rendered []Part
	for i, entry := range plan.Entries {
		if errs[i] != nil {
			logger.Warn("skipping document", "source", entry.SourceID, "err", errs[i])
			report.Skipped = append(report.Skipped, &ItemError{SourceID: entry.SourceID, Err: errs[i]})
			continue
		}
		rendered = append(rendered, *parts[i])
		report.Documents++
		report.Pages += parts[i].Pages
		report.Highlights += len(entry.Highlights)
	}

	if len(rendered) == 0 {
		logger.Error("no documents rendered", "skipped", len(report.Skipped))
		return report, fmt.Errorf("%w: %d documents skipped", ErrNoDocumentsRendered, len(report.Skipped))
	}

	merged := filepath.Join(scratch, "merged-"+report.RunID+".pdf")
	if err := r.assembler.Assemble(ctx, rendered, merged); err != nil {
		return report, fmt.Errorf("failed to merge documents: %w", err)
	}
	if err := r.sink.Persist(ctx, merged, dest); err != nil {
		return report, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	report.Output = dest
	report.Elapsed = time.Since(start)
	logger.Info("render complete",
		"output", dest,
		"documents", report.Documents,
		"highlights", report.Highlights,
		"skipped", len(report.Skipped),
		"elapsed", report.Elapsed)
	return report, nil
}

// renderEntry opens, annotates and saves one document into dir.
// The document is closed before renderEntry returns.
func (r *Renderer) renderEntry(ctx context.Context, dir string, entry PlanEntry) (*Part, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	doc, err := r.store.Open(ctx, entry.SourceID)
	if err != nil {
		if errors.Is(err, ErrDocumentMissing) {
			return nil, err
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrDocumentMissing, err)
		}
		return nil, fmt.Errorf("%w: open: %w", ErrDocumentRenderFailure, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			r.logger.Warn("failed to close document", "source", entry.SourceID, "err", err)
		}
	}()

	for _, h := range entry.Highlights {
		if err := doc.Highlight(h.BBox, h.Color); err != nil {
			return nil, fmt.Errorf("%w: highlight: %w", ErrDocumentRenderFailure, err)
		}
	}

	if entry.Watermark != "" && r.watermarks {
		w, ok := doc.(Watermarker)
		if !ok {
			return nil, fmt.Errorf("%w: document cannot be watermarked", ErrDocumentRenderFailure)
		}
		if err := w.Watermark(entry.Watermark); err != nil {
			return nil, fmt.Errorf("%w: watermark: %w", ErrDocumentRenderFailure, err)
		}
	}

	path := filepath.Join(dir, uuid.NewString()+".pdf")
	pages, err := doc.Save(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: save: %w", ErrDocumentRenderFailure, err)
	}

	return &Part{
		SourceID: entry.SourceID,
		Path:     path,
		Pages:    pages,
		Bookmark: entry.Bookmark,
	}, nil
}
