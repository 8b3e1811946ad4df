package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/loader"
	"github.com/poiesic/pagesift/storage"
)

// Pipeline writes corpus spans into a CorpusRepository.
type Pipeline struct {
	repository  storage.CorpusRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithConfig sets batch and retry settings.
// Default is DefaultConfig().
func WithConfig(config *Config) Option {
	return func(p *Pipeline) error {
		if config == nil {
			config = DefaultConfig()
		}
		if config.BatchSize < 1 {
			return ErrInvalidBatchSize
		}
		if config.MaxRetries < 1 {
			return ErrInvalidMaxAttempts
		}
		p.config = config
		return nil
	}
}

// WithProgress reports progress to w. Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithCheckpoints enables skipping of corpus files that were already ingested unchanged.
func WithCheckpoints(checkpoints storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		p.checkpoints = checkpoints
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.CorpusRepository, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrCorpusRepositoryRequired
	}

	p := &Pipeline{
		repository: repository,
		config:     DefaultConfig(),
		progress:   io.Discard,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Report summarizes one ingestion.
type Report struct {
	Source   string
	Spans    int
	Batches  int
	Replaced int // Previously stored spans removed for re-ingested sources
	Skipped  bool
	Elapsed  time.Duration
}

// IngestFile loads the corpus CSV at path and stores its spans.
// With checkpoints enabled, an unchanged file is skipped.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Report, error) {
	fingerprint, err := loader.Fingerprint(path)
	if err != nil {
		return nil, err
	}

	if p.checkpoints != nil {
		cp, err := p.checkpoints.LoadCheckpoint(ctx, path)
		if err != nil {
			return nil, err
		}
		if cp != nil && cp.Fingerprint == fingerprint {
			p.logger.Info("corpus file unchanged, skipping", "path", path, "spans", cp.Spans)
			return &Report{Source: path, Spans: cp.Spans, Skipped: true}, nil
		}
	}

	spans, err := loader.NewCSVLoader(path, loader.WithLogger(p.logger)).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorpusUnavailable, err)
	}

	report, err := p.Ingest(ctx, spans)
	if err != nil {
		return nil, err
	}
	report.Source = path

	if p.checkpoints != nil {
		err := p.checkpoints.SaveCheckpoint(ctx, &storage.Checkpoint{
			Source:      path,
			Fingerprint: fingerprint,
			Spans:       report.Spans,
		})
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Ingest stores spans, replacing whatever was stored before for the same sources.
// All spans are validated before anything is written. The previous spans of a
// source are removed only after every new batch is stored; when a batch fails,
// the batches already written are removed again and the old spans stay intact.
func (p *Pipeline) Ingest(ctx context.Context, spans []core.TextSpan) (*Report, error) {
	for i := range spans {
		if err := core.ValidateTextSpan(&spans[i]); err != nil {
			return nil, fmt.Errorf("span %d: %w", i, err)
		}
	}

	report := &Report{}
	start := time.Now()
	policy := newWritePolicy(p.config, p.logger)

	previous, err := p.previousSpans(ctx, spans)
	if err != nil {
		return nil, err
	}

	progress := newBatchProgress(p.progress, len(spans), p.config.BatchSize, p.config.ReportInterval)
	var written []core.ID
	for lo := 0; lo < len(spans); lo += p.config.BatchSize {
		hi := min(lo+p.config.BatchSize, len(spans))
		batch := make([]*core.TextSpan, 0, hi-lo)
		for i := lo; i < hi; i++ {
			span := spans[i]
			span.Id = 0
			batch = append(batch, &span)
		}

		var stored []*core.TextSpan
		err := policy.run(ctx, fmt.Sprintf("spans %d-%d", lo, hi-1), func(ctx context.Context) error {
			var err error
			stored, err = p.repository.AddSpans(ctx, batch...)
			return err
		})
		if err != nil {
			p.rollback(written)
			return nil, err
		}
		for _, s := range stored {
			written = append(written, s.Id)
		}

		report.Batches++
		report.Spans += len(stored)
		progress.batchWritten(len(stored))
	}
	progress.done()

	if len(previous) > 0 {
		err := policy.run(ctx, "replaced spans", func(ctx context.Context) error {
			removed, err := p.repository.DeleteSpans(ctx, previous...)
			report.Replaced = removed
			return err
		})
		if err != nil {
			p.rollback(written)
			return nil, err
		}
		p.logger.Info("replaced previously ingested spans", "spans", report.Replaced)
	}

	report.Elapsed = time.Since(start)
	p.logger.Info("ingestion complete", "spans", report.Spans, "batches", report.Batches, "elapsed", report.Elapsed)
	return report, nil
}

// previousSpans returns the IDs already stored for the sources in spans.
func (p *Pipeline) previousSpans(ctx context.Context, spans []core.TextSpan) ([]core.ID, error) {
	var ids []core.ID
	seen := make(map[string]bool)
	for i := range spans {
		source := spans[i].SourceID
		if seen[source] {
			continue
		}
		seen[source] = true
		stored, err := p.repository.GetSpansBySource(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("failed to read stored spans of %s: %w", source, err)
		}
		for _, s := range stored {
			ids = append(ids, s.Id)
		}
	}
	return ids, nil
}

// rollback removes spans written by a failed ingestion. It ignores the
// ingestion's context so a cancelled run still cleans up.
func (p *Pipeline) rollback(written []core.ID) {
	if len(written) == 0 {
		return
	}
	removed, err := p.repository.DeleteSpans(context.Background(), written...)
	if err != nil {
		p.logger.Error("failed to remove partially ingested spans", "spans", len(written), "err", err)
		return
	}
	p.logger.Warn("removed partially ingested spans", "spans", removed)
}
