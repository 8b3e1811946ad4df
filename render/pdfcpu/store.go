// Package pdfcpu renders highlights, watermarks and bookmarks into PDF files with pdfcpu.
//
// Source documents are single-page PDFs named by the corpus source ID under a
// base folder. Span coordinates use a top-left origin, as produced by OCR, and are
// flipped into PDF user space with the page height.
package pdfcpu

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/render"
)

// ErrInvalidSourceID is returned for source IDs that escape the base folder.
var ErrInvalidSourceID = errors.New("invalid source id")

var disableConfigDir sync.Once

// newConfiguration returns a fresh pdfcpu configuration without touching the
// user's config directory.
func newConfiguration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// Store opens PDF source documents below a base folder.
type Store struct {
	baseFolder string
	logger     *slog.Logger
}

var (
	_ render.DocumentStore    = (*Store)(nil)
	_ render.WatermarkCapable = (*Store)(nil)
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates a store resolving source IDs relative to baseFolder.
func NewStore(baseFolder string, opts ...StoreOption) *Store {
	s := &Store{
		baseFolder: baseFolder,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanWatermark reports that pdfcpu documents support text watermarks.
func (s *Store) CanWatermark() bool {
	return true
}

// Path returns the file a source ID resolves to.
func (s *Store) Path(sourceID string) (string, error) {
	if sourceID == "" || filepath.IsAbs(sourceID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceID, sourceID)
	}
	clean := filepath.Clean(filepath.FromSlash(sourceID))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceID, sourceID)
	}
	return filepath.Join(s.baseFolder, clean), nil
}

// Open checks that the source document exists and returns a handle collecting
// its annotations. Nothing is written until Save.
func (s *Store) Open(ctx context.Context, sourceID string) (render.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(sourceID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", render.ErrDocumentMissing, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", render.ErrDocumentMissing, path)
	}

	s.logger.Debug("opened document", "source", sourceID, "path", path)
	return &Document{path: path}, nil
}

type highlight struct {
	bbox  core.BBox
	color render.Color
}

// Document accumulates highlights and a watermark for one source PDF.
type Document struct {
	path       string
	highlights []highlight
	watermark  string
	closed     bool
}

var (
	_ render.Document    = (*Document)(nil)
	_ render.Watermarker = (*Document)(nil)
)

var errDocumentClosed = errors.New("document is closed")

// Highlight marks bbox on the document's first page.
func (d *Document) Highlight(bbox core.BBox, color render.Color) error {
	if d.closed {
		return errDocumentClosed
	}
	d.highlights = append(d.highlights, highlight{bbox: bbox, color: color})
	return nil
}

// Watermark overlays label on every page.
func (d *Document) Watermark(label string) error {
	if d.closed {
		return errDocumentClosed
	}
	d.watermark = label
	return nil
}

// Save writes the annotated copy to path. The source file is never modified.
func (d *Document) Save(ctx context.Context, path string) (int, error) {
	if d.closed {
		return 0, errDocumentClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	conf := newConfiguration()

	if len(d.highlights) == 0 {
		if err := copyFile(d.path, path); err != nil {
			return 0, err
		}
	} else {
		dims, err := api.PageDimsFile(d.path)
		if err != nil {
			return 0, err
		}
		if len(dims) == 0 {
			return 0, fmt.Errorf("%s has no pages", d.path)
		}
		anns := make([]model.AnnotationRenderer, 0, len(d.highlights))
		for i, h := range d.highlights {
			anns = append(anns, highlightAnnotation(h, i, dims[0].Height))
		}
		m := map[int][]model.AnnotationRenderer{1: anns}
		if err := api.AddAnnotationsMapFile(d.path, path, m, conf, false); err != nil {
			return 0, err
		}
	}

	if d.watermark != "" {
		if err := api.AddTextWatermarksFile(path, "", nil, false, d.watermark, watermarkDescription, conf); err != nil {
			return 0, err
		}
	}

	return api.PageCountFile(path)
}

// Close releases the handle. Further calls fail; closing twice is allowed.
func (d *Document) Close() error {
	d.closed = true
	d.highlights = nil
	return nil
}
