package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/poiesic/pagesift/core"
)

// DocumentStore opens source documents by identity.
// Open must return an error wrapping ErrDocumentMissing for unknown documents.
type DocumentStore interface {
	Open(ctx context.Context, sourceID string) (Document, error)
}

// Document is one opened source document. Close releases it whether or not
// Save was called.
type Document interface {
	Highlight(bbox core.BBox, color Color) error
	// Save writes the annotated document to path and returns its page count.
	Save(ctx context.Context, path string) (int, error)
	Close() error
}

// Watermarker is implemented by documents that can overlay a text label.
type Watermarker interface {
	Watermark(label string) error
}

// WatermarkCapable is implemented by document stores whose documents implement Watermarker.
type WatermarkCapable interface {
	CanWatermark() bool
}

// Part is a rendered document waiting to be merged.
type Part struct {
	SourceID string
	Path     string
	Pages    int
	Bookmark string // Outline title for the part's first page, empty for none
}

// Assembler merges rendered parts, in order, into one output file.
type Assembler interface {
	Assemble(ctx context.Context, parts []Part, outFile string) error
}

// OutputSink persists the merged artifact at dest.
type OutputSink interface {
	Persist(ctx context.Context, src, dest string) error
}

// FileSink moves the merged artifact to a path on the local filesystem.
type FileSink struct{}

var _ OutputSink = FileSink{}

// Persist moves src to dest, creating dest's directory. It falls back to a
// copy when src and dest are on different filesystems.
func (FileSink) Persist(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	return copyFile(src, dest)
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return nil
}
