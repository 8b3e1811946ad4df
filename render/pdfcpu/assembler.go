package pdfcpu

import (
	"context"
	"errors"
	"slices"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdf "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/poiesic/pagesift/render"
)

var errNoParts = errors.New("no parts to merge")

// Assembler merges rendered PDFs and adds one bookmark per part.
type Assembler struct{}

var _ render.Assembler = (*Assembler)(nil)

// NewAssembler creates a PDF assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble merges parts into outFile in the given order.
func (a *Assembler) Assemble(ctx context.Context, parts []render.Part, outFile string) error {
	if len(parts) == 0 {
		return errNoParts
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	conf := newConfiguration()
	parts = slices.Clone(parts)

	inFiles := make([]string, len(parts))
	for i, p := range parts {
		inFiles[i] = p.Path
		if p.Pages > 0 {
			continue
		}
		// Unknown page counts are needed for bookmark targets.
		n, err := api.PageCountFile(p.Path)
		if err != nil {
			return err
		}
		parts[i].Pages = n
	}

	if len(inFiles) == 1 {
		if err := copyFile(inFiles[0], outFile); err != nil {
			return err
		}
	} else if err := api.MergeCreateFile(inFiles, outFile, false, conf); err != nil {
		return err
	}

	bookmarks := bookmarkPlan(parts)
	if len(bookmarks) == 0 {
		return nil
	}
	return api.AddBookmarksFile(outFile, "", bookmarks, true, conf)
}

// bookmarkPlan returns an outline entry at the first merged page of every titled part.
func bookmarkPlan(parts []render.Part) []pdf.Bookmark {
	var bookmarks []pdf.Bookmark
	page := 1
	for _, p := range parts {
		if p.Bookmark != "" {
			bookmarks = append(bookmarks, pdf.Bookmark{PageFrom: page, Title: p.Bookmark})
		}
		page += p.Pages
	}
	return bookmarks
}
