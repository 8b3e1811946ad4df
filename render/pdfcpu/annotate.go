package pdfcpu

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/render"
)

// Dark blue, 20% opaque, rotated 45 degrees, left of center.
const watermarkDescription = "fontname:Helvetica-Bold, points:36, rotation:45, opacity:0.2, " +
	"fillcolor:#0000B3, position:c, offset:-40 0, scalefactor:0.8 rel"

// pdfRect converts a top-left origin bbox into PDF user space on a page of the given height.
func pdfRect(b core.BBox, pageHeight float64) (llx, lly, urx, ury float64) {
	return b.X0, pageHeight - b.Y1, b.X1, pageHeight - b.Y0
}

func simpleColor(c render.Color) color.SimpleColor {
	return color.SimpleColor{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

// annotationID is unique per highlight on a page; pdfcpu rejects duplicate IDs
// and two terms may mark the same box.
func annotationID(n int, llx, lly, urx, ury float64) string {
	return fmt.Sprintf("pagesift-%d-%.0f-%.0f-%.0f-%.0f", n, llx, lly, urx, ury)
}

func highlightAnnotation(h highlight, n int, pageHeight float64) model.AnnotationRenderer {
	llx, lly, urx, ury := pdfRect(h.bbox, pageHeight)
	rect := types.NewRectangle(llx, lly, urx, ury)
	quad := types.QuadPoints{types.QuadLiteral{
		P1: types.Point{X: llx, Y: lly},
		P2: types.Point{X: urx, Y: lly},
		P3: types.Point{X: urx, Y: ury},
		P4: types.Point{X: llx, Y: ury},
	}}
	col := simpleColor(h.color)
	id := annotationID(n, llx, lly, urx, ury)

	return model.NewHighlightAnnotation(
		*rect,
		"",
		id,
		"",
		model.AnnPrint,
		&col,
		0, 0, 0,
		"pagesift",
		nil,
		nil,
		"",
		"",
		quad,
	)
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

	_, err = io.Copy(out, in)
	return err
}
