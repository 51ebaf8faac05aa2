package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/pkg/errors"
)

const (
	footerFontSize = 8
	footerOffsetX  = 25 // from the right edge, in mm
	footerOffsetY  = 10 // from the bottom edge, in mm
)

type (
	// Rasterizer draws the visible regions of a surface as one page image.
	Rasterizer interface {
		Rasterize(ctx context.Context, s *Surface, scale float64) (image.Image, error)
	}

	// Document is a multi-page document being assembled. Positions & sizes are in mm.
	Document interface {
		AddPage()
		PlaceImage(img image.Image, x, y, w, h float64) error
		StampText(x, y, fontSize float64, text string)
		Write(w io.Writer) error
	}

	DocumentAssembler interface {
		NewDocument(format PageFormat) (Document, error)
	}

	// RenderError is returned when a page cannot be rasterized or assembled.
	RenderError struct {
		Page int
		Err  error
	}
)

func (e *RenderError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("rendering document: %v", e.Err)
	}
	return fmt.Sprintf("rendering page %d: %v", e.Page, e.Err)
}

// Exporter renders a surface one page at a time & assembles the pages into one document.
type Exporter struct {
	rasterizer Rasterizer
	assembler  DocumentAssembler
	scale      float64
}

func NewExporter(rasterizer Rasterizer, assembler DocumentAssembler, scale float64) *Exporter {
	if scale <= 0 {
		scale = 1
	}
	return &Exporter{rasterizer: rasterizer, assembler: assembler, scale: scale}
}

// Export returns the assembled document. Each page image fills the page within margins,
// and every page gets a "Page N of M" footer.
// The visibility of the surface regions is the same after Export as before, whatever the outcome.
func (e *Exporter) Export(ctx context.Context, s *Surface) ([]byte, error) {
	state := s.visibility()
	defer s.restore(state)

	doc, err := e.assembler.NewDocument(s.Format)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	f := s.Format
	pages := s.Pages()
	for n := 1; n <= pages; n++ {
		if err = ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "exporting document")
		}

		s.ShowPage(n)
		img, err := e.rasterizer.Rasterize(ctx, s, e.scale)
		if err != nil {
			return nil, &RenderError{Page: n, Err: err}
		}

		doc.AddPage()
		if err = doc.PlaceImage(img, f.Margins.Left, f.Margins.Top, f.ContentWidth(), f.ContentHeight()); err != nil {
			return nil, &RenderError{Page: n, Err: err}
		}
		doc.StampText(f.Width-footerOffsetX, f.Height-footerOffsetY, footerFontSize, PageLabel(n, pages))
	}

	var buf bytes.Buffer
	if err = doc.Write(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

// PageLabel is the footer of page n of m.
func PageLabel(n, m int) string {
	return fmt.Sprintf("Page %d of %d", n, m)
}
