// Package rendersvc draws the laid-out SF10 form & assembles the pages into a PDF.
package rendersvc

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/schoolrecords/sf10/core/report"
)

const (
	mmPerInch    = 25.4
	defaultDPI   = 96
	glyphWidth   = 7 // basicfont.Face7x13
	lineHeight   = 15
	padding      = 4
	regionMargin = 8
	fieldColumns = 2
)

var (
	black = color.Black
	grey  = color.Gray{Y: 0xC0}

	// learning areas take this share of a record table, the other columns share the rest
	firstColumnShare = 0.34
)

// Rasterizer draws the visible regions of a surface with a fixed-width bitmap font.
// Drawing happens at the configured DPI; the scale factor trades sharpness for memory.
type Rasterizer struct {
	dpi  int
	face font.Face
}

var _ report.Rasterizer = (*Rasterizer)(nil)

func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &Rasterizer{dpi: dpi, face: basicfont.Face7x13}
}

// PixelSize is the size of the page content box of format at scale.
func (r *Rasterizer) PixelSize(format report.PageFormat, scale float64) (int, int) {
	px := func(mm float64) int {
		return int(math.Round(mm / mmPerInch * float64(r.dpi) * scale))
	}
	return px(format.ContentWidth()), px(format.ContentHeight())
}

// Rasterize draws the visible regions top to bottom. When they do not fit the content box,
// they are drawn on a taller canvas which is then resized to the content box.
func (r *Rasterizer) Rasterize(ctx context.Context, s *report.Surface, scale float64) (image.Image, error) {
	if scale <= 0 {
		scale = 1
	}
	width, height := r.PixelSize(s.Format, scale)
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("empty content box for page format %q", s.Format.Name)
	}

	regions := s.Visible()
	needed := 0
	for _, reg := range regions {
		needed += r.regionHeight(reg, width) + regionMargin
	}
	canvasHeight := height
	if needed > canvasHeight {
		canvasHeight = needed
	}

	canvas := imaging.New(width, canvasHeight, color.White)
	y := 0
	for _, reg := range regions {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "rasterizing page")
		}
		y = r.drawRegion(canvas, reg, y) + regionMargin
	}

	if canvasHeight != height {
		return imaging.Resize(canvas, width, height, imaging.Lanczos), nil
	}
	return canvas, nil
}

func (r *Rasterizer) maxChars(width int) int {
	return (width - 2*padding) / glyphWidth
}

func (r *Rasterizer) fieldLines(reg *report.Region) int {
	return (len(reg.Fields) + fieldColumns - 1) / fieldColumns
}

func (r *Rasterizer) regionHeight(reg *report.Region, width int) int {
	if reg.Kind == report.KindHeader {
		return (len(reg.Fields)+1)*lineHeight + 2*padding
	}
	lines := 1 + r.fieldLines(reg) + len(reg.Footer)
	if len(reg.Columns) > 0 {
		lines += 1 + len(reg.Rows)
	}
	return lines*lineHeight + 2*padding
}

func (r *Rasterizer) drawRegion(dst *image.NRGBA, reg *report.Region, top int) int {
	width := dst.Bounds().Dx()
	y := top + padding

	// title
	title := reg.Title
	if reg.Kind == report.KindHeader {
		for _, f := range reg.Fields {
			r.drawCentered(dst, f.Value, y)
			y += lineHeight
		}
		r.drawCentered(dst, title, y)
		y += lineHeight
		r.hline(dst, 0, width, y)
		return y + padding
	}
	r.drawText(dst, title, padding, y, r.maxChars(width))
	y += lineHeight

	// fields, in columns
	colWidth := width / fieldColumns
	for i := 0; i < len(reg.Fields); i += fieldColumns {
		for c := 0; c < fieldColumns && i+c < len(reg.Fields); c++ {
			r.drawText(dst, fieldText(reg.Fields[i+c]), c*colWidth+padding, y, r.maxChars(colWidth))
		}
		y += lineHeight
	}

	// table
	if len(reg.Columns) > 0 {
		edges := columnEdges(width, len(reg.Columns))
		r.hline(dst, 0, width, y)
		y = r.drawRow(dst, reg.Columns, edges, y)
		for _, row := range reg.Rows {
			y = r.drawRow(dst, row, edges, y)
		}
		for _, x := range edges {
			r.vline(dst, x, y-(len(reg.Rows)+1)*lineHeight, y)
		}
	}

	for _, line := range reg.Footer {
		r.drawCentered(dst, line, y)
		y += lineHeight
	}

	r.rect(dst, 0, top, width-1, y+padding)
	return y + padding
}

func (r *Rasterizer) drawRow(dst *image.NRGBA, cells []string, edges []int, y int) int {
	for i, cell := range cells {
		if i+1 >= len(edges) {
			break
		}
		r.drawText(dst, cell, edges[i]+padding, y, r.maxChars(edges[i+1]-edges[i]))
	}
	y += lineHeight
	r.hline(dst, 0, dst.Bounds().Dx(), y)
	return y
}

// columnEdges returns the x of every column border, the last one being the right edge.
func columnEdges(width, columns int) []int {
	edges := []int{0}
	if columns == 0 {
		return edges
	}
	first := width
	if columns > 1 {
		first = int(float64(width) * firstColumnShare)
	}
	edges = append(edges, first)
	for i := 1; i < columns; i++ {
		edges = append(edges, first+(width-1-first)*i/(columns-1))
	}
	return edges
}

func fieldText(f report.Field) string {
	switch {
	case f.Label == "":
		return f.Value
	case f.Value == "":
		return f.Label
	default:
		return f.Label + ": " + f.Value
	}
}

// drawText draws s with its top-left corner at (x, y), cut to maxChars.
func (r *Rasterizer) drawText(dst draw.Image, s string, x, y, maxChars int) {
	if maxChars <= 0 || s == "" {
		return
	}
	if len(s) > maxChars {
		s = s[:maxChars]
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(black),
		Face: r.face,
		Dot:  fixed.P(x, y+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (r *Rasterizer) drawCentered(dst draw.Image, s string, y int) {
	width := dst.Bounds().Dx()
	s = strings.TrimSpace(s)
	x := (width - len(s)*glyphWidth) / 2
	if x < padding {
		x = padding
	}
	r.drawText(dst, s, x, y, r.maxChars(width))
}

func (r *Rasterizer) hline(dst *image.NRGBA, x0, x1, y int) {
	for x := x0; x < x1; x++ {
		dst.Set(x, y, grey)
	}
}

func (r *Rasterizer) vline(dst *image.NRGBA, x, y0, y1 int) {
	for y := y0; y < y1; y++ {
		dst.Set(x, y, grey)
	}
}

func (r *Rasterizer) rect(dst *image.NRGBA, x0, y0, x1, y1 int) {
	r.hline(dst, x0, x1, y0)
	r.hline(dst, x0, x1, y1)
	r.vline(dst, x0, y0, y1)
	r.vline(dst, x1, y0, y1)
}
