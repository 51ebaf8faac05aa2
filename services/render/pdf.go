package rendersvc

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core/report"
)

const stampFont = "Helvetica"

// PDFAssembler builds portrait PDF documents in mm.
type PDFAssembler struct {
	title  string
	author string
}

var _ report.DocumentAssembler = (*PDFAssembler)(nil)

func NewPDFAssembler(title, author string) *PDFAssembler {
	return &PDFAssembler{title: title, author: author}
}

func (a *PDFAssembler) NewDocument(format report.PageFormat) (report.Document, error) {
	if format.Width <= 0 || format.Height <= 0 {
		return nil, errors.Errorf("invalid page format %q", format.Name)
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: format.Width, Ht: format.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(a.title, true)
	pdf.SetAuthor(a.author, true)
	pdf.SetCreator(a.author, true)
	return &pdfDocument{pdf: pdf}, nil
}

type pdfDocument struct {
	pdf    *gofpdf.Fpdf
	images int
}

func (d *pdfDocument) AddPage() {
	d.pdf.AddPage()
}

// PlaceImage embeds img as a PNG stretched to the w x h box at (x, y).
func (d *pdfDocument) PlaceImage(img image.Image, x, y, w, h float64) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return errors.Wrap(err, "encoding page image")
	}
	d.images++
	name := fmt.Sprintf("page-%d", d.images)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	d.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return errors.Wrap(d.pdf.Error(), "placing page image")
}

func (d *pdfDocument) StampText(x, y, fontSize float64, text string) {
	d.pdf.SetFont(stampFont, "", fontSize)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Text(x, y, text)
}

func (d *pdfDocument) Write(w io.Writer) error {
	return errors.Wrap(d.pdf.Output(w), "writing pdf")
}
