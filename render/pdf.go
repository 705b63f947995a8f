package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"pvcse/minutes"
)

type pdfRenderer struct {
	opts Options
}

func (pdfRenderer) ContentType() string { return "application/pdf" }
func (pdfRenderer) FileName() string    { return "pv_cse.pdf" }

// Render lays out an A4 document with 2cm margins. Empty sections are skipped.
func (r pdfRenderer) Render(w io.Writer, doc minutes.Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetTitle(r.opts.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 9, tr(r.opts.Title), "", "C", false)
	pdf.Ln(8)

	section := func(title string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(0, 8, tr(title), "", "L", false)
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "", 11)
	}

	if len(doc.Attendance) > 0 {
		section("Présences")
		pdf.MultiCell(0, 6, tr("Personnes présentes : "+strings.Join(doc.Attendance, ", ")), "", "L", false)
	}

	if len(doc.Discussions) > 0 {
		section("Discussions")
		for _, d := range doc.Discussions {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.Write(6, tr(d.Speaker))
			pdf.SetFont("Helvetica", "", 11)
			pdf.Write(6, tr(": "+d.Text))
			pdf.Ln(8)
		}
	}

	if len(doc.Decisions) > 0 {
		section("Décisions")
		for _, d := range doc.Decisions {
			pdf.MultiCell(0, 6, tr("- "+d), "", "L", false)
		}
	}

	if len(doc.Votes) > 0 {
		section("Votes")
		for _, v := range doc.Votes {
			pdf.MultiCell(0, 6, tr("- "+voteLine(v)), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("generating pdf: %w", err)
	}
	return nil
}
