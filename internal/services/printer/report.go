package printer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Column is one table column. Width is in millimetres, Align is "L" or "R"
type Column struct {
	Header string
	Width  float64
	Align  string
}

// Report is a titled table rendered on landscape A4 pages
type Report struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Columns     []Column
	Rows        [][]string
	// Totals is an optional final row printed in bold
	Totals []string
}

const (
	reportMargin = 10.0
	rowHeight    = 6.0
)

// ReportPDF renders r. The column header is repeated on every page
func ReportPDF(r Report) ([]byte, error) {
	if len(r.Columns) == 0 {
		return nil, fmt.Errorf("report has no columns")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageH := pdf.GetPageSize()

	pdf.SetFooterFunc(func() {
		pdf.SetY(-reportMargin)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(241, 245, 249)
		pdf.SetTextColor(15, 23, 42)
		for _, c := range r.Columns {
			pdf.CellFormat(c.Width, rowHeight+1, tr(c.Header), "B", 0, align(c.Align), true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(17, 24, 39)
	}

	row := func(cells []string, border string) {
		if pdf.GetY()+rowHeight > pageH-2*reportMargin {
			pdf.AddPage()
			header()
		}
		for i, c := range r.Columns {
			text := ""
			if i < len(cells) {
				text = fit(pdf, tr(cells[i]), c.Width)
			}
			pdf.CellFormat(c.Width, rowHeight, text, border, 0, align(c.Align), false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(15, 23, 42)
	pdf.CellFormat(0, 9, tr(r.Title), "", 1, "L", false, 0, "")
	if r.Subtitle != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.SetTextColor(71, 85, 105)
		pdf.CellFormat(0, 7, tr(r.Subtitle), "", 1, "L", false, 0, "")
	}
	if !r.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 5, "Generado: "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
	header()

	if len(r.Rows) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, rowHeight*2, "Sin registros para los filtros seleccionados", "", 1, "C", false, 0, "")
	}
	for _, cells := range r.Rows {
		row(cells, "")
	}
	if len(r.Totals) > 0 {
		pdf.SetFont("Arial", "B", 8)
		row(r.Totals, "T")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func align(a string) string {
	if a == "R" || a == "C" {
		return a
	}
	return "L"
}

// fit truncates an already translated single-byte string to the cell width
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	max := width - 2
	if pdf.GetStringWidth(s) <= max {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > max {
		s = s[:len(s)-1]
	}
	return s + "..."
}
