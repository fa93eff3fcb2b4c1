// Package printer renders printable PDFs: tabular reports and QR label
// sheets for plots
package printer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// PlotLabel is one plot on the label sheet. Code is the QR payload
type PlotLabel struct {
	ID   uint
	Name string
	Crop string
	Code string
}

// PlotCode is the QR payload field devices scan to identify a plot
func PlotCode(id uint) string {
	return fmt.Sprintf("LOTE:%d", id)
}

// LabelLayout describes the label grid on an A4 page, in millimetres
type LabelLayout struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultLabelLayout fits 3x7 labels per page
func DefaultLabelLayout() LabelLayout {
	return LabelLayout{Cols: 3, Rows: 7, MarginTop: 10, MarginLeft: 8, GapX: 4, GapY: 3}
}

// GeneratePlotLabelsPDF creates a PDF with one QR label per plot
func GeneratePlotLabelsPDF(labels []PlotLabel, cfg LabelLayout) ([]byte, error) {
	if len(labels) == 0 {
		return nil, errors.New("no labels to print")
	}
	if cfg.Cols < 1 || cfg.Rows < 1 {
		cfg = DefaultLabelLayout()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY

	// Symmetric margins
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)

	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)
	if labelW <= 0 || labelH <= 0 {
		return nil, fmt.Errorf("label layout %dx%d does not fit the page", cfg.Cols, cfg.Rows)
	}

	labelsPerPage := cfg.Cols * cfg.Rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		// Top-left of label
		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		code := label.Code
		if code == "" {
			code = PlotCode(label.ID)
		}
		qrPng, err := qrcode.Encode(code, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr for plot %d: %w", label.ID, err)
		}

		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		// QR on the left, text on the right
		qrSize := labelH - 4
		if qrSize > labelW/2 {
			qrSize = labelW / 2
		}
		pdf.ImageOptions(imgName, x+2, y+(labelH-qrSize)/2, qrSize, qrSize, false, imgOptions, 0, "")

		textX := x + qrSize + 4
		textW := labelW - qrSize - 6

		pdf.SetXY(textX, y+labelH/2-7)
		pdf.SetFontSize(10)
		pdf.CellFormat(textW, 5, fit(pdf, tr(label.Name), textW), "", 2, "L", false, 0, "")
		pdf.SetFontSize(8)
		if label.Crop != "" {
			pdf.CellFormat(textW, 4, fit(pdf, tr(label.Crop), textW), "", 2, "L", false, 0, "")
		}
		pdf.CellFormat(textW, 4, code, "", 0, "L", false, 0, "")

		// Cutting guide
		pdf.SetDrawColor(203, 213, 225)
		pdf.Rect(x, y, labelW, labelH, "D")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
