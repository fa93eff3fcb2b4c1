package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/services/printer"
)

const (
	PDFFilename = "reporte_labores_agricolas.pdf"
	CSVFilename = "reporte_labores_agricolas.csv"
)

var exportHeaders = []string{
	"Fecha", "Labor", "Cultivo", "Lote", "Trabajador", "Cantidad", "Peso (kg)", "Costo", "Registrado por",
}

// WriteCSV writes every matching event as CSV. The UTF-8 byte order mark
// lets spreadsheet tools detect the encoding
func (s *Service) WriteCSV(ctx context.Context, id access.Identity, f Filter, w io.Writer) error {
	rows, err := s.AllDetails(ctx, id, f)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.PerformedAt.In(s.loc).Format("2006-01-02 15:04"),
			r.Labor,
			r.Crop,
			r.Plot,
			r.Worker,
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
			strconv.FormatFloat(r.WeightKg, 'f', 2, 64),
			r.Cost.StringFixed(2),
			r.RegisteredBy,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	log.Ctx(ctx).Debug().Int("rows", len(rows)).Msg("labor csv exported")
	return nil
}

// PDF renders every matching event as a tabular report with totals
func (s *Service) PDF(ctx context.Context, id access.Identity, f Filter) ([]byte, error) {
	rows, err := s.AllDetails(ctx, id, f)
	if err != nil {
		return nil, err
	}

	report := printer.Report{
		Title:       "Sistema Agrícola Inteligente",
		Subtitle:    "Reporte de Labores Agrícolas",
		GeneratedAt: s.gate.Now().In(s.loc),
		Columns: []printer.Column{
			{Header: "Fecha", Width: 28},
			{Header: "Labor", Width: 32},
			{Header: "Cultivo", Width: 30},
			{Header: "Lote", Width: 30},
			{Header: "Trabajador", Width: 44},
			{Header: "Cant.", Width: 22, Align: "R"},
			{Header: "Peso", Width: 24, Align: "R"},
			{Header: "Costo", Width: 26, Align: "R"},
			{Header: "Registrado por", Width: 41},
		},
		Rows: make([][]string, 0, len(rows)),
	}

	var qty, weight float64
	cost := decimal.Zero
	for _, r := range rows {
		report.Rows = append(report.Rows, []string{
			r.PerformedAt.In(s.loc).Format("2006-01-02 15:04"),
			r.Labor,
			r.Crop,
			r.Plot,
			r.Worker,
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
			fmt.Sprintf("%.2f", r.WeightKg),
			r.Cost.StringFixed(2),
			r.RegisteredBy,
		})
		qty += r.Quantity
		weight += r.WeightKg
		cost = cost.Add(r.Cost)
	}
	report.Totals = []string{
		fmt.Sprintf("%d labores", len(rows)), "", "", "", "Totales",
		strconv.FormatFloat(qty, 'f', -1, 64),
		fmt.Sprintf("%.2f", weight),
		cost.StringFixed(2),
		"",
	}

	out, err := printer.ReportPDF(report)
	if err != nil {
		return nil, apierror.Internal("Error al generar el PDF", err)
	}
	return out, nil
}
