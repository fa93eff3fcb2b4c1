package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/xelth-com/agrocampo/internal/services/reports"
)

// reportFilter parses the shared report query parameters in the
// configured timezone
func (r *Router) reportFilter(req *http.Request) (reports.Filter, error) {
	return reports.ParseFilter(req.URL.Query(), r.reports.Location())
}

func (r *Router) dashboardToday(w http.ResponseWriter, req *http.Request) {
	rows, err := r.reports.DashboardToday(req.Context(), caller(req))
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) dashboardHistory(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	rows, err := r.reports.DashboardHistory(req.Context(), caller(req), f)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) reportDailyProduction(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	rows, err := r.reports.DailyProduction(req.Context(), caller(req), f)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) reportPlotYield(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	rows, err := r.reports.PlotYield(req.Context(), caller(req), f)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) reportWorkerEfficiency(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	rows, err := r.reports.WorkerEfficiency(req.Context(), caller(req), f)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) reportLaborHistory(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	rows, err := r.reports.LaborHistory(req.Context(), caller(req), f)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) reportDetails(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	page, err := queryInt(req, "page")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	limit, err := queryInt(req, "limit")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	out, err := r.reports.Details(req.Context(), caller(req), f, page, limit)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (r *Router) reportPDF(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	pdfBytes, err := r.reports.PDF(req.Context(), caller(req), f)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+reports.PDFFilename)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}

// reportCSV buffers the export so a failure can still be reported as JSON
func (r *Router) reportCSV(w http.ResponseWriter, req *http.Request) {
	f, err := r.reportFilter(req)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var buf bytes.Buffer
	if err := r.reports.WriteCSV(req.Context(), caller(req), f, &buf); err != nil {
		respondErr(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+reports.CSVFilename)
	w.Write(buf.Bytes())
}
