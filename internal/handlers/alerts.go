package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/xelth-com/agrocampo/internal/services/alerts"
)

func (r *Router) listAlerts(w http.ResponseWriter, req *http.Request) {
	var (
		p   alerts.ListParams
		err error
	)
	q := req.URL.Query()
	p.Type = q.Get("tipo")
	p.Severity = q.Get("severidad")
	if p.Resolved, err = queryBool(req, "resuelta"); err != nil {
		respondErr(w, req, err)
		return
	}
	if p.Page, err = queryInt(req, "page"); err != nil {
		respondErr(w, req, err)
		return
	}
	if p.PageSize, err = queryInt(req, "limit"); err != nil {
		respondErr(w, req, err)
		return
	}

	page, err := r.alerts.List(req.Context(), p)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (r *Router) getAlert(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	alert, err := r.alerts.Get(req.Context(), id)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (r *Router) createAlert(w http.ResponseWriter, req *http.Request) {
	var in alerts.Input
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	alert, err := r.alerts.Create(req.Context(), in)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

func (r *Router) updateAlert(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in alerts.Input
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	alert, err := r.alerts.Update(req.Context(), id, in)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (r *Router) deleteAlert(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.alerts.Delete(req.Context(), id); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Alerta eliminada exitosamente"})
}

// evaluateAlerts runs the rule engine immediately instead of waiting for the next tick
func (r *Router) evaluateAlerts(w http.ResponseWriter, req *http.Request) {
	report, err := r.engine.RunOnce(req.Context())
	if err != nil {
		respondErr(w, req, err)
		return
	}
	zerolog.Ctx(req.Context()).Info().
		Int("created", len(report.Created)).
		Int("suppressed", len(report.Suppressed)).
		Int("failed", len(report.Failed)).
		Msg("manual alert evaluation")
	respondJSON(w, http.StatusOK, report)
}
