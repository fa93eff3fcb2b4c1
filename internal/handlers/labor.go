package handlers

import (
	"net/http"

	"github.com/xelth-com/agrocampo/internal/services/labor"
)

// listLabor returns the caller's visible labor events, newest first
func (r *Router) listLabor(w http.ResponseWriter, req *http.Request) {
	var (
		p   labor.ListParams
		err error
	)
	p.Search = req.URL.Query().Get("search")
	if p.Page, err = queryInt(req, "page"); err != nil {
		respondErr(w, req, err)
		return
	}
	if p.PageSize, err = queryInt(req, "limit"); err != nil {
		respondErr(w, req, err)
		return
	}
	if p.CropID, err = queryID(req, "cultivoId"); err != nil {
		respondErr(w, req, err)
		return
	}
	if p.LaborTypeID, err = queryID(req, "tipoLaborId"); err != nil {
		respondErr(w, req, err)
		return
	}

	page, err := r.labor.List(req.Context(), caller(req), p)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (r *Router) getLabor(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	view, err := r.labor.Get(req.Context(), caller(req), id)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (r *Router) createLabor(w http.ResponseWriter, req *http.Request) {
	var in labor.Input
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	view, err := r.labor.Create(req.Context(), caller(req), in)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (r *Router) updateLabor(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in labor.Input
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	view, err := r.labor.Update(req.Context(), caller(req), id, in)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (r *Router) deleteLabor(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.labor.Delete(req.Context(), caller(req), id); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Labor agrícola eliminada exitosamente"})
}
