package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/services/printer"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlotInput is the body for plot create and update
type PlotInput struct {
	Name         *string         `json:"nombre_lote" validate:"omitempty,max=100"`
	AreaHectares *float64        `json:"area_hectareas" validate:"omitempty,gte=0"`
	CropID       *uint           `json:"id_cultivo"`
	SupervisorID *uint           `json:"id_supervisor"`
	Polygon      json.RawMessage `json:"ubicacion_gps_poligono"`
}

// PlotSupervisorInput carries a nullable supervisor assignment
type PlotSupervisorInput struct {
	SupervisorID *uint `json:"id_supervisor"`
}

func polygonValue(raw json.RawMessage) (datatypes.JSON, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	// Only GeoJSON-like objects or coordinate arrays are stored
	if (s[0] != '{' && s[0] != '[') || !json.Valid(raw) {
		return nil, apierror.BadRequest("ubicacion_gps_poligono debe ser un objeto o arreglo JSON")
	}
	return datatypes.JSON(raw), nil
}

func (r *Router) loadPlot(ctx context.Context, plot *models.Plot, id uint) error {
	err := r.db.WithContext(ctx).Preload("Crop").First(plot, "id_lote = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound("Lote no encontrado")
	}
	return err
}

// checkPlotRefs validates the optional crop and supervisor references
func (r *Router) checkPlotRefs(ctx context.Context, cropID, supervisorID *uint) error {
	if cropID != nil {
		var crop models.Crop
		if err := r.findByID(ctx, &crop, "id_cultivo", *cropID, "Cultivo no encontrado"); err != nil {
			return err
		}
	}
	if supervisorID != nil {
		return r.requireUserRole(ctx, *supervisorID, access.RoleSupervisor, "El usuario no tiene rol de supervisor")
	}
	return nil
}

func (r *Router) listPlots(w http.ResponseWriter, req *http.Request) {
	cropID, err := queryID(req, "cultivoId")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	q := r.db.WithContext(req.Context()).Preload("Crop").Order("nombre_lote")
	if cropID != nil {
		q = q.Where("id_cultivo = ?", *cropID)
	}
	plots := []models.Plot{}
	if err := q.Find(&plots).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, plots)
}

func (r *Router) getPlot(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var plot models.Plot
	if err := r.loadPlot(req.Context(), &plot, id); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, plot)
}

func (r *Router) createPlot(w http.ResponseWriter, req *http.Request) {
	var in PlotInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	name, err := requiredText("nombre_lote", in.Name)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	polygon, err := polygonValue(in.Polygon)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	ctx := req.Context()
	if err := r.checkPlotRefs(ctx, in.CropID, in.SupervisorID); err != nil {
		respondErr(w, req, err)
		return
	}

	plot := models.Plot{
		Name:         name,
		AreaHectares: in.AreaHectares,
		CropID:       in.CropID,
		SupervisorID: in.SupervisorID,
		Polygon:      polygon,
		CreatedAt:    r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&plot).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.loadPlot(ctx, &plot, plot.ID); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, plot)
}

func (r *Router) updatePlot(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in PlotInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	ctx := req.Context()
	var plot models.Plot
	if err := r.loadPlot(ctx, &plot, id); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.checkPlotRefs(ctx, in.CropID, in.SupervisorID); err != nil {
		respondErr(w, req, err)
		return
	}

	changes := map[string]interface{}{}
	if in.Name != nil {
		name, err := requiredText("nombre_lote", in.Name)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["nombre_lote"] = name
	}
	if in.AreaHectares != nil {
		changes["area_hectareas"] = *in.AreaHectares
	}
	if in.CropID != nil {
		changes["id_cultivo"] = *in.CropID
	}
	if in.SupervisorID != nil {
		changes["id_supervisor"] = *in.SupervisorID
	}
	if len(in.Polygon) > 0 {
		polygon, err := polygonValue(in.Polygon)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["ubicacion_gps_poligono"] = polygon
	}
	if len(changes) > 0 {
		if err := r.db.WithContext(ctx).Model(&models.Plot{}).Where("id_lote = ?", id).Updates(changes).Error; err != nil {
			respondErr(w, req, err)
			return
		}
	}
	if err := r.loadPlot(ctx, &plot, id); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, plot)
}

func (r *Router) deletePlot(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.ensureUnused(req.Context(), "id_lote", id, "el lote"); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.deleteByID(req.Context(), &models.Plot{}, "id_lote", id, "Lote no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Lote eliminado exitosamente"})
}

// assignPlotSupervisor sets or clears the administrative supervisor of a plot
func (r *Router) assignPlotSupervisor(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in PlotSupervisorInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	ctx := req.Context()
	var plot models.Plot
	if err := r.loadPlot(ctx, &plot, id); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.checkPlotRefs(ctx, nil, in.SupervisorID); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.db.WithContext(ctx).Model(&models.Plot{}).
		Where("id_lote = ?", id).
		Update("id_supervisor", in.SupervisorID).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	plot.SupervisorID = in.SupervisorID
	respondJSON(w, http.StatusOK, plot)
}

// plotLabels renders a QR label sheet for the requested plots, or all of
// them when no ids are given
func (r *Router) plotLabels(w http.ResponseWriter, req *http.Request) {
	ids, err := parseIDList(req.URL.Query().Get("ids"))
	if err != nil {
		respondErr(w, req, err)
		return
	}
	q := r.db.WithContext(req.Context()).Preload("Crop").Order("nombre_lote")
	if len(ids) > 0 {
		q = q.Where("id_lote IN ?", ids)
	}
	var plots []models.Plot
	if err := q.Find(&plots).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	if len(plots) == 0 {
		respondErr(w, req, apierror.NotFound("No hay lotes para imprimir"))
		return
	}

	labels := make([]printer.PlotLabel, 0, len(plots))
	for _, p := range plots {
		label := printer.PlotLabel{ID: p.ID, Name: p.Name, Code: printer.PlotCode(p.ID)}
		if p.Crop != nil {
			label.Crop = p.Crop.Name
		}
		labels = append(labels, label)
	}

	pdfBytes, err := printer.GeneratePlotLabelsPDF(labels, printer.DefaultLabelLayout())
	if err != nil {
		respondErr(w, req, apierror.Internal("No se pudo generar el PDF", err))
		return
	}

	zerolog.Ctx(req.Context()).Info().Int("labels", len(labels)).Msg("plot labels generated")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=etiquetas_lotes_%d.pdf", len(labels)))
	w.Write(pdfBytes)
}

// parseIDList reads a comma separated list of positive ids
func parseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n == 0 {
			return nil, apierror.BadRequest("ids debe ser una lista de identificadores numéricos")
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}
