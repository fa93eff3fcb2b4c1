// Package labor records field labor events and serves them through the
// caller's access scope
package labor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/notify"
	"github.com/xelth-com/agrocampo/internal/utils"
)

// Input is the request body for create and update. Nil fields are left
// untouched on update
type Input struct {
	PlotID       *uint               `json:"id_lote" validate:"omitempty,gt=0"`
	CropID       *uint               `json:"id_cultivo" validate:"omitempty,gt=0"`
	WorkerID     *uint               `json:"id_trabajador"`
	LaborTypeID  *uint               `json:"id_labor_tipo" validate:"omitempty,gt=0"`
	PerformedAt  *string             `json:"fecha_labor"`
	Quantity     *float64            `json:"cantidad_recolectada" validate:"omitempty,gte=0"`
	WeightKg     *float64            `json:"peso_kg" validate:"omitempty,gte=0"`
	ApproxCost   decimal.NullDecimal `json:"costo_aproximado"`
	GPSPoint     json.RawMessage     `json:"ubicacion_gps_punto"`
	Notes        *string             `json:"observaciones"`
	ScheduledFor *string             `json:"fecha_programada"`
	Completed    *bool               `json:"completada"`
}

// ListParams are the list filters accepted from clients
type ListParams struct {
	Search      string
	CropID      *uint
	LaborTypeID *uint
	Page        int
	PageSize    int
}

// Service applies access rules around the labor event store and publishes
// every mutation
type Service struct {
	store *Store
	gate  *access.Gate
	pub   notify.Publisher
	loc   *time.Location
}

func NewService(store *Store, gate *access.Gate, pub notify.Publisher, loc *time.Location) *Service {
	if pub == nil {
		pub = notify.Discard{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, gate: gate, pub: pub, loc: loc}
}

func (s *Service) List(ctx context.Context, id access.Identity, p ListParams) (Page, error) {
	scope, err := s.gate.Scope(ctx, id)
	if err != nil {
		return Page{}, err
	}
	page, err := s.store.List(ctx, ListQuery{
		Scope:       scope,
		Search:      p.Search,
		CropID:      p.CropID,
		LaborTypeID: p.LaborTypeID,
		Page:        p.Page,
		PageSize:    p.PageSize,
	})
	if err != nil {
		return Page{}, apierror.From(err)
	}
	return page, nil
}

func (s *Service) Get(ctx context.Context, id access.Identity, eventID uint) (*models.LaborEventView, error) {
	view, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, apierror.From(err)
	}
	if err := s.gate.AuthorizeRead(ctx, id, targetOf(&view.LaborEvent)); err != nil {
		return nil, err
	}
	return view, nil
}

// Create records a new event. The registering user is always the caller and
// the edit deadline is derived from the creation time
func (s *Service) Create(ctx context.Context, id access.Identity, in Input) (*models.LaborEventView, error) {
	workerID, err := s.gate.AuthorizeCreate(ctx, id, in.WorkerID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var missing []string
	if in.PlotID == nil {
		missing = append(missing, "id_lote")
	}
	if in.CropID == nil {
		missing = append(missing, "id_cultivo")
	}
	if in.LaborTypeID == nil {
		missing = append(missing, "id_labor_tipo")
	}
	if in.PerformedAt == nil || strings.TrimSpace(*in.PerformedAt) == "" {
		missing = append(missing, "fecha_labor")
	}
	if len(missing) > 0 {
		return nil, apierror.BadRequest("Campos requeridos: " + strings.Join(missing, ", "))
	}

	performedAt, err := utils.ParseDate("fecha_labor", *in.PerformedAt, s.loc)
	if err != nil {
		return nil, err
	}
	gps, err := utils.NormalizeGPS(in.GPSPoint)
	if err != nil {
		return nil, err
	}
	scheduled, err := s.optionalDate("fecha_programada", in.ScheduledFor)
	if err != nil {
		return nil, err
	}

	err = s.store.checkReferences(ctx,
		reference{"id_lote", &models.Plot{}, "id_lote", *in.PlotID},
		reference{"id_cultivo", &models.Crop{}, "id_cultivo", *in.CropID},
		reference{"id_trabajador", &models.Worker{}, "id_trabajador", workerID},
		reference{"id_labor_tipo", &models.LaborType{}, "id_labor_tipo", *in.LaborTypeID},
	)
	if err != nil {
		return nil, apierror.From(err)
	}

	now := s.gate.Now().UTC()
	deadline := s.gate.Window().DeadlineFor(now)
	ev := &models.LaborEvent{
		PlotID:       *in.PlotID,
		CropID:       *in.CropID,
		WorkerID:     workerID,
		LaborTypeID:  *in.LaborTypeID,
		RegisteredBy: id.UserID,
		PerformedAt:  performedAt,
		Quantity:     in.Quantity,
		WeightKg:     in.WeightKg,
		ApproxCost:   in.ApproxCost,
		GPSPoint:     gps,
		Notes:        in.Notes,
		EditDeadline: &deadline,
		ScheduledFor: scheduled,
		Completed:    in.Completed != nil && *in.Completed,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return nil, apierror.From(err)
	}

	view, err := s.store.Get(ctx, ev.ID)
	if err != nil {
		return nil, apierror.From(err)
	}
	log.Info().Uint("id_labor", ev.ID).Uint("id_trabajador", workerID).Uint("user", id.UserID).Msg("labor event created")
	s.pub.Publish(notify.LaborCreated, view)
	return view, nil
}

// Update applies the supplied fields. Existence is resolved before
// permission, and nothing is written unless every check passes
func (s *Service) Update(ctx context.Context, id access.Identity, eventID uint, in Input) (*models.LaborEventView, error) {
	current, err := s.store.Find(ctx, eventID)
	if err != nil {
		return nil, apierror.From(err)
	}
	if err := s.gate.AuthorizeUpdate(ctx, id, targetOf(current), in.WorkerID); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{
		"id_usuario_registro": id.UserID,
	}
	var refs []reference
	if in.PlotID != nil {
		changes["id_lote"] = *in.PlotID
		refs = append(refs, reference{"id_lote", &models.Plot{}, "id_lote", *in.PlotID})
	}
	if in.CropID != nil {
		changes["id_cultivo"] = *in.CropID
		refs = append(refs, reference{"id_cultivo", &models.Crop{}, "id_cultivo", *in.CropID})
	}
	if in.WorkerID != nil && *in.WorkerID != 0 {
		changes["id_trabajador"] = *in.WorkerID
		refs = append(refs, reference{"id_trabajador", &models.Worker{}, "id_trabajador", *in.WorkerID})
	}
	if in.LaborTypeID != nil {
		changes["id_labor_tipo"] = *in.LaborTypeID
		refs = append(refs, reference{"id_labor_tipo", &models.LaborType{}, "id_labor_tipo", *in.LaborTypeID})
	}
	if in.PerformedAt != nil {
		t, err := utils.ParseDate("fecha_labor", *in.PerformedAt, s.loc)
		if err != nil {
			return nil, err
		}
		changes["fecha_labor"] = t
	}
	if in.Quantity != nil {
		changes["cantidad_recolectada"] = *in.Quantity
	}
	if in.WeightKg != nil {
		changes["peso_kg"] = *in.WeightKg
	}
	if in.ApproxCost.Valid {
		changes["costo_aproximado"] = in.ApproxCost
	}
	gps, err := utils.NormalizeGPS(in.GPSPoint)
	if err != nil {
		return nil, err
	}
	if gps != nil {
		changes["ubicacion_gps_punto"] = *gps
	}
	if in.Notes != nil {
		changes["observaciones"] = *in.Notes
	}
	if in.ScheduledFor != nil {
		scheduled, err := s.optionalDate("fecha_programada", in.ScheduledFor)
		if err != nil {
			return nil, err
		}
		changes["fecha_programada"] = scheduled
	}
	if in.Completed != nil {
		changes["completada"] = *in.Completed
	}

	if err := s.store.checkReferences(ctx, refs...); err != nil {
		return nil, apierror.From(err)
	}
	if err := s.store.Update(ctx, eventID, changes); err != nil {
		return nil, apierror.From(err)
	}

	view, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, apierror.From(err)
	}
	log.Info().Uint("id_labor", eventID).Uint("user", id.UserID).Int("fields", len(changes)).Msg("labor event updated")
	s.pub.Publish(notify.LaborUpdated, view)
	return view, nil
}

// Delete removes an event. Only administrators may delete
func (s *Service) Delete(ctx context.Context, id access.Identity, eventID uint) error {
	if err := s.gate.AuthorizeDelete(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, eventID); err != nil {
		return apierror.From(err)
	}
	log.Info().Uint("id_labor", eventID).Uint("user", id.UserID).Msg("labor event deleted")
	s.pub.Publish(notify.LaborDeleted, map[string]uint{"id_labor": eventID})
	return nil
}

func (s *Service) optionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(field, *value, s.loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func validateInput(in Input) error {
	if err := utils.Validate(in); err != nil {
		return err
	}
	if in.ApproxCost.Valid && in.ApproxCost.Decimal.IsNegative() {
		return apierror.BadRequest("costo_aproximado no puede ser negativo")
	}
	return nil
}

func targetOf(ev *models.LaborEvent) access.Target {
	return access.Target{WorkerID: ev.WorkerID, EditDeadline: ev.EditDeadline}
}
