package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/notify"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

// Input is the body for manual alert create and update
type Input struct {
	LaborID     *uint   `json:"id_labor" validate:"omitempty,gt=0"`
	PlotID      *uint   `json:"id_lote" validate:"omitempty,gt=0"`
	Type        *string `json:"tipo_alerta" validate:"omitempty,max=50"`
	Description *string `json:"descripcion"`
	Severity    *string `json:"nivel_severidad" validate:"omitempty,oneof=BAJA MEDIA ALTA"`
	Resolved    *bool   `json:"resuelta"`
}

// ListParams filters the alert list
type ListParams struct {
	Resolved *bool
	Type     string
	Severity string
	Page     int
	PageSize int
}

// Page is one page of alerts, newest first
type Page struct {
	Items      []models.Alert `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// Service manages alert records and publishes their changes
type Service struct {
	db  *gorm.DB
	pub notify.Publisher
	loc *time.Location
	now func() time.Time
}

// NewService builds the alert service. loc defines the calendar day used for
// the one open alert per type and day rule
func NewService(db *gorm.DB, pub notify.Publisher, loc *time.Location) *Service {
	if pub == nil {
		pub = notify.Discard{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{db: db, pub: pub, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// checkOpenClash rejects a second unresolved alert of the same type on the
// local day of createdAt
func (s *Service) checkOpenClash(ctx context.Context, alertType string, createdAt time.Time, exclude uint) error {
	start, end := utils.DayBounds(createdAt, s.loc)
	q := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("tipo_alerta = ? AND resuelta = ? AND fecha_creacion >= ? AND fecha_creacion < ?", alertType, false, start, end)
	if exclude != 0 {
		q = q.Where("id_alerta <> ?", exclude)
	}
	var open int64
	if err := q.Count(&open).Error; err != nil {
		return apierror.Internal("Error al verificar alertas abiertas", err)
	}
	if open > 0 {
		return apierror.Conflict(fmt.Sprintf("Ya existe una alerta %s abierta para este día", alertType))
	}
	return nil
}

func (s *Service) List(ctx context.Context, p ListParams) (Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}

	q := s.db.WithContext(ctx).Model(&models.Alert{})
	if p.Resolved != nil {
		q = q.Where("resuelta = ?", *p.Resolved)
	}
	if p.Type != "" {
		q = q.Where("tipo_alerta = ?", strings.ToUpper(p.Type))
	}
	if p.Severity != "" {
		q = q.Where("nivel_severidad = ?", strings.ToUpper(p.Severity))
	}

	page := Page{Items: []models.Alert{}, Page: p.Page, PageSize: p.PageSize}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return Page{}, apierror.Internal("Error al listar alertas", err)
	}
	page.TotalPages = int((page.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
	err := q.Order("fecha_creacion DESC").Order("id_alerta DESC").
		Limit(p.PageSize).Offset((p.Page - 1) * p.PageSize).
		Find(&page.Items).Error
	if err != nil {
		return Page{}, apierror.Internal("Error al listar alertas", err)
	}
	return page, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	err := s.db.WithContext(ctx).First(&alert, "id_alerta = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("Alerta no encontrada")
	}
	if err != nil {
		return nil, apierror.Internal("Error al obtener alerta", err)
	}
	return &alert, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Alert, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if in.Type == nil || strings.TrimSpace(*in.Type) == "" {
		return nil, apierror.BadRequest("tipo_alerta es requerido")
	}
	alert := &models.Alert{
		LaborID:  in.LaborID,
		PlotID:   in.PlotID,
		Type:     strings.ToUpper(strings.TrimSpace(*in.Type)),
		Severity:  models.SeverityMedium,
		CreatedAt: s.now().UTC(),
	}
	if in.Description != nil {
		alert.Description = *in.Description
	}
	if in.Severity != nil {
		alert.Severity = *in.Severity
	}
	if in.Resolved != nil {
		alert.Resolved = *in.Resolved
	}
	if !alert.Resolved {
		if err := s.checkOpenClash(ctx, alert.Type, alert.CreatedAt, 0); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, apierror.Internal("Error al crear alerta", err)
	}
	s.pub.Publish(notify.AlertCreated, alert)
	return alert, nil
}

// Update applies the supplied fields; flipping resuelta closes an alert
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Alert, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if in.LaborID != nil {
		changes["id_labor"] = *in.LaborID
	}
	if in.PlotID != nil {
		changes["id_lote"] = *in.PlotID
	}
	if in.Type != nil && strings.TrimSpace(*in.Type) != "" {
		changes["tipo_alerta"] = strings.ToUpper(strings.TrimSpace(*in.Type))
	}
	if in.Description != nil {
		changes["descripcion"] = *in.Description
	}
	if in.Severity != nil {
		changes["nivel_severidad"] = *in.Severity
	}
	if in.Resolved != nil {
		changes["resuelta"] = *in.Resolved
	}
	resolved := alert.Resolved
	if in.Resolved != nil {
		resolved = *in.Resolved
	}
	newType, retyped := changes["tipo_alerta"].(string)
	if !resolved && (alert.Resolved || retyped) {
		if !retyped {
			newType = alert.Type
		}
		if err := s.checkOpenClash(ctx, newType, alert.CreatedAt, alert.ID); err != nil {
			return nil, err
		}
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(alert).Updates(changes).Error; err != nil {
			return nil, apierror.Internal(fmt.Sprintf("Error al actualizar alerta %d", id), err)
		}
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("id_alerta", id).Interface("changes", changes).Msg("alert updated")
	s.pub.Publish(notify.AlertUpdated, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Alert{}, "id_alerta = ?", id)
	if res.Error != nil {
		return apierror.Internal("Error al eliminar alerta", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("Alerta no encontrada")
	}
	s.pub.Publish(notify.AlertDeleted, map[string]uint{"id_alerta": id})
	return nil
}
