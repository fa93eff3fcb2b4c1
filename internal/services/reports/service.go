// Package reports aggregates labor events into production reports and
// dashboards. Every report is restricted to the caller's access scope
package reports

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/services/labor"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

const (
	dayLayout          = "2006-01-02"
	defaultHistoryDays = 30
	defaultDetailLimit = 10
	maxDetailLimit     = 100
)

// DailyProduction is the output of one crop on one day
type DailyProduction struct {
	Date     string  `json:"fecha"`
	Crop     string  `json:"nombre_cultivo"`
	Quantity float64 `json:"cantidad_total"`
	WeightKg float64 `json:"peso_total"`
	Events   int     `json:"numero_labores"`
}

// PlotYield is the output of one crop on one plot
type PlotYield struct {
	Plot        string  `gorm:"column:nombre_lote" json:"nombre_lote"`
	Crop        string  `gorm:"column:nombre_cultivo" json:"nombre_cultivo"`
	Quantity    float64 `gorm:"column:cantidad_total" json:"cantidad_total"`
	WeightKg    float64 `gorm:"column:peso_total" json:"peso_total"`
	AvgQuantity float64 `gorm:"column:promedio_cantidad" json:"promedio_cantidad"`
	Events      int64   `gorm:"column:numero_labores" json:"numero_labores"`
}

// WorkerEfficiency is the output and cost of one worker
type WorkerEfficiency struct {
	Worker      string          `gorm:"column:trabajador" json:"trabajador"`
	Events      int64           `gorm:"column:numero_labores" json:"numero_labores"`
	Quantity    float64         `gorm:"column:cantidad_total" json:"cantidad_total"`
	WeightKg    float64         `gorm:"column:peso_total" json:"peso_total"`
	AvgQuantity float64         `gorm:"column:promedio_cantidad" json:"promedio_cantidad"`
	TotalCost   decimal.Decimal `gorm:"column:costo_total" json:"costo_total"`
}

// LaborHistory counts one labor type on one day
type LaborHistory struct {
	Date     string  `json:"fecha"`
	Labor    string  `json:"nombre_labor"`
	Events   int     `json:"numero_labores"`
	Quantity float64 `json:"cantidad_total"`
	WeightKg float64 `json:"peso_total"`
}

// Detail is one labor event as listed in the detailed report and exports
type Detail struct {
	ID           uint            `gorm:"column:id_labor" json:"id_labor"`
	PerformedAt  time.Time       `gorm:"column:fecha_labor" json:"fecha_labor"`
	Labor        string          `gorm:"column:nombre_labor" json:"nombre_labor"`
	Crop         string          `gorm:"column:nombre_cultivo" json:"nombre_cultivo"`
	Plot         string          `gorm:"column:nombre_lote" json:"nombre_lote"`
	Worker       string          `gorm:"column:trabajador" json:"trabajador"`
	Quantity     float64         `gorm:"column:cantidad_recolectada" json:"cantidad_recolectada"`
	WeightKg     float64         `gorm:"column:peso_kg" json:"peso_kg"`
	Cost         decimal.Decimal `gorm:"column:costo_aproximado" json:"costo_aproximado"`
	RegisteredBy string          `gorm:"column:usuario_registro" json:"usuario_registro"`
}

// Pagination describes a page of the detailed report
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// DetailPage is one page of the detailed report
type DetailPage struct {
	Data       []Detail   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// DashboardRow is the daily production of one crop on one plot
type DashboardRow struct {
	Date          string          `json:"fecha"`
	PlotID        uint            `json:"id_lote"`
	Plot          string          `json:"nombre_lote"`
	CropID        uint            `json:"id_cultivo"`
	Crop          string          `json:"nombre_cultivo"`
	TotalWeightKg float64         `json:"total_peso_kg"`
	PerWorkerKg   float64         `json:"productividad_promedio_trabajador"`
	TotalCost     decimal.Decimal `json:"costo_total_aproximado"`
	Events        int             `json:"numero_labores"`
	Workers       int             `json:"numero_trabajadores"`
}

// fact is the per-event projection that day-grouped reports aggregate
type fact struct {
	PerformedAt time.Time       `gorm:"column:fecha_labor"`
	PlotID      uint            `gorm:"column:id_lote"`
	Plot        string          `gorm:"column:nombre_lote"`
	CropID      uint            `gorm:"column:id_cultivo"`
	Crop        string          `gorm:"column:nombre_cultivo"`
	Labor       string          `gorm:"column:nombre_labor"`
	WorkerID    uint            `gorm:"column:id_trabajador"`
	Quantity    float64         `gorm:"column:cantidad"`
	WeightKg    float64         `gorm:"column:peso"`
	Cost        decimal.Decimal `gorm:"column:costo"`
}

// Service runs report queries
type Service struct {
	db   *gorm.DB
	gate *access.Gate
	loc  *time.Location
}

func NewService(db *gorm.DB, gate *access.Gate, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{db: db, gate: gate, loc: loc}
}

// Location is the timezone calendar days are computed in
func (s *Service) Location() *time.Location {
	return s.loc
}

// scoped returns the joined, filtered event query for the caller. ok is
// false when the caller's scope matches nothing
func (s *Service) scoped(ctx context.Context, id access.Identity, f Filter) (q *gorm.DB, ok bool, err error) {
	scope, err := s.gate.Scope(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if scope.Empty() {
		return nil, false, nil
	}
	q = s.db.WithContext(ctx).
		Table("labores_agricolas AS la").
		Joins("LEFT JOIN cultivos c ON c.id_cultivo = la.id_cultivo").
		Joins("LEFT JOIN lotes l ON l.id_lote = la.id_lote").
		Joins("LEFT JOIN trabajadores t ON t.id_trabajador = la.id_trabajador").
		Joins("LEFT JOIN labores_tipos lt ON lt.id_labor_tipo = la.id_labor_tipo")
	return f.apply(labor.ApplyScope(q, scope)), true, nil
}

func (s *Service) facts(ctx context.Context, id access.Identity, f Filter) ([]fact, error) {
	q, ok, err := s.scoped(ctx, id, f)
	if err != nil || !ok {
		return nil, err
	}
	var rows []fact
	err = q.Select(`la.fecha_labor, la.id_lote, COALESCE(l.nombre_lote, '') AS nombre_lote,
		la.id_cultivo, COALESCE(c.nombre_cultivo, '') AS nombre_cultivo,
		COALESCE(lt.nombre_labor, '') AS nombre_labor, la.id_trabajador,
		COALESCE(la.cantidad_recolectada, 0) AS cantidad, COALESCE(la.peso_kg, 0) AS peso,
		COALESCE(la.costo_aproximado, 0) AS costo`).
		Order("la.fecha_labor ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apierror.Internal("Error al consultar labores", err)
	}
	return rows, nil
}

func (s *Service) day(t time.Time) string {
	return t.In(s.loc).Format(dayLayout)
}

// DailyProduction groups output by calendar day and crop, newest day first
func (s *Service) DailyProduction(ctx context.Context, id access.Identity, f Filter) ([]DailyProduction, error) {
	facts, err := s.facts(ctx, id, f)
	if err != nil {
		return nil, err
	}

	type key struct{ date, crop string }
	index := map[key]*DailyProduction{}
	out := []DailyProduction{}
	var order []key
	for _, r := range facts {
		k := key{s.day(r.PerformedAt), r.Crop}
		row, found := index[k]
		if !found {
			row = &DailyProduction{Date: k.date, Crop: k.crop}
			index[k] = row
			order = append(order, k)
		}
		row.Quantity += r.Quantity
		row.WeightKg += r.WeightKg
		row.Events++
	}
	for _, k := range order {
		out = append(out, *index[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Crop < out[j].Crop
	})
	return out, nil
}

// PlotYield groups output by plot and crop, heaviest first
func (s *Service) PlotYield(ctx context.Context, id access.Identity, f Filter) ([]PlotYield, error) {
	q, ok, err := s.scoped(ctx, id, f)
	if err != nil {
		return nil, err
	}
	out := []PlotYield{}
	if !ok {
		return out, nil
	}
	err = q.Select(`COALESCE(l.nombre_lote, '') AS nombre_lote, COALESCE(c.nombre_cultivo, '') AS nombre_cultivo,
		COALESCE(SUM(la.cantidad_recolectada), 0) AS cantidad_total,
		COALESCE(SUM(la.peso_kg), 0) AS peso_total,
		COALESCE(AVG(la.cantidad_recolectada), 0) AS promedio_cantidad,
		COUNT(la.id_labor) AS numero_labores`).
		Group("l.id_lote, l.nombre_lote, c.id_cultivo, c.nombre_cultivo").
		Order("peso_total DESC").
		Order("nombre_lote ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apierror.Internal("Error al obtener rendimiento por lote", err)
	}
	return out, nil
}

// WorkerEfficiency groups output and cost by worker, heaviest first
func (s *Service) WorkerEfficiency(ctx context.Context, id access.Identity, f Filter) ([]WorkerEfficiency, error) {
	q, ok, err := s.scoped(ctx, id, f)
	if err != nil {
		return nil, err
	}
	out := []WorkerEfficiency{}
	if !ok {
		return out, nil
	}
	err = q.Select(`COALESCE(t.nombre_completo, '') AS trabajador,
		COUNT(la.id_labor) AS numero_labores,
		COALESCE(SUM(la.cantidad_recolectada), 0) AS cantidad_total,
		COALESCE(SUM(la.peso_kg), 0) AS peso_total,
		COALESCE(AVG(la.cantidad_recolectada), 0) AS promedio_cantidad,
		COALESCE(SUM(la.costo_aproximado), 0) AS costo_total`).
		Group("t.id_trabajador, t.nombre_completo").
		Order("peso_total DESC").
		Order("trabajador ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apierror.Internal("Error al obtener eficiencia por trabajador", err)
	}
	return out, nil
}

// LaborHistory groups events by calendar day and labor type, oldest first
func (s *Service) LaborHistory(ctx context.Context, id access.Identity, f Filter) ([]LaborHistory, error) {
	facts, err := s.facts(ctx, id, f)
	if err != nil {
		return nil, err
	}

	type key struct{ date, labor string }
	index := map[key]*LaborHistory{}
	var order []key
	for _, r := range facts {
		k := key{s.day(r.PerformedAt), r.Labor}
		row, found := index[k]
		if !found {
			row = &LaborHistory{Date: k.date, Labor: k.labor}
			index[k] = row
			order = append(order, k)
		}
		row.Events++
		row.Quantity += r.Quantity
		row.WeightKg += r.WeightKg
	}
	out := make([]LaborHistory, 0, len(order))
	for _, k := range order {
		out = append(out, *index[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Labor < out[j].Labor
	})
	return out, nil
}

const detailColumns = `la.id_labor, la.fecha_labor,
	COALESCE(lt.nombre_labor, '') AS nombre_labor, COALESCE(c.nombre_cultivo, '') AS nombre_cultivo,
	COALESCE(l.nombre_lote, '') AS nombre_lote, COALESCE(t.nombre_completo, '') AS trabajador,
	COALESCE(la.cantidad_recolectada, 0) AS cantidad_recolectada, COALESCE(la.peso_kg, 0) AS peso_kg,
	COALESCE(la.costo_aproximado, 0) AS costo_aproximado, COALESCE(u.nombre_usuario, '') AS usuario_registro`

// Details returns one page of events, newest first
func (s *Service) Details(ctx context.Context, id access.Identity, f Filter, page, limit int) (DetailPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultDetailLimit
	}
	if limit > maxDetailLimit {
		limit = maxDetailLimit
	}
	out := DetailPage{Data: []Detail{}, Pagination: Pagination{Page: page, Limit: limit}}

	q, ok, err := s.scoped(ctx, id, f)
	if err != nil {
		return DetailPage{}, err
	}
	if !ok {
		return out, nil
	}
	if err := q.Session(&gorm.Session{}).Count(&out.Pagination.Total).Error; err != nil {
		return DetailPage{}, apierror.Internal("Error al obtener labores detalladas", err)
	}
	out.Pagination.Pages = int(math.Ceil(float64(out.Pagination.Total) / float64(limit)))
	if out.Pagination.Total == 0 {
		return out, nil
	}

	err = q.Joins("LEFT JOIN usuarios u ON u.id_usuario = la.id_usuario_registro").
		Select(detailColumns).
		Order("la.fecha_labor DESC").
		Order("la.id_labor ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&out.Data).Error
	if err != nil {
		return DetailPage{}, apierror.Internal("Error al obtener labores detalladas", err)
	}
	return out, nil
}

// AllDetails returns every matching event, newest first. Used by exports
func (s *Service) AllDetails(ctx context.Context, id access.Identity, f Filter) ([]Detail, error) {
	out := []Detail{}
	q, ok, err := s.scoped(ctx, id, f)
	if err != nil || !ok {
		return out, err
	}
	err = q.Joins("LEFT JOIN usuarios u ON u.id_usuario = la.id_usuario_registro").
		Select(detailColumns).
		Order("la.fecha_labor DESC").
		Order("la.id_labor ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apierror.Internal("Error al exportar labores", err)
	}
	return out, nil
}

// DashboardToday returns today's production per plot and crop
func (s *Service) DashboardToday(ctx context.Context, id access.Identity) ([]DashboardRow, error) {
	start, end := s.todayBounds()
	return s.dashboard(ctx, id, Filter{From: &start, To: &end})
}

// DashboardHistory returns daily production per plot and crop. Without a
// start date it covers the last 30 days
func (s *Service) DashboardHistory(ctx context.Context, id access.Identity, f Filter) ([]DashboardRow, error) {
	if f.From == nil {
		start, _ := s.todayBounds()
		from := start.In(s.loc).AddDate(0, 0, -(defaultHistoryDays - 1)).UTC()
		f.From = &from
	}
	return s.dashboard(ctx, id, f)
}

func (s *Service) todayBounds() (time.Time, time.Time) {
	return utils.DayBounds(s.gate.Now(), s.loc)
}

func (s *Service) dashboard(ctx context.Context, id access.Identity, f Filter) ([]DashboardRow, error) {
	facts, err := s.facts(ctx, id, f)
	if err != nil {
		return nil, err
	}

	type key struct {
		date       string
		plot, crop uint
	}
	index := map[key]*DashboardRow{}
	workers := map[key]map[uint]struct{}{}
	var order []key
	for _, r := range facts {
		k := key{s.day(r.PerformedAt), r.PlotID, r.CropID}
		row, found := index[k]
		if !found {
			row = &DashboardRow{Date: k.date, PlotID: r.PlotID, Plot: r.Plot, CropID: r.CropID, Crop: r.Crop, TotalCost: decimal.Zero}
			index[k] = row
			workers[k] = map[uint]struct{}{}
			order = append(order, k)
		}
		row.TotalWeightKg += r.WeightKg
		row.TotalCost = row.TotalCost.Add(r.Cost)
		row.Events++
		workers[k][r.WorkerID] = struct{}{}
	}

	out := make([]DashboardRow, 0, len(order))
	for _, k := range order {
		row := index[k]
		row.Workers = len(workers[k])
		if row.Workers > 0 {
			row.PerWorkerKg = round2(row.TotalWeightKg / float64(row.Workers))
		}
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Plot != out[j].Plot {
			return out[i].Plot < out[j].Plot
		}
		return out[i].Crop < out[j].Crop
	})
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

