package labor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery selects a page of labor events
type ListQuery struct {
	Scope       access.Scope
	Search      string
	CropID      *uint
	LaborTypeID *uint
	Page        int
	PageSize    int
}

func (q *ListQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// Page is one page of joined labor events
type Page struct {
	Items      []models.LaborEventView `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"limit"`
	TotalPages int                     `json:"totalPages"`
}

// Store persists labor events
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

const viewColumns = "la.*, c.nombre_cultivo, l.nombre_lote, t.nombre_completo AS nombre_trabajador, lt.nombre_labor"

// joined returns labor events joined with the names of their references
func (s *Store) joined(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("labores_agricolas AS la").
		Joins("LEFT JOIN cultivos c ON c.id_cultivo = la.id_cultivo").
		Joins("LEFT JOIN lotes l ON l.id_lote = la.id_lote").
		Joins("LEFT JOIN trabajadores t ON t.id_trabajador = la.id_trabajador").
		Joins("LEFT JOIN labores_tipos lt ON lt.id_labor_tipo = la.id_labor_tipo")
}

// ApplyScope narrows a query over labor events aliased "la" to the scope.
// An empty restricted scope matches nothing
func ApplyScope(q *gorm.DB, scope access.Scope) *gorm.DB {
	switch {
	case scope.Kind == access.ScopeUnrestricted:
		return q
	case scope.Empty():
		return q.Where("1 = 0")
	case len(scope.WorkerIDs) == 1:
		return q.Where("la.id_trabajador = ?", scope.WorkerIDs[0])
	default:
		return q.Where("la.id_trabajador IN ?", scope.WorkerIDs)
	}
}

// likeEscaper makes user search text match literally inside LIKE patterns
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// List returns a page of events visible under q.Scope, newest first
func (s *Store) List(ctx context.Context, q ListQuery) (Page, error) {
	q.normalize()
	page := Page{Items: []models.LaborEventView{}, Page: q.Page, PageSize: q.PageSize}
	if q.Scope.Empty() {
		return page, nil
	}

	base := ApplyScope(s.joined(ctx), q.Scope)
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		base = base.Where(
			`LOWER(t.nombre_completo) LIKE ? ESCAPE '\' OR LOWER(c.nombre_cultivo) LIKE ? ESCAPE '\' OR `+
				`LOWER(l.nombre_lote) LIKE ? ESCAPE '\' OR LOWER(lt.nombre_labor) LIKE ? ESCAPE '\'`,
			like, like, like, like,
		)
	}
	if q.CropID != nil {
		base = base.Where("la.id_cultivo = ?", *q.CropID)
	}
	if q.LaborTypeID != nil {
		base = base.Where("la.id_labor_tipo = ?", *q.LaborTypeID)
	}

	if err := base.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return Page{}, fmt.Errorf("count labor events: %w", err)
	}
	page.TotalPages = int((page.Total + int64(q.PageSize) - 1) / int64(q.PageSize))
	if page.Total == 0 {
		return page, nil
	}

	err := base.Select(viewColumns).
		Order("la.fecha_labor DESC").
		Order("la.id_labor ASC").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Find(&page.Items).Error
	if err != nil {
		return Page{}, fmt.Errorf("list labor events: %w", err)
	}
	return page, nil
}

// Find loads the raw event
func (s *Store) Find(ctx context.Context, id uint) (*models.LaborEvent, error) {
	var ev models.LaborEvent
	err := s.db.WithContext(ctx).First(&ev, "id_labor = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("Labor agrícola no encontrada")
	}
	if err != nil {
		return nil, fmt.Errorf("find labor event %d: %w", id, err)
	}
	return &ev, nil
}

// Get loads the joined view of an event
func (s *Store) Get(ctx context.Context, id uint) (*models.LaborEventView, error) {
	var views []models.LaborEventView
	err := s.joined(ctx).Select(viewColumns).Where("la.id_labor = ?", id).Limit(1).Find(&views).Error
	if err != nil {
		return nil, fmt.Errorf("get labor event %d: %w", id, err)
	}
	if len(views) == 0 {
		return nil, apierror.NotFound("Labor agrícola no encontrada")
	}
	return &views[0], nil
}

func (s *Store) Create(ctx context.Context, ev *models.LaborEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("create labor event: %w", err)
	}
	return nil
}

// Update applies a partial change set keyed by column name
func (s *Store) Update(ctx context.Context, id uint, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.LaborEvent{}).Where("id_labor = ?", id).Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("update labor event %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("Labor agrícola no encontrada")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.LaborEvent{}, "id_labor = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete labor event %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("Labor agrícola no encontrada")
	}
	return nil
}

// reference is a foreign key the store checks before writing
type reference struct {
	field string
	model interface{}
	pk    string
	id    uint
}

// checkReferences reports the first referenced row that does not exist
func (s *Store) checkReferences(ctx context.Context, refs ...reference) error {
	for _, ref := range refs {
		var n int64
		err := s.db.WithContext(ctx).Model(ref.model).Where(ref.pk+" = ?", ref.id).Count(&n).Error
		if err != nil {
			return fmt.Errorf("check %s: %w", ref.field, err)
		}
		if n == 0 {
			return apierror.BadRequest(fmt.Sprintf("%s %d no existe", ref.field, ref.id))
		}
	}
	return nil
}
