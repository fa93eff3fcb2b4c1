package reports

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

// Filter narrows every report. To is an exclusive upper bound
type Filter struct {
	From        *time.Time
	To          *time.Time
	CropID      *uint
	LaborTypeID *uint
	WorkerID    *uint
}

// ParseFilter reads fechaInicio, fechaFin, cultivoId, laborId and
// trabajadorId. A date-only fechaFin includes that whole day
func ParseFilter(q url.Values, loc *time.Location) (Filter, error) {
	var f Filter

	if v := strings.TrimSpace(q.Get("fechaInicio")); v != "" {
		t, err := utils.ParseDate("fechaInicio", v, loc)
		if err != nil {
			return Filter{}, err
		}
		f.From = &t
	}
	if v := strings.TrimSpace(q.Get("fechaFin")); v != "" {
		t, err := utils.ParseDate("fechaFin", v, loc)
		if err != nil {
			return Filter{}, err
		}
		if len(v) == len("2006-01-02") {
			day := t.In(loc)
			t = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1).UTC()
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return Filter{}, apierror.BadRequest("fechaInicio debe ser anterior a fechaFin")
	}

	var err error
	if f.CropID, err = optionalID(q, "cultivoId"); err != nil {
		return Filter{}, err
	}
	if f.LaborTypeID, err = optionalID(q, "laborId"); err != nil {
		return Filter{}, err
	}
	if f.WorkerID, err = optionalID(q, "trabajadorId"); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func optionalID(q url.Values, key string) (*uint, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return nil, apierror.BadRequest(key + " debe ser un identificador numérico")
	}
	id := uint(n)
	return &id, nil
}

// apply adds the filter conditions to a query over labor events aliased "la"
func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.From != nil {
		q = q.Where("la.fecha_labor >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("la.fecha_labor < ?", *f.To)
	}
	if f.CropID != nil {
		q = q.Where("la.id_cultivo = ?", *f.CropID)
	}
	if f.LaborTypeID != nil {
		q = q.Where("la.id_labor_tipo = ?", *f.LaborTypeID)
	}
	if f.WorkerID != nil {
		q = q.Where("la.id_trabajador = ?", *f.WorkerID)
	}
	return q
}
