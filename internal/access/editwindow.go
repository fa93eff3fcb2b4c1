package access

import (
	"time"

	"github.com/xelth-com/agrocampo/internal/apierror"
)

// DefaultEditWindow is how long an operator may correct an event after creating it
const DefaultEditWindow = 2 * time.Hour

// EditWindow bounds operator self-edits to a period after creation
type EditWindow struct {
	Duration time.Duration
}

// DeadlineFor returns the edit deadline stored for an event created at t
func (w EditWindow) DeadlineFor(t time.Time) time.Time {
	d := w.Duration
	if d <= 0 {
		d = DefaultEditWindow
	}
	return t.Add(d)
}

// Check denies edits when no deadline was recorded or when now is at or past it
func (w EditWindow) Check(deadline *time.Time, now time.Time) error {
	if deadline == nil || deadline.IsZero() {
		return apierror.Forbidden(apierror.ReasonEditWindowMissing,
			"Edición por operario no permitida en esta labor (sin ventana definida)")
	}
	if !now.Before(*deadline) {
		return apierror.Forbidden(apierror.ReasonEditWindowExpired,
			"Periodo de edición expirado para esta labor")
	}
	return nil
}
