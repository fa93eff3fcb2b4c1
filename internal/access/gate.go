package access

import (
	"context"
	"time"

	"github.com/xelth-com/agrocampo/internal/apierror"
)

// Target is the part of an existing labor event that permission checks need
type Target struct {
	WorkerID     uint
	EditDeadline *time.Time
}

// Gate makes per-action permission decisions for labor events. Every check
// recomputes the caller's scope
type Gate struct {
	scopes *ScopeCalculator
	window EditWindow
	now    func() time.Time
}

func NewGate(scopes *ScopeCalculator, window EditWindow) *Gate {
	return &Gate{scopes: scopes, window: window, now: time.Now}
}

// WithClock replaces the time source used for edit-window checks
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Now returns the current time from the gate's clock
func (g *Gate) Now() time.Time {
	return g.now()
}

// Window returns the configured edit window
func (g *Gate) Window() EditWindow {
	return g.window
}

// Scope returns the list filter for the caller. It never denies
func (g *Gate) Scope(ctx context.Context, id Identity) (Scope, error) {
	scope, err := g.scopes.Compute(ctx, id)
	if err != nil {
		return Scope{}, apierror.Internal("Error interno de autorización", err)
	}
	return scope, nil
}

// AuthorizeCreate returns the worker the new event must be recorded for.
// Operators are always pinned to their own linked worker
func (g *Gate) AuthorizeCreate(ctx context.Context, id Identity, requested *uint) (uint, error) {
	scope, err := g.Scope(ctx, id)
	if err != nil {
		return 0, err
	}

	switch id.Role {
	case RoleAdmin:
		if requested == nil || *requested == 0 {
			return 0, apierror.BadRequest("id_trabajador es requerido para crear una labor")
		}
		return *requested, nil

	case RoleSupervisor:
		if requested == nil || *requested == 0 {
			return 0, apierror.BadRequest("id_trabajador es requerido para crear una labor")
		}
		if !scope.Allows(*requested) {
			return 0, apierror.Forbidden(apierror.ReasonWorkerOutOfScope,
				"Supervisor solo puede crear labores para trabajadores a su cargo")
		}
		return *requested, nil

	case RoleOperator:
		own, ok := scope.OwnWorkerID()
		if !ok {
			return 0, apierror.Forbidden(apierror.ReasonNoLinkedWorker,
				"Operario no vinculado a trabajador. Contacte al administrador")
		}
		return own, nil
	}

	return 0, apierror.Forbidden(apierror.ReasonRoleNotAllowed, "Acción no permitida")
}

// AuthorizeRead checks access to a single event. Callers resolve existence
// first so that not-found wins over permission
func (g *Gate) AuthorizeRead(ctx context.Context, id Identity, t Target) error {
	if id.Role == RoleAdmin {
		return nil
	}
	scope, err := g.Scope(ctx, id)
	if err != nil {
		return err
	}

	switch id.Role {
	case RoleOperator:
		if _, ok := scope.OwnWorkerID(); !ok {
			return apierror.Forbidden(apierror.ReasonNoLinkedWorker, "Operario no vinculado a trabajador")
		}
		if !scope.Allows(t.WorkerID) {
			return apierror.Forbidden(apierror.ReasonWorkerOutOfScope, "Operario no puede ver labores de otros")
		}
		return nil
	case RoleSupervisor:
		if !scope.Allows(t.WorkerID) {
			return apierror.Forbidden(apierror.ReasonWorkerOutOfScope,
				"Supervisor no puede ver labores fuera de su equipo")
		}
		return nil
	}
	return apierror.Forbidden(apierror.ReasonRoleNotAllowed, "Acción no permitida")
}

// AuthorizeUpdate checks an edit of an existing event. requested is the
// worker the payload tries to assign, nil when unchanged
func (g *Gate) AuthorizeUpdate(ctx context.Context, id Identity, t Target, requested *uint) error {
	if id.Role == RoleAdmin {
		return nil
	}
	scope, err := g.Scope(ctx, id)
	if err != nil {
		return err
	}
	reassigning := requested != nil && *requested != 0 && *requested != t.WorkerID

	switch id.Role {
	case RoleSupervisor:
		if !scope.Allows(t.WorkerID) {
			return apierror.Forbidden(apierror.ReasonWorkerOutOfScope,
				"Supervisor no tiene permisos sobre la labor especificada")
		}
		if reassigning && !scope.Allows(*requested) {
			return apierror.Forbidden(apierror.ReasonWorkerOutOfScope,
				"Supervisor solo puede reasignar labores a trabajadores a su cargo")
		}
		return nil

	case RoleOperator:
		if _, ok := scope.OwnWorkerID(); !ok {
			return apierror.Forbidden(apierror.ReasonNoLinkedWorker,
				"Operario no vinculado a trabajador. Contacte al administrador")
		}
		if !scope.Allows(t.WorkerID) {
			return apierror.Forbidden(apierror.ReasonWorkerOutOfScope,
				"Operario solo puede modificar sus propias labores")
		}
		if reassigning {
			return apierror.Forbidden(apierror.ReasonReassignForbidden,
				"Operario no puede reasignar labores a otro trabajador")
		}
		return g.window.Check(t.EditDeadline, g.now())
	}
	return apierror.Forbidden(apierror.ReasonRoleNotAllowed, "Acción no permitida")
}

// AuthorizeDelete allows administrators only
func (g *Gate) AuthorizeDelete(id Identity) error {
	if id.Role == RoleAdmin {
		return nil
	}
	return apierror.Forbidden(apierror.ReasonDeleteRestricted,
		"Eliminar labores está restringido a Administradores")
}
