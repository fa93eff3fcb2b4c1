package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkerInput is the body for worker create and update
type WorkerInput struct {
	FullName *string `json:"nombre_completo" validate:"omitempty,max=150"`
	Code     *string `json:"codigo_trabajador" validate:"omitempty,max=50"`
	Active   *bool   `json:"activo"`
	UserID   *uint   `json:"id_usuario"`
}

// AssignmentInput is the body for supervisor-worker links
type AssignmentInput struct {
	WorkerID uint  `json:"id_trabajador"`
	Active   *bool `json:"activo"`
}

// requireUserRole loads a user and checks it holds the given role
func (r *Router) requireUserRole(ctx context.Context, userID uint, role access.Role, msg string) error {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id_usuario = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound("Usuario no encontrado")
	}
	if err != nil {
		return err
	}
	if user.RoleID != uint(role) {
		return apierror.BadRequest(msg)
	}
	return nil
}

func (r *Router) listWorkers(w http.ResponseWriter, req *http.Request) {
	active, err := queryBool(req, "activo")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	q := r.db.WithContext(req.Context()).Order("nombre_completo")
	if active != nil {
		q = q.Where("activo = ?", *active)
	}
	workers := []models.Worker{}
	if err := q.Find(&workers).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, workers)
}

func (r *Router) getWorker(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var worker models.Worker
	if err := r.findByID(req.Context(), &worker, "id_trabajador", id, "Trabajador no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, worker)
}

func (r *Router) createWorker(w http.ResponseWriter, req *http.Request) {
	var in WorkerInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	name, err := requiredText("nombre_completo", in.FullName)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if in.UserID != nil {
		if err := r.requireUserRole(req.Context(), *in.UserID, access.RoleOperator, "El usuario vinculado debe tener rol de operario"); err != nil {
			respondErr(w, req, err)
			return
		}
	}

	worker := models.Worker{
		FullName:  name,
		Code:      trimmedOrNil(in.Code),
		Active:    true,
		UserID:    in.UserID,
		CreatedAt: r.now().UTC(),
	}
	if in.Active != nil {
		worker.Active = *in.Active
	}
	if err := r.db.WithContext(req.Context()).Create(&worker).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondErr(w, req, apierror.Conflict("Ya existe un trabajador con ese código"))
			return
		}
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, worker)
}

func (r *Router) updateWorker(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in WorkerInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}

	var worker models.Worker
	if err := r.findByID(req.Context(), &worker, "id_trabajador", id, "Trabajador no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	changes := map[string]interface{}{}
	if in.FullName != nil {
		name, err := requiredText("nombre_completo", in.FullName)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["nombre_completo"] = name
	}
	if in.Code != nil {
		changes["codigo_trabajador"] = trimmedOrNil(in.Code)
	}
	if in.Active != nil {
		changes["activo"] = *in.Active
	}
	if in.UserID != nil {
		if err := r.requireUserRole(req.Context(), *in.UserID, access.RoleOperator, "El usuario vinculado debe tener rol de operario"); err != nil {
			respondErr(w, req, err)
			return
		}
		changes["id_usuario"] = *in.UserID
	}
	if err := r.updateByID(req.Context(), &worker, "id_trabajador", id, changes, "Trabajador no encontrado"); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = apierror.Conflict("Ya existe un trabajador con ese código")
		}
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, worker)
}

func (r *Router) deleteWorker(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.ensureUnused(req.Context(), "id_trabajador", id, "el trabajador"); err != nil {
		respondErr(w, req, err)
		return
	}
	err = r.db.WithContext(req.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id_trabajador = ?", id).Delete(&models.SupervisorWorker{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Worker{}, "id_trabajador = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierror.NotFound("Trabajador no encontrado")
		}
		return nil
	})
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Trabajador eliminado exitosamente"})
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// Supervisor assignments

// listAssignments returns the workers linked to a supervisor. Supervisors
// may only read their own list
func (r *Router) listAssignments(w http.ResponseWriter, req *http.Request) {
	supervisorID, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	id := caller(req)
	if id.Role == access.RoleSupervisor && id.UserID != supervisorID {
		respondErr(w, req, apierror.Forbidden(apierror.ReasonRoleNotAllowed, "Solo puede consultar sus propios trabajadores asignados"))
		return
	}
	active, err := queryBool(req, "activo")
	if err != nil {
		respondErr(w, req, err)
		return
	}

	type row struct {
		models.SupervisorWorker
		WorkerName string  `gorm:"column:nombre_completo" json:"nombre_completo"`
		WorkerCode *string `gorm:"column:codigo_trabajador" json:"codigo_trabajador,omitempty"`
	}
	q := r.db.WithContext(req.Context()).
		Table("supervisor_trabajador AS st").
		Select("st.*, t.nombre_completo, t.codigo_trabajador").
		Joins("JOIN trabajadores t ON t.id_trabajador = st.id_trabajador").
		Where("st.id_supervisor = ?", supervisorID).
		Order("t.nombre_completo")
	if active != nil {
		q = q.Where("st.activo = ?", *active)
	}
	rows := []row{}
	if err := q.Scan(&rows).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// createAssignment links a worker to a supervisor, reactivating an
// existing inactive link instead of duplicating it
func (r *Router) createAssignment(w http.ResponseWriter, req *http.Request) {
	supervisorID, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in AssignmentInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if in.WorkerID == 0 {
		respondErr(w, req, apierror.BadRequest("id_trabajador es requerido"))
		return
	}
	ctx := req.Context()
	if err := r.requireUserRole(ctx, supervisorID, access.RoleSupervisor, "El usuario no tiene rol de supervisor"); err != nil {
		respondErr(w, req, err)
		return
	}
	var worker models.Worker
	if err := r.findByID(ctx, &worker, "id_trabajador", in.WorkerID, "Trabajador no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}

	now := r.now().UTC()
	link := models.SupervisorWorker{
		SupervisorID: supervisorID,
		WorkerID:     in.WorkerID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_supervisor"}, {Name: "id_trabajador"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"activo": true, "fecha_actualizacion": now}),
	}).Create(&link).Error
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.db.WithContext(ctx).
		Where("id_supervisor = ? AND id_trabajador = ?", supervisorID, in.WorkerID).
		First(&link).Error; err != nil {
		respondErr(w, req, err)
		return
	}

	zerolog.Ctx(ctx).Info().Uint("supervisor", supervisorID).Uint("worker", in.WorkerID).Msg("worker assigned")
	respondJSON(w, http.StatusCreated, link)
}

func (r *Router) updateAssignment(w http.ResponseWriter, req *http.Request) {
	var in AssignmentInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if in.Active == nil {
		respondErr(w, req, apierror.BadRequest("activo es requerido"))
		return
	}
	link, err := r.setAssignmentActive(req, *in.Active)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// deleteAssignment deactivates the link; history is preserved
func (r *Router) deleteAssignment(w http.ResponseWriter, req *http.Request) {
	if _, err := r.setAssignmentActive(req, false); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Asignación desactivada exitosamente"})
}

func (r *Router) setAssignmentActive(req *http.Request, active bool) (models.SupervisorWorker, error) {
	var link models.SupervisorWorker
	supervisorID, err := pathID(req, "id")
	if err != nil {
		return link, err
	}
	workerID, err := pathID(req, "trabajadorId")
	if err != nil {
		return link, err
	}
	ctx := req.Context()
	err = r.db.WithContext(ctx).
		Where("id_supervisor = ? AND id_trabajador = ?", supervisorID, workerID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return link, apierror.NotFound("Asignación no encontrada")
	}
	if err != nil {
		return link, err
	}
	now := r.now().UTC()
	if err := r.db.WithContext(ctx).Model(&link).Updates(map[string]interface{}{
		"activo":              active,
		"fecha_actualizacion": now,
	}).Error; err != nil {
		return link, err
	}
	link.Active = active
	link.UpdatedAt = now
	return link, nil
}
