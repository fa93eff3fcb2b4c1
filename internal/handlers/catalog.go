package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

// CropInput is the body for crop create and update
type CropInput struct {
	Name        *string `json:"nombre_cultivo" validate:"omitempty,max=100"`
	Description *string `json:"descripcion_cultivo"`
}

// LaborTypeInput is the body for labor type create and update
type LaborTypeInput struct {
	Name             *string `json:"nombre_labor" validate:"omitempty,max=100"`
	Description      *string `json:"descripcion_labor"`
	RequiresQuantity *bool   `json:"requiere_cantidad"`
	RequiresWeight   *bool   `json:"requiere_peso"`
}

// RoleInput is the body for role create and update
type RoleInput struct {
	Name        *string `json:"nombre_rol" validate:"omitempty,max=100"`
	Description *string `json:"descripcion_rol"`
}

// findByID loads dest by primary key column, mapping a miss to 404
func (r *Router) findByID(ctx context.Context, dest interface{}, pk string, id uint, notFound string) error {
	err := r.db.WithContext(ctx).First(dest, pk+" = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(notFound)
	}
	return err
}

// ensureUnused fails with 409 when labor events still reference the row
func (r *Router) ensureUnused(ctx context.Context, column string, id uint, what string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.LaborEvent{}).Where(column+" = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apierror.Conflict(fmt.Sprintf("No se puede eliminar: %s tiene %d labores registradas", what, n))
	}
	return nil
}

// updateByID applies changes and reloads dest
func (r *Router) updateByID(ctx context.Context, dest interface{}, pk string, id uint, changes map[string]interface{}, notFound string) error {
	if len(changes) > 0 {
		if err := r.db.WithContext(ctx).Model(dest).Where(pk+" = ?", id).Updates(changes).Error; err != nil {
			return err
		}
	}
	return r.findByID(ctx, dest, pk, id, notFound)
}

// deleteByID removes one row, mapping zero affected rows to 404
func (r *Router) deleteByID(ctx context.Context, model interface{}, pk string, id uint, notFound string) error {
	res := r.db.WithContext(ctx).Delete(model, pk+" = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound(notFound)
	}
	return nil
}

func requiredText(field string, v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", apierror.BadRequest(field + " es requerido")
	}
	return strings.TrimSpace(*v), nil
}

// Crops

func (r *Router) listCrops(w http.ResponseWriter, req *http.Request) {
	crops := []models.Crop{}
	if err := r.db.WithContext(req.Context()).Order("nombre_cultivo").Find(&crops).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, crops)
}

func (r *Router) getCrop(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var crop models.Crop
	if err := r.findByID(req.Context(), &crop, "id_cultivo", id, "Cultivo no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, crop)
}

func (r *Router) createCrop(w http.ResponseWriter, req *http.Request) {
	var in CropInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	name, err := requiredText("nombre_cultivo", in.Name)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	crop := models.Crop{Name: name, CreatedAt: r.now().UTC()}
	if in.Description != nil {
		crop.Description = *in.Description
	}
	if err := r.db.WithContext(req.Context()).Create(&crop).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, crop)
}

func (r *Router) updateCrop(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in CropInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}

	var crop models.Crop
	if err := r.findByID(req.Context(), &crop, "id_cultivo", id, "Cultivo no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	changes := map[string]interface{}{}
	if in.Name != nil {
		name, err := requiredText("nombre_cultivo", in.Name)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["nombre_cultivo"] = name
	}
	if in.Description != nil {
		changes["descripcion_cultivo"] = *in.Description
	}
	if err := r.updateByID(req.Context(), &crop, "id_cultivo", id, changes, "Cultivo no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, crop)
}

func (r *Router) deleteCrop(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.ensureUnused(req.Context(), "id_cultivo", id, "el cultivo"); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.deleteByID(req.Context(), &models.Crop{}, "id_cultivo", id, "Cultivo no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cultivo eliminado exitosamente"})
}

// Labor types

func (r *Router) listLaborTypes(w http.ResponseWriter, req *http.Request) {
	types := []models.LaborType{}
	if err := r.db.WithContext(req.Context()).Order("nombre_labor").Find(&types).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, types)
}

func (r *Router) getLaborType(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var lt models.LaborType
	if err := r.findByID(req.Context(), &lt, "id_labor_tipo", id, "Tipo de labor no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, lt)
}

func (r *Router) createLaborType(w http.ResponseWriter, req *http.Request) {
	var in LaborTypeInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	name, err := requiredText("nombre_labor", in.Name)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	lt := models.LaborType{Name: name, CreatedAt: r.now().UTC()}
	if in.Description != nil {
		lt.Description = *in.Description
	}
	if in.RequiresQuantity != nil {
		lt.RequiresQuantity = *in.RequiresQuantity
	}
	if in.RequiresWeight != nil {
		lt.RequiresWeight = *in.RequiresWeight
	}
	if err := r.db.WithContext(req.Context()).Create(&lt).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, lt)
}

func (r *Router) updateLaborType(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in LaborTypeInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}

	var lt models.LaborType
	if err := r.findByID(req.Context(), &lt, "id_labor_tipo", id, "Tipo de labor no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	changes := map[string]interface{}{}
	if in.Name != nil {
		name, err := requiredText("nombre_labor", in.Name)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["nombre_labor"] = name
	}
	if in.Description != nil {
		changes["descripcion_labor"] = *in.Description
	}
	if in.RequiresQuantity != nil {
		changes["requiere_cantidad"] = *in.RequiresQuantity
	}
	if in.RequiresWeight != nil {
		changes["requiere_peso"] = *in.RequiresWeight
	}
	if err := r.updateByID(req.Context(), &lt, "id_labor_tipo", id, changes, "Tipo de labor no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, lt)
}

func (r *Router) deleteLaborType(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.ensureUnused(req.Context(), "id_labor_tipo", id, "el tipo de labor"); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := r.deleteByID(req.Context(), &models.LaborType{}, "id_labor_tipo", id, "Tipo de labor no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Tipo de labor eliminado exitosamente"})
}

// Roles. Ids 1-3 back the built-in access levels and cannot be deleted

func (r *Router) listRoles(w http.ResponseWriter, req *http.Request) {
	roles := []models.Role{}
	if err := r.db.WithContext(req.Context()).Order("id_rol").Find(&roles).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, roles)
}

func (r *Router) getRole(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var role models.Role
	if err := r.findByID(req.Context(), &role, "id_rol", id, "Rol no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, role)
}

func (r *Router) createRole(w http.ResponseWriter, req *http.Request) {
	var in RoleInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	name, err := requiredText("nombre_rol", in.Name)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	role := models.Role{Name: name, CreatedAt: r.now().UTC()}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if err := r.db.WithContext(req.Context()).Create(&role).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, role)
}

func (r *Router) updateRole(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in RoleInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}

	var role models.Role
	if err := r.findByID(req.Context(), &role, "id_rol", id, "Rol no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	changes := map[string]interface{}{}
	if in.Name != nil {
		name, err := requiredText("nombre_rol", in.Name)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["nombre_rol"] = name
	}
	if in.Description != nil {
		changes["descripcion_rol"] = *in.Description
	}
	if err := r.updateByID(req.Context(), &role, "id_rol", id, changes, "Rol no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, role)
}

func (r *Router) deleteRole(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	for _, builtin := range models.DefaultRoles() {
		if builtin.ID == id {
			respondErr(w, req, apierror.Conflict("Los roles del sistema no se pueden eliminar"))
			return
		}
	}
	var users int64
	if err := r.db.WithContext(req.Context()).Model(&models.User{}).Where("id_rol = ?", id).Count(&users).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	if users > 0 {
		respondErr(w, req, apierror.Conflict(fmt.Sprintf("No se puede eliminar: %d usuarios tienen este rol", users)))
		return
	}
	if err := r.deleteByID(req.Context(), &models.Role{}, "id_rol", id, "Rol no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Rol eliminado exitosamente"})
}
