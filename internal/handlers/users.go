package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

// UserInput is the admin body for user create and update
type UserInput struct {
	Username *string `json:"nombre_usuario" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=150"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Nombre   *string `json:"nombre" validate:"omitempty,max=100"`
	Apellido *string `json:"apellido" validate:"omitempty,max=100"`
	RoleID   *uint   `json:"id_rol"`
	Active   *bool   `json:"activo"`
}

const duplicateUserMsg = "El usuario con este email o nombre de usuario ya existe"

func (r *Router) checkRole(ctx context.Context, roleID uint) error {
	var role models.Role
	err := r.db.WithContext(ctx).First(&role, "id_rol = ?", roleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.BadRequest("El rol indicado no existe")
	}
	return err
}

func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	roleID, err := queryID(req, "rolId")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	q := r.db.WithContext(req.Context()).Order("nombre_usuario")
	if roleID != nil {
		q = q.Where("id_rol = ?", *roleID)
	}
	users := []models.User{}
	if err := q.Find(&users).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (r *Router) getUser(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var user models.User
	if err := r.findByID(req.Context(), &user, "id_usuario", id, "Usuario no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (r *Router) createUser(w http.ResponseWriter, req *http.Request) {
	var in UserInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	username, err := requiredText("nombre_usuario", in.Username)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	email, err := requiredText("email", in.Email)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if in.Password == nil {
		respondErr(w, req, apierror.BadRequest("password es requerido"))
		return
	}
	if in.RoleID == nil {
		respondErr(w, req, apierror.BadRequest("id_rol es requerido"))
		return
	}
	ctx := req.Context()
	if err := r.checkRole(ctx, *in.RoleID); err != nil {
		respondErr(w, req, err)
		return
	}
	hash, err := utils.HashPassword(*in.Password)
	if err != nil {
		respondErr(w, req, apierror.Internal("No se pudo procesar la contraseña", err))
		return
	}

	user := models.User{
		RoleID:       *in.RoleID,
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    r.now().UTC(),
	}
	if in.Nombre != nil {
		user.FirstName = *in.Nombre
	}
	if in.Apellido != nil {
		user.LastName = *in.Apellido
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = apierror.Conflict(duplicateUserMsg)
		}
		respondErr(w, req, err)
		return
	}
	zerolog.Ctx(ctx).Info().Uint("user", user.ID).Uint("rol", user.RoleID).Msg("user created")
	respondJSON(w, http.StatusCreated, user)
}

func (r *Router) updateUser(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	var in UserInput
	if err := decodeJSON(w, req, &in); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(in); err != nil {
		respondErr(w, req, err)
		return
	}
	ctx := req.Context()
	var user models.User
	if err := r.findByID(ctx, &user, "id_usuario", id, "Usuario no encontrado"); err != nil {
		respondErr(w, req, err)
		return
	}

	changes := map[string]interface{}{}
	if in.Username != nil {
		username, err := requiredText("nombre_usuario", in.Username)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		changes["nombre_usuario"] = username
	}
	if in.Email != nil {
		changes["email"] = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Nombre != nil {
		changes["nombre"] = *in.Nombre
	}
	if in.Apellido != nil {
		changes["apellido"] = *in.Apellido
	}
	if in.Active != nil {
		if !*in.Active && id == caller(req).UserID {
			respondErr(w, req, apierror.BadRequest("No puede desactivar su propia cuenta"))
			return
		}
		changes["activo"] = *in.Active
	}
	if in.RoleID != nil {
		if err := r.checkRole(ctx, *in.RoleID); err != nil {
			respondErr(w, req, err)
			return
		}
		changes["id_rol"] = *in.RoleID
	}
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			respondErr(w, req, apierror.Internal("No se pudo procesar la contraseña", err))
			return
		}
		changes["password_hash"] = hash
	}
	if err := r.updateByID(ctx, &user, "id_usuario", id, changes, "Usuario no encontrado"); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = apierror.Conflict(duplicateUserMsg)
		}
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// deleteUser removes an account. Accounts referenced by labor events or
// worker links are refused; deactivate them instead
func (r *Router) deleteUser(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if id == caller(req).UserID {
		respondErr(w, req, apierror.BadRequest("No puede eliminar su propia cuenta"))
		return
	}
	ctx := req.Context()
	if err := r.ensureUnused(ctx, "id_usuario_registro", id, "el usuario"); err != nil {
		respondErr(w, req, err)
		return
	}
	var linked int64
	if err := r.db.WithContext(ctx).Model(&models.Worker{}).Where("id_usuario = ?", id).Count(&linked).Error; err != nil {
		respondErr(w, req, err)
		return
	}
	if linked > 0 {
		respondErr(w, req, apierror.Conflict("No se puede eliminar: el usuario está vinculado a un trabajador"))
		return
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id_supervisor = ?", id).Delete(&models.SupervisorWorker{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Plot{}).Where("id_supervisor = ?", id).Update("id_supervisor", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id_usuario = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierror.NotFound("Usuario no encontrado")
		}
		return nil
	})
	if err != nil {
		respondErr(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Usuario eliminado exitosamente"})
}
