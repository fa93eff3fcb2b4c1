package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/apierror"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/gorm"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required,min=6"`
	Nombre   string `json:"nombre" validate:"max=100"`
	Apellido string `json:"apellido" validate:"max=100"`
}

// login handles user login by email or username
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := decodeJSON(w, req, &loginReq); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(loginReq); err != nil {
		respondErr(w, req, err)
		return
	}

	// 1. Find User
	var user models.User
	login := strings.ToLower(strings.TrimSpace(loginReq.Email))
	err := r.db.WithContext(req.Context()).
		Where("LOWER(email) = ? OR LOWER(nombre_usuario) = ?", login, login).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondErr(w, req, apierror.Unauthorized("Credenciales inválidas"))
		return
	}
	if err != nil {
		respondErr(w, req, err)
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		zerolog.Ctx(req.Context()).Warn().Uint("user", user.ID).Msg("login failed: wrong password")
		respondErr(w, req, apierror.Unauthorized("Credenciales inválidas"))
		return
	}
	if !user.Active {
		respondErr(w, req, apierror.Unauthorized("Usuario inactivo. Contacte al administrador"))
		return
	}
	if _, err := access.ParseRole(int(user.RoleID)); err != nil {
		respondErr(w, req, apierror.Forbidden(apierror.ReasonRoleNotAllowed, "El rol del usuario no tiene acceso al sistema"))
		return
	}

	// 3. Update Last Login
	now := r.now().UTC()
	if err := r.db.WithContext(req.Context()).Model(&user).Update("ultimo_acceso", now).Error; err != nil {
		zerolog.Ctx(req.Context()).Warn().Err(err).Uint("user", user.ID).Msg("failed to record last login")
	}
	user.LastLogin = &now

	// 4. Generate Token
	token, err := utils.GenerateToken(&user, r.cfg.JWTSecret, time.Duration(r.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		respondErr(w, req, apierror.Internal("No se pudo generar el token", err))
		return
	}

	zerolog.Ctx(req.Context()).Info().Uint("user", user.ID).Uint("rol", user.RoleID).Msg("login")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"message": "Inicio de sesión exitoso",
		"user":    user,
	})
}

// register creates an operator account. Other roles are granted by an administrator
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if err := decodeJSON(w, req, &regReq); err != nil {
		respondErr(w, req, err)
		return
	}
	if err := utils.Validate(regReq); err != nil {
		respondErr(w, req, err)
		return
	}

	// 1. Hash Password
	hashedPassword, err := utils.HashPassword(regReq.Password)
	if err != nil {
		respondErr(w, req, apierror.Internal("No se pudo procesar la contraseña", err))
		return
	}

	// 2. Create User
	user := models.User{
		RoleID:       uint(access.RoleOperator),
		Username:     strings.TrimSpace(regReq.Username),
		Email:        strings.ToLower(strings.TrimSpace(regReq.Email)),
		PasswordHash: hashedPassword,
		FirstName:    regReq.Nombre,
		LastName:     regReq.Apellido,
		Active:       true,
	}
	if err := r.db.WithContext(req.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondErr(w, req, apierror.Conflict("El usuario con este email o nombre de usuario ya existe"))
			return
		}
		respondErr(w, req, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Usuario registrado exitosamente",
		"userId":  user.ID,
	})
}

// verifyToken confirms the token is valid and returns the current account
func (r *Router) verifyToken(w http.ResponseWriter, req *http.Request) {
	id := caller(req)
	var user models.User
	err := r.db.WithContext(req.Context()).First(&user, "id_usuario = ?", id.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondErr(w, req, apierror.Unauthorized("El usuario del token ya no existe"))
		return
	}
	if err != nil {
		respondErr(w, req, err)
		return
	}
	if !user.Active {
		respondErr(w, req, apierror.Unauthorized("Usuario inactivo"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"rol":   id.Role.String(),
		"user":  user,
	})
}
