package models

import (
	"time"
)

// User is a login account. RoleID maps to access.Role
type User struct {
	ID           uint       `gorm:"column:id_usuario;primaryKey" json:"id_usuario"`
	RoleID       uint       `gorm:"column:id_rol;not null;index" json:"id_rol"`
	Username     string     `gorm:"column:nombre_usuario;size:100;not null;uniqueIndex" json:"nombre_usuario"`
	Email        string     `gorm:"column:email;size:150;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string     `gorm:"column:nombre;size:100" json:"nombre,omitempty"`
	LastName     string     `gorm:"column:apellido;size:100" json:"apellido,omitempty"`
	Active       bool       `gorm:"column:activo;not null" json:"activo"`
	LastLogin    *time.Time `gorm:"column:ultimo_acceso" json:"ultimo_acceso,omitempty"`
	CreatedAt    time.Time  `gorm:"column:fecha_creacion" json:"fecha_creacion"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "usuarios"
}

// Role is the catalog row behind the access.Role enumeration
type Role struct {
	ID          uint      `gorm:"column:id_rol;primaryKey" json:"id_rol"`
	Name        string    `gorm:"column:nombre_rol;size:100;not null;uniqueIndex" json:"nombre_rol"`
	Description string    `gorm:"column:descripcion_rol;type:text" json:"descripcion_rol"`
	CreatedAt   time.Time `gorm:"column:fecha_creacion" json:"fecha_creacion"`
}

func (Role) TableName() string {
	return "roles"
}
