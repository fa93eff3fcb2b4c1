package models

import "time"

// Worker is a person performing field labor. UserID links the operator
// account that represents this worker, if any
type Worker struct {
	ID        uint      `gorm:"column:id_trabajador;primaryKey" json:"id_trabajador"`
	FullName  string    `gorm:"column:nombre_completo;size:150;not null" json:"nombre_completo"`
	Code      *string   `gorm:"column:codigo_trabajador;size:50;uniqueIndex" json:"codigo_trabajador,omitempty"`
	Active    bool      `gorm:"column:activo;not null;index" json:"activo"`
	UserID    *uint     `gorm:"column:id_usuario;index" json:"id_usuario,omitempty"`
	CreatedAt time.Time `gorm:"column:fecha_creacion" json:"fecha_creacion"`
}

func (Worker) TableName() string {
	return "trabajadores"
}

// SupervisorWorker assigns a worker to a supervisor-role user. Inactive
// rows are kept for history and ignored by scope computation
type SupervisorWorker struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	SupervisorID uint      `gorm:"column:id_supervisor;not null;uniqueIndex:idx_supervisor_trabajador" json:"id_supervisor"`
	WorkerID     uint      `gorm:"column:id_trabajador;not null;uniqueIndex:idx_supervisor_trabajador;index" json:"id_trabajador"`
	Active       bool      `gorm:"column:activo;not null" json:"activo"`
	CreatedAt    time.Time `gorm:"column:fecha_creacion" json:"fecha_creacion"`
	UpdatedAt    time.Time `gorm:"column:fecha_actualizacion" json:"fecha_actualizacion"`
}

func (SupervisorWorker) TableName() string {
	return "supervisor_trabajador"
}
