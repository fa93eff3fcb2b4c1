package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LaborEvent is a single recorded field operation
type LaborEvent struct {
	ID           uint                `gorm:"column:id_labor;primaryKey" json:"id_labor"`
	PlotID       uint                `gorm:"column:id_lote;not null;index" json:"id_lote"`
	CropID       uint                `gorm:"column:id_cultivo;not null;index" json:"id_cultivo"`
	WorkerID     uint                `gorm:"column:id_trabajador;not null;index" json:"id_trabajador"`
	LaborTypeID  uint                `gorm:"column:id_labor_tipo;not null;index" json:"id_labor_tipo"`
	RegisteredBy uint                `gorm:"column:id_usuario_registro;not null" json:"id_usuario_registro"`
	PerformedAt  time.Time           `gorm:"column:fecha_labor;not null;index" json:"fecha_labor"`
	Quantity     *float64            `gorm:"column:cantidad_recolectada" json:"cantidad_recolectada"`
	WeightKg     *float64            `gorm:"column:peso_kg" json:"peso_kg"`
	ApproxCost   decimal.NullDecimal `gorm:"column:costo_aproximado;type:numeric(12,2)" json:"costo_aproximado"`
	GPSPoint     *string             `gorm:"column:ubicacion_gps_punto;size:32" json:"ubicacion_gps_punto"`
	Notes        *string             `gorm:"column:observaciones;type:text" json:"observaciones"`
	EditDeadline *time.Time          `gorm:"column:hora_limite_edicion" json:"hora_limite_edicion"`
	ScheduledFor *time.Time          `gorm:"column:fecha_programada;index" json:"fecha_programada"`
	Completed    bool                `gorm:"column:completada;not null" json:"completada"`
	CreatedAt    time.Time           `gorm:"column:fecha_creacion" json:"fecha_creacion"`
}

func (LaborEvent) TableName() string {
	return "labores_agricolas"
}

// LaborEventView is a labor event joined with the names of the records it references
type LaborEventView struct {
	LaborEvent
	CropName      string `gorm:"column:nombre_cultivo" json:"nombre_cultivo"`
	PlotName      string `gorm:"column:nombre_lote" json:"nombre_lote"`
	WorkerName    string `gorm:"column:nombre_trabajador" json:"nombre_completo"`
	LaborTypeName string `gorm:"column:nombre_labor" json:"nombre_labor"`
}
