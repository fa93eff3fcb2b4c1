package models

import "time"

// Severity levels stored in nivel_severidad
const (
	SeverityLow    = "BAJA"
	SeverityMedium = "MEDIA"
	SeverityHigh   = "ALTA"
)

// Alert is an anomaly record, created by the rule engine or manually
type Alert struct {
	ID          uint      `gorm:"column:id_alerta;primaryKey" json:"id_alerta"`
	LaborID     *uint     `gorm:"column:id_labor;index" json:"id_labor"`
	PlotID      *uint     `gorm:"column:id_lote;index" json:"id_lote"`
	Type        string    `gorm:"column:tipo_alerta;size:50;not null;index:idx_alertas_tipo_dia" json:"tipo_alerta"`
	Description string    `gorm:"column:descripcion;type:text" json:"descripcion"`
	Severity    string    `gorm:"column:nivel_severidad;size:10;not null" json:"nivel_severidad"`
	Resolved    bool      `gorm:"column:resuelta;not null;index:idx_alertas_tipo_dia" json:"resuelta"`
	CreatedAt   time.Time `gorm:"column:fecha_creacion;index:idx_alertas_tipo_dia" json:"fecha_creacion"`
}

func (Alert) TableName() string {
	return "alertas"
}

// ValidSeverity reports whether s is one of the known severity levels
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}
