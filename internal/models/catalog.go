package models

import (
	"time"

	"gorm.io/datatypes"
)

// Crop is a crop species or variety
type Crop struct {
	ID          uint      `gorm:"column:id_cultivo;primaryKey" json:"id_cultivo"`
	Name        string    `gorm:"column:nombre_cultivo;size:100;not null;uniqueIndex" json:"nombre_cultivo"`
	Description string    `gorm:"column:descripcion_cultivo;type:text" json:"descripcion_cultivo"`
	CreatedAt   time.Time `gorm:"column:fecha_creacion" json:"fecha_creacion"`
}

func (Crop) TableName() string {
	return "cultivos"
}

// LaborType classifies labor events (harvest, pruning, fumigation...)
type LaborType struct {
	ID               uint      `gorm:"column:id_labor_tipo;primaryKey" json:"id_labor_tipo"`
	Name             string    `gorm:"column:nombre_labor;size:100;not null;uniqueIndex" json:"nombre_labor"`
	Description      string    `gorm:"column:descripcion_labor;type:text" json:"descripcion_labor"`
	RequiresQuantity bool      `gorm:"column:requiere_cantidad;not null" json:"requiere_cantidad"`
	RequiresWeight   bool      `gorm:"column:requiere_peso;not null" json:"requiere_peso"`
	CreatedAt        time.Time `gorm:"column:fecha_creacion" json:"fecha_creacion"`
}

func (LaborType) TableName() string {
	return "labores_tipos"
}

// Plot ("lote") is a bounded field area. SupervisorID is administrative
// only; labor visibility is driven by SupervisorWorker assignments
type Plot struct {
	ID           uint           `gorm:"column:id_lote;primaryKey" json:"id_lote"`
	Name         string         `gorm:"column:nombre_lote;size:100;not null" json:"nombre_lote"`
	AreaHectares *float64       `gorm:"column:area_hectareas" json:"area_hectareas,omitempty"`
	CropID       *uint          `gorm:"column:id_cultivo;index" json:"id_cultivo,omitempty"`
	SupervisorID *uint          `gorm:"column:id_supervisor;index" json:"id_supervisor,omitempty"`
	Polygon      datatypes.JSON `gorm:"column:ubicacion_gps_poligono" json:"ubicacion_gps_poligono,omitempty"`
	CreatedAt    time.Time      `gorm:"column:fecha_creacion" json:"fecha_creacion"`

	Crop *Crop `gorm:"foreignKey:CropID;references:ID" json:"cultivo,omitempty"`
}

func (Plot) TableName() string {
	return "lotes"
}
