package access

import (
	"context"
	"errors"

	"github.com/xelth-com/agrocampo/internal/models"
	"gorm.io/gorm"
)

// GormLinks resolves worker links from the relational store
type GormLinks struct {
	db *gorm.DB
}

func NewGormLinks(db *gorm.DB) *GormLinks {
	return &GormLinks{db: db}
}

func (l *GormLinks) LinkedWorker(ctx context.Context, userID uint) (uint, bool, error) {
	var worker models.Worker
	err := l.db.WithContext(ctx).
		Select("id_trabajador").
		Where("id_usuario = ? AND activo = ?", userID, true).
		Order("id_trabajador").
		First(&worker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return worker.ID, true, nil
}

func (l *GormLinks) AssignedWorkers(ctx context.Context, supervisorID uint) ([]uint, error) {
	var ids []uint
	err := l.db.WithContext(ctx).
		Model(&models.SupervisorWorker{}).
		Where("id_supervisor = ? AND activo = ?", supervisorID, true).
		Order("id_trabajador").
		Pluck("id_trabajador", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
