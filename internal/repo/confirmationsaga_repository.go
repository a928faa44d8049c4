package repo

import (
	"context"
	"errors"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConfirmationSagaRepository mirrors in-memory confirmation-saga
// instances to disk (OQ-1 of SPEC_FULL.md), so the registry can be
// repopulated after a restart. It is write-mostly: the hot event path
// never reads it back.
type ConfirmationSagaRepository interface {
	Upsert(ctx context.Context, orderID uint, state entity.CreationStatus, snapshot datatypes.JSONMap) error
	ListActive(ctx context.Context) ([]entity.ConfirmationSagaRecord, error)
	Delete(ctx context.Context, orderID uint) error
}

type confirmationSagaRepository struct {
	db *gorm.DB
}

func NewConfirmationSagaRepository(db *gorm.DB) ConfirmationSagaRepository {
	return &confirmationSagaRepository{db: db}
}

func (r *confirmationSagaRepository) Upsert(ctx context.Context, orderID uint, state entity.CreationStatus, snapshot datatypes.JSONMap) error {
	rec := entity.ConfirmationSagaRecord{
		OrderID:       orderID,
		State:         state,
		OrderSnapshot: snapshot,
	}
	var existing entity.ConfirmationSagaRecord
	err := r.db.WithContext(ctx).First(&existing, "order_id = ?", orderID).Error
	switch {
	case err == nil:
		return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"state":          state,
			"order_snapshot": snapshot,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(&rec).Error
	default:
		return err
	}
}

func (r *confirmationSagaRepository) ListActive(ctx context.Context) ([]entity.ConfirmationSagaRecord, error) {
	var recs []entity.ConfirmationSagaRecord
	if err := r.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *confirmationSagaRepository) Delete(ctx context.Context, orderID uint) error {
	return r.db.WithContext(ctx).Delete(&entity.ConfirmationSagaRecord{}, "order_id = ?", orderID).Error
}
