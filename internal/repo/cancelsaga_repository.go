package repo

import (
	"context"
	"errors"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCancelSagaNotFound is returned when a saga_id has no matching row.
var ErrCancelSagaNotFound = errors.New("cancellation saga not found")

// CancelSagaRepository persists CancellationSagaRecord rows (§4.1).
type CancelSagaRepository interface {
	Create(ctx context.Context, rec *entity.CancellationSagaRecord) error
	GetByID(ctx context.Context, sagaID string) (*entity.CancellationSagaRecord, error)
	Update(ctx context.Context, sagaID string, state entity.CancelSagaState, errMsg string) (*entity.CancellationSagaRecord, error)
}

type cancelSagaRepository struct {
	db *gorm.DB
}

func NewCancelSagaRepository(db *gorm.DB) CancelSagaRepository {
	return &cancelSagaRepository{db: db}
}

func (r *cancelSagaRepository) Create(ctx context.Context, rec *entity.CancellationSagaRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *cancelSagaRepository) GetByID(ctx context.Context, sagaID string) (*entity.CancellationSagaRecord, error) {
	var rec entity.CancellationSagaRecord
	if err := r.db.WithContext(ctx).First(&rec, "saga_id = ?", sagaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCancelSagaNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *cancelSagaRepository) Update(ctx context.Context, sagaID string, state entity.CancelSagaState, errMsg string) (*entity.CancellationSagaRecord, error) {
	rec, err := r.GetByID(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	rec.State = state
	rec.Error = errMsg
	result := r.db.WithContext(ctx).Omit(clause.Associations).Save(rec)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCancelSagaNotFound
	}
	return rec, nil
}
