package repo

import (
	"context"
	"errors"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when an order id has no matching row.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository persists Order records and performs the phase-specific
// status updates the two sagas drive (§4.1).
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uint) (*entity.Order, error)
	ListByClientID(ctx context.Context, clientID uint) ([]entity.Order, error)
	UpdateCreationStatus(ctx context.Context, id uint, status entity.CreationStatus) (*entity.Order, error)
	UpdateFabricationStatus(ctx context.Context, id uint, status entity.FabricationStatus) (*entity.Order, error)
	UpdateDeliveryStatus(ctx context.Context, id uint, status entity.DeliveryStatus) (*entity.Order, error)
	Delete(ctx context.Context, id uint) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*entity.Order, error) {
	var order entity.Order
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByClientID(ctx context.Context, clientID uint) ([]entity.Order, error) {
	var orders []entity.Order
	if err := r.db.WithContext(ctx).Where("client_id = ?", clientID).Order("id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateCreationStatus(ctx context.Context, id uint, status entity.CreationStatus) (*entity.Order, error) {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", id).Update("creation_status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) UpdateFabricationStatus(ctx context.Context, id uint, status entity.FabricationStatus) (*entity.Order, error) {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", id).Update("fabrication_status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) UpdateDeliveryStatus(ctx context.Context, id uint, status entity.DeliveryStatus) (*entity.Order, error) {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", id).Update("delivery_status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entity.Order{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
