// Package usecase wires the HTTP façade to the order repository and the
// two sagas, mirroring order-service's OrderUseCase but thinned down to
// orchestration only — no billing/user concerns live here.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/internal/repo"
	"github.com/santosdev/order-orchestrator/internal/saga"
	apperrors "github.com/santosdev/order-orchestrator/pkg/errors"
)

// CreateOrderRequest is the façade's POST /order body.
type CreateOrderRequest struct {
	ClientID    uint   `json:"client_id"`
	PiecesA     int    `json:"pieces_a"`
	PiecesB     int    `json:"pieces_b"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// OrderUseCase ties the HTTP façade to order persistence and saga starts.
type OrderUseCase struct {
	orders       repo.OrderRepository
	confirmation *saga.ConfirmationSaga
	cancellation *saga.CancellationSaga
	logger       *log.Logger
}

func NewOrderUseCase(orders repo.OrderRepository, confirmation *saga.ConfirmationSaga, cancellation *saga.CancellationSaga) *OrderUseCase {
	return &OrderUseCase{
		orders:       orders,
		confirmation: confirmation,
		cancellation: cancellation,
		logger:       log.New(log.Writer(), "[OrderUseCase] ", log.LstdFlags),
	}
}

// CreateOrder validates and persists a new order, then starts its
// confirmation saga. Mirrors the teacher's persist-then-start-saga
// ordering in CreateOrder.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, req CreateOrderRequest) (*entity.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	order, err := entity.NewOrder(req.ClientID, req.PiecesA, req.PiecesB, req.Description, req.Address)
	if err != nil {
		return nil, apperrors.NewUnprocessableError(err.Error())
	}

	if err := uc.orders.Create(ctx, order); err != nil {
		return nil, apperrors.NewInternalServerError(fmt.Errorf("creating order: %w", err))
	}

	uc.logger.Printf("created order id=%d client=%d pieces=%d", order.ID, order.ClientID, order.NumberOfPieces)

	if err := uc.confirmation.Start(ctx, order); err != nil {
		return nil, apperrors.NewInternalServerError(fmt.Errorf("starting confirmation saga: %w", err))
	}

	return order, nil
}

func (uc *OrderUseCase) GetOrder(ctx context.Context, id uint) (*entity.Order, error) {
	order, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("order", id)
	}
	return order, nil
}

func (uc *OrderUseCase) ListOrders(ctx context.Context, clientID uint) ([]entity.Order, error) {
	orders, err := uc.orders.ListByClientID(ctx, clientID)
	if err != nil {
		return nil, apperrors.NewInternalServerError(fmt.Errorf("listing orders: %w", err))
	}
	return orders, nil
}

// GetStatus returns the overall derived status string (§4.2).
func (uc *OrderUseCase) GetStatus(ctx context.Context, id uint) (string, error) {
	order, err := uc.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	return order.OverallStatus(), nil
}

// CancelOrder checks the admission rule and, if admitted, starts the
// cancellation saga, returning the freshly minted saga id.
func (uc *OrderUseCase) CancelOrder(ctx context.Context, id uint) (string, error) {
	order, err := uc.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}

	sagaID, err := uc.cancellation.Start(ctx, order)
	if err != nil {
		if errors.Is(err, saga.ErrAdmissionViolation) {
			return "", apperrors.NewAdmissionViolationError(err.Error())
		}
		return "", apperrors.NewInternalServerError(fmt.Errorf("starting cancellation saga: %w", err))
	}

	return sagaID, nil
}

func (uc *OrderUseCase) DeleteOrder(ctx context.Context, id uint) error {
	if err := uc.orders.Delete(ctx, id); err != nil {
		return apperrors.NewNotFoundError("order", id)
	}
	return nil
}
