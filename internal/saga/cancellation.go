package saga

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/santosdev/order-orchestrator/internal/bus"
	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/internal/repo"
)

// CancellationEvent is an ingress-translated event for the cancellation
// saga (§4.5).
type CancellationEvent string

const (
	EventFabricationCanceled CancellationEvent = "fabrication_canceled"
	EventRefunded            CancellationEvent = "refunded"
	EventRefundFailed        CancellationEvent = "refund_failed"
)

// ErrAdmissionViolation is the synchronous 409 of §7: the order does not
// satisfy the cancellation admission rule.
var ErrAdmissionViolation = fmt.Errorf("order is not eligible for cancellation")

// ErrUnknownCancellationSaga is UnknownCorrelation (§7) for the
// cancellation path.
var ErrUnknownCancellationSaga = fmt.Errorf("no active cancellation saga")

// CancellationSaga drives Canceling→Refunding→{Canceled|CancelPendingRefund}
// (§4.5), grounded on original_source's order_cancel_states.py.
type CancellationSaga struct {
	registry *Registry
	orders   repo.OrderRepository
	cancels  repo.CancelSagaRepository
	egress   *bus.Egress
	audit    auditSink
}

func NewCancellationSaga(registry *Registry, orders repo.OrderRepository, cancels repo.CancelSagaRepository, egress *bus.Egress, audit auditSink) *CancellationSaga {
	return &CancellationSaga{registry: registry, orders: orders, cancels: cancels, egress: egress, audit: audit}
}

// Admit enforces the admission rule of §4.5 against the order's current
// phase statuses.
func Admit(order *entity.Order) error {
	if order.CreationStatus != entity.CreationConfirmed {
		return ErrAdmissionViolation
	}
	switch order.FabricationStatus {
	case entity.FabricationRequested, entity.FabricationInProgress:
		return nil
	default:
		return ErrAdmissionViolation
	}
}

// Start admits and starts a cancellation saga for order, minting a UUID
// saga_id, persisting the CancellationSagaRecord, setting
// fabrication_status=Canceling, and publishing cmd.cancel_fabrication.
func (s *CancellationSaga) Start(ctx context.Context, order *entity.Order) (string, error) {
	if err := Admit(order); err != nil {
		return "", err
	}

	sagaID := uuid.NewString()

	if _, err := s.orders.UpdateFabricationStatus(ctx, order.ID, entity.FabricationCanceling); err != nil {
		return "", err
	}

	rec := &entity.CancellationSagaRecord{
		SagaID:  sagaID,
		OrderID: order.ID,
		State:   entity.CancelStateCanceling,
	}
	if err := s.cancels.Create(ctx, rec); err != nil {
		return "", err
	}

	inst, started := s.registry.StartCancellation(sagaID, order.ID, order.ClientID, func(id string, state entity.CancelSagaState) {
		s.audit.Info("cancellation saga reached terminal state", map[string]interface{}{"saga_id": id, "state": string(state)})
	})
	if !started {
		return sagaID, nil
	}

	err := s.egress.PublishCommand(bus.KeyCancelFabrication, bus.CancelFabricationCommand{
		OrderID: inst.OrderID,
		SagaID:  inst.SagaID,
	})
	return sagaID, err
}

// HandleEvent correlates event to an in-memory instance by sagaID and
// drives the transition.
func (s *CancellationSaga) HandleEvent(ctx context.Context, sagaID string, event CancellationEvent, reason string) error {
	inst, ok := s.registry.GetCancellation(sagaID)
	if !ok {
		s.audit.Info("cancellation event for unknown/terminated saga, dropping", map[string]interface{}{"saga_id": sagaID, "event": string(event)})
		return ErrUnknownCancellationSaga
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	switch inst.State {
	case entity.CancelStateCanceling:
		if event == EventFabricationCanceled {
			return s.enterRefunding(ctx, inst)
		}
	case entity.CancelStateRefunding:
		switch event {
		case EventRefunded:
			return s.enterCanceled(ctx, inst)
		case EventRefundFailed:
			return s.enterCancelPendingRefund(ctx, inst, reason)
		}
	}

	s.audit.Info("cancellation event ignored in current state", map[string]interface{}{"saga_id": sagaID, "state": string(inst.State), "event": string(event)})
	return nil
}

func (s *CancellationSaga) enterRefunding(ctx context.Context, inst *CancellationInstance) error {
	if _, err := s.cancels.Update(ctx, inst.SagaID, entity.CancelStateRefunding, ""); err != nil {
		return err
	}
	s.registry.settleCancellation(inst, entity.CancelStateRefunding, "")

	return s.egress.PublishCommand(bus.KeyRefund, bus.RefundCommand{
		OrderID: inst.OrderID,
		UserID:  inst.UserID,
		SagaID:  inst.SagaID,
	})
}

func (s *CancellationSaga) enterCanceled(ctx context.Context, inst *CancellationInstance) error {
	if _, err := s.orders.UpdateFabricationStatus(ctx, inst.OrderID, entity.FabricationCanceled); err != nil {
		return err
	}
	if _, err := s.cancels.Update(ctx, inst.SagaID, entity.CancelStateCanceled, ""); err != nil {
		return err
	}
	s.registry.settleCancellation(inst, entity.CancelStateCanceled, "")
	return nil
}

func (s *CancellationSaga) enterCancelPendingRefund(ctx context.Context, inst *CancellationInstance, reason string) error {
	if _, err := s.orders.UpdateFabricationStatus(ctx, inst.OrderID, entity.FabricationCancelPendingRefund); err != nil {
		return err
	}
	if _, err := s.cancels.Update(ctx, inst.SagaID, entity.CancelStateCancelPendingRefund, reason); err != nil {
		return err
	}
	s.registry.settleCancellation(inst, entity.CancelStateCancelPendingRefund, reason)
	return nil
}
