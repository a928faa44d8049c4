package saga

import (
	"context"
	"fmt"

	"github.com/santosdev/order-orchestrator/internal/bus"
	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/internal/repo"
	"gorm.io/datatypes"
)

// ConfirmationEvent is an ingress-translated event for the confirmation
// saga (§4.4 "Event translation").
type ConfirmationEvent string

const (
	EventPaymentAccepted    ConfirmationEvent = "payment_accepted"
	EventPaymentRejected    ConfirmationEvent = "payment_rejected"
	EventDeliveryPossible   ConfirmationEvent = "delivery_possible"
	EventDeliveryNotPossible ConfirmationEvent = "delivery_not_possible"
	EventMoneyReturned      ConfirmationEvent = "money_returned"
)

// ErrUnknownConfirmationSaga is UnknownCorrelation (§7) for the
// confirmation path: the event's order_id has no active saga.
var ErrUnknownConfirmationSaga = fmt.Errorf("no active confirmation saga for order")

// ConfirmationSaga drives the Pending→Paid→Confirmed happy path and the
// Pending→NoMoney / Paid→NotDeliverable→Returned compensation paths
// (§4.4), grounded on original_source's my_states.py transition table.
type ConfirmationSaga struct {
	registry  *Registry
	orders    repo.OrderRepository
	mirror    repo.ConfirmationSagaRepository
	egress    *bus.Egress
	audit     auditSink
}

func NewConfirmationSaga(registry *Registry, orders repo.OrderRepository, mirror repo.ConfirmationSagaRepository, egress *bus.Egress, audit auditSink) *ConfirmationSaga {
	return &ConfirmationSaga{registry: registry, orders: orders, mirror: mirror, egress: egress, audit: audit}
}

// Start registers a Pending instance for order and runs Pending's entry
// effect: publish the pay command (§4.4).
func (s *ConfirmationSaga) Start(ctx context.Context, order *entity.Order) error {
	snapshot := OrderSnapshot{
		OrderID:        order.ID,
		UserID:         order.ClientID,
		Address:        order.Address,
		NumberOfPieces: order.NumberOfPieces,
		PiecesA:        order.PiecesA,
		PiecesB:        order.PiecesB,
	}

	inst, started := s.registry.StartConfirmation(order.ID, snapshot, func(orderID uint, state entity.CreationStatus) {
		s.audit.Info("confirmation saga reached terminal state", map[string]interface{}{"order_id": orderID, "state": string(state)})
	})
	if !started {
		return nil
	}

	s.persistMirror(ctx, inst)

	return s.egress.PublishCommand(bus.KeyPay, bus.PayCommand{
		OrderID:        snapshot.OrderID,
		UserID:         snapshot.UserID,
		NumberOfPieces: snapshot.NumberOfPieces,
	})
}

// HandleEvent correlates event to an in-memory instance by orderID and
// drives the transition. Per §4.4's correlation rule, an event for an
// unknown or terminated saga is logged and dropped — the caller should
// ack the bus message regardless.
func (s *ConfirmationSaga) HandleEvent(ctx context.Context, orderID uint, event ConfirmationEvent, reason string) error {
	inst, ok := s.registry.GetConfirmation(orderID)
	if !ok {
		s.audit.Info("confirmation event for unknown/terminated saga, dropping", map[string]interface{}{"order_id": orderID, "event": string(event)})
		return ErrUnknownConfirmationSaga
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	switch inst.State {
	case entity.CreationPending:
		switch event {
		case EventPaymentAccepted:
			return s.enterPaid(ctx, inst)
		case EventPaymentRejected:
			return s.enterNoMoney(ctx, inst)
		}
	case entity.CreationPaid:
		switch event {
		case EventDeliveryPossible:
			return s.enterConfirmed(ctx, inst)
		case EventDeliveryNotPossible:
			return s.enterNotDeliverable(ctx, inst)
		}
	case entity.CreationNotDeliverable:
		if event == EventMoneyReturned {
			return s.enterReturned(ctx, inst)
		}
	}

	// Event does not apply to the current state (e.g. redelivery after the
	// transition already ran) — idempotently ignored.
	s.audit.Info("confirmation event ignored in current state", map[string]interface{}{"order_id": orderID, "state": string(inst.State), "event": string(event)})
	return nil
}

func (s *ConfirmationSaga) enterPaid(ctx context.Context, inst *ConfirmationInstance) error {
	if _, err := s.orders.UpdateCreationStatus(ctx, inst.OrderID, entity.CreationPaid); err != nil {
		return err
	}
	s.registry.settleConfirmation(inst, entity.CreationPaid)
	s.persistMirror(ctx, inst)

	return s.egress.PublishCommand(bus.KeyCheckDelivery, bus.CheckDeliveryCommand{
		OrderID: inst.Snapshot.OrderID,
		UserID:  inst.Snapshot.UserID,
		Address: inst.Snapshot.Address,
	})
}

func (s *ConfirmationSaga) enterNoMoney(ctx context.Context, inst *ConfirmationInstance) error {
	if _, err := s.orders.UpdateCreationStatus(ctx, inst.OrderID, entity.CreationNoMoney); err != nil {
		return err
	}
	s.registry.settleConfirmation(inst, entity.CreationNoMoney)
	s.persistMirror(ctx, inst)
	return nil
}

func (s *ConfirmationSaga) enterConfirmed(ctx context.Context, inst *ConfirmationInstance) error {
	if _, err := s.orders.UpdateCreationStatus(ctx, inst.OrderID, entity.CreationConfirmed); err != nil {
		return err
	}
	if _, err := s.orders.UpdateFabricationStatus(ctx, inst.OrderID, entity.FabricationRequested); err != nil {
		return err
	}
	s.registry.settleConfirmation(inst, entity.CreationConfirmed)
	s.persistMirror(ctx, inst)

	return s.egress.PublishCommand(bus.KeyWarehouseOrder, bus.WarehouseOrderPayload{
		OrderID:        inst.Snapshot.OrderID,
		NumberOfPieces: inst.Snapshot.NumberOfPieces,
		PiecesA:        inst.Snapshot.PiecesA,
		PiecesB:        inst.Snapshot.PiecesB,
	})
}

func (s *ConfirmationSaga) enterNotDeliverable(ctx context.Context, inst *ConfirmationInstance) error {
	if _, err := s.orders.UpdateCreationStatus(ctx, inst.OrderID, entity.CreationNotDeliverable); err != nil {
		return err
	}
	s.registry.settleConfirmation(inst, entity.CreationNotDeliverable)
	s.persistMirror(ctx, inst)

	return s.egress.PublishCommand(bus.KeyReturnMoney, bus.ReturnMoneyCommand{
		OrderID: inst.Snapshot.OrderID,
		UserID:  inst.Snapshot.UserID,
	})
}

func (s *ConfirmationSaga) enterReturned(ctx context.Context, inst *ConfirmationInstance) error {
	if _, err := s.orders.UpdateCreationStatus(ctx, inst.OrderID, entity.CreationReturned); err != nil {
		return err
	}
	s.registry.settleConfirmation(inst, entity.CreationReturned)
	s.persistMirror(ctx, inst)
	return nil
}

// persistMirror writes the OQ-1 restart-safety mirror; failures are
// logged, not propagated — the in-memory registry remains authoritative
// while the process is up. A terminal instance has nothing left to
// restore, so its mirror row is deleted instead of upserted.
func (s *ConfirmationSaga) persistMirror(ctx context.Context, inst *ConfirmationInstance) {
	if s.mirror == nil {
		return
	}

	if confirmationTerminal[inst.State] {
		if err := s.mirror.Delete(ctx, inst.OrderID); err != nil {
			s.audit.Info("confirmation saga mirror cleanup failed", map[string]interface{}{"order_id": inst.OrderID, "error": err.Error()})
		}
		return
	}

	snap := datatypes.JSONMap{
		"order_id":         float64(inst.Snapshot.OrderID),
		"user_id":          float64(inst.Snapshot.UserID),
		"address":          inst.Snapshot.Address,
		"number_of_pieces": float64(inst.Snapshot.NumberOfPieces),
		"pieces_a":         float64(inst.Snapshot.PiecesA),
		"pieces_b":         float64(inst.Snapshot.PiecesB),
	}
	if err := s.mirror.Upsert(ctx, inst.OrderID, inst.State, snap); err != nil {
		s.audit.Info("confirmation saga mirror persistence failed", map[string]interface{}{"order_id": inst.OrderID, "error": err.Error()})
	}
}

// Restore repopulates the in-memory registry from the persisted mirror.
// Called once at process start (OQ-1), before the bus ingress starts
// consuming events, so redelivered results correlate against a
// rehydrated instance instead of being dropped as unknown.
func (s *ConfirmationSaga) Restore(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}

	records, err := s.mirror.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing mirrored confirmation sagas: %w", err)
	}

	for _, rec := range records {
		if confirmationTerminal[rec.State] {
			continue
		}

		snapshot := OrderSnapshot{
			OrderID:        rec.OrderID,
			UserID:         uint(jsonMapInt(rec.OrderSnapshot, "user_id")),
			Address:        jsonMapString(rec.OrderSnapshot, "address"),
			NumberOfPieces: jsonMapInt(rec.OrderSnapshot, "number_of_pieces"),
			PiecesA:        jsonMapInt(rec.OrderSnapshot, "pieces_a"),
			PiecesB:        jsonMapInt(rec.OrderSnapshot, "pieces_b"),
		}

		s.registry.RestoreConfirmation(rec.OrderID, rec.State, snapshot, func(orderID uint, state entity.CreationStatus) {
			s.audit.Info("confirmation saga reached terminal state", map[string]interface{}{"order_id": orderID, "state": string(state)})
		})
		s.audit.Info("confirmation saga restored from mirror", map[string]interface{}{"order_id": rec.OrderID, "state": string(rec.State)})
	}

	return nil
}

// jsonMapInt/jsonMapString read back the numeric/string fields
// persistMirror wrote into a datatypes.JSONMap snapshot; JSON numbers
// decode as float64 regardless of the original Go type.
func jsonMapInt(m datatypes.JSONMap, key string) int {
	v, _ := m[key].(float64)
	return int(v)
}

func jsonMapString(m datatypes.JSONMap, key string) string {
	v, _ := m[key].(string)
	return v
}
