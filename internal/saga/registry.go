// Package saga implements the in-memory Saga Registry (SPEC_FULL.md
// §4.3) and the two fixed-topology state machines it drives:
// ConfirmationSaga (Pending→Paid→Confirmed, with NoMoney/NotDeliverable/
// Returned compensation paths) and CancellationSaga
// (Canceling→Refunding→Canceled/CancelPendingRefund).
package saga

import (
	"sync"

	"github.com/santosdev/order-orchestrator/internal/entity"
)

// OrderSnapshot is the slice of an Order the registry keeps in memory so
// a confirmation-saga transition can reissue commands without a database
// round-trip on every event (§3 "Ownership").
type OrderSnapshot struct {
	OrderID        uint
	UserID         uint
	Address        string
	NumberOfPieces int
	PiecesA        int
	PiecesB        int
}

// ConfirmationInstance is the in-memory confirmation-saga state, keyed by
// OrderID. Mu serializes transitions for this one instance (§5: "no
// transition runs concurrently with another for the same key").
type ConfirmationInstance struct {
	mu       sync.Mutex
	OrderID  uint
	State    entity.CreationStatus
	Snapshot OrderSnapshot
	onFinish func(orderID uint, state entity.CreationStatus)
}

// CancellationInstance is the in-memory cancellation-saga state, keyed by
// SagaID.
type CancellationInstance struct {
	mu        sync.Mutex
	SagaID    string
	OrderID   uint
	UserID    uint
	State     entity.CancelSagaState
	LastError string
	onFinish  func(sagaID string, state entity.CancelSagaState)
}

var confirmationTerminal = map[entity.CreationStatus]bool{
	entity.CreationConfirmed: true,
	entity.CreationNoMoney:   true,
	entity.CreationReturned:  true,
}

var cancellationTerminal = map[entity.CancelSagaState]bool{
	entity.CancelStateCanceled:            true,
	entity.CancelStateCancelPendingRefund: true,
}

// Registry is the two concurrent maps of SPEC_FULL.md §4.3.
type Registry struct {
	mu            sync.Mutex
	confirmations map[uint]*ConfirmationInstance
	cancellations map[string]*CancellationInstance
	audit         auditSink
}

// auditSink is the minimal logging capability the registry needs for the
// idempotent-double-start log line (§4.3: "a start for an already-active
// key is a no-op (and logged)").
type auditSink interface {
	Info(message string, fields map[string]interface{})
}

func NewRegistry(audit auditSink) *Registry {
	return &Registry{
		confirmations: make(map[uint]*ConfirmationInstance),
		cancellations: make(map[string]*CancellationInstance),
		audit:         audit,
	}
}

// StartConfirmation creates a Pending instance keyed by orderID, unless
// one is already active (idempotent no-op). onFinish is invoked, then the
// instance is unregistered, the moment the state machine enters a
// terminal state.
func (r *Registry) StartConfirmation(orderID uint, snapshot OrderSnapshot, onFinish func(uint, entity.CreationStatus)) (*ConfirmationInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.confirmations[orderID]; ok {
		r.audit.Info("confirmation saga already active, ignoring duplicate start", map[string]interface{}{"order_id": orderID})
		return existing, false
	}

	inst := &ConfirmationInstance{
		OrderID:  orderID,
		State:    entity.CreationPending,
		Snapshot: snapshot,
		onFinish: onFinish,
	}
	r.confirmations[orderID] = inst
	return inst, true
}

// RestoreConfirmation repopulates the confirmation map with a mirrored
// instance read back from persistence at process start (OQ-1: "decided
// yes ... read back on process start to repopulate the in-memory
// registry"). Records already in a terminal state are skipped — they
// have nothing left to drive, and persistMirror deletes their mirror row
// on settle, so finding one here means it predates that cleanup.
func (r *Registry) RestoreConfirmation(orderID uint, state entity.CreationStatus, snapshot OrderSnapshot, onFinish func(uint, entity.CreationStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if confirmationTerminal[state] {
		return
	}
	if _, ok := r.confirmations[orderID]; ok {
		return
	}

	r.confirmations[orderID] = &ConfirmationInstance{
		OrderID:  orderID,
		State:    state,
		Snapshot: snapshot,
		onFinish: onFinish,
	}
}

func (r *Registry) GetConfirmation(orderID uint) (*ConfirmationInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.confirmations[orderID]
	return inst, ok
}

func (r *Registry) RemoveConfirmation(orderID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.confirmations, orderID)
}

// settleConfirmation updates inst.State and, if the new state is
// terminal, invokes onFinish and unregisters the instance. Must be
// called with inst.mu held.
func (r *Registry) settleConfirmation(inst *ConfirmationInstance, next entity.CreationStatus) {
	inst.State = next
	if !confirmationTerminal[next] {
		return
	}
	if inst.onFinish != nil {
		inst.onFinish(inst.OrderID, next)
	}
	r.RemoveConfirmation(inst.OrderID)
}

// StartCancellation creates a Canceling instance keyed by sagaID, unless
// one is already active.
func (r *Registry) StartCancellation(sagaID string, orderID, userID uint, onFinish func(string, entity.CancelSagaState)) (*CancellationInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.cancellations[sagaID]; ok {
		r.audit.Info("cancellation saga already active, ignoring duplicate start", map[string]interface{}{"saga_id": sagaID})
		return existing, false
	}

	inst := &CancellationInstance{
		SagaID:   sagaID,
		OrderID:  orderID,
		UserID:   userID,
		State:    entity.CancelStateCanceling,
		onFinish: onFinish,
	}
	r.cancellations[sagaID] = inst
	return inst, true
}

func (r *Registry) GetCancellation(sagaID string) (*CancellationInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.cancellations[sagaID]
	return inst, ok
}

func (r *Registry) RemoveCancellation(sagaID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancellations, sagaID)
}

func (r *Registry) settleCancellation(inst *CancellationInstance, next entity.CancelSagaState, lastErr string) {
	inst.State = next
	inst.LastError = lastErr
	if !cancellationTerminal[next] {
		return
	}
	if inst.onFinish != nil {
		inst.onFinish(inst.SagaID, next)
	}
	r.RemoveCancellation(inst.SagaID)
}
