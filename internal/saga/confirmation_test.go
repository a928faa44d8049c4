package saga

import (
	"context"
	"testing"

	"github.com/santosdev/order-orchestrator/internal/bus"
	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/pkg/auditlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

func newConfirmationSagaForTest() (*ConfirmationSaga, *mockOrderRepo, *fakeBusClient) {
	registry := NewRegistry(&testAudit{})
	orders := new(mockOrderRepo)
	busClient := &fakeBusClient{}
	egress := bus.NewEgress(busClient, auditlog.New("order-test", bus.LogsExchange, &fakeBusClient{}))
	return NewConfirmationSaga(registry, orders, nil, egress, &testAudit{}), orders, busClient
}

// S1 — happy path: Pending -> Paid -> Confirmed, publishing pay,
// check.delivery, then warehouse.order.
func TestConfirmationSaga_S1_HappyPath(t *testing.T) {
	ctx := context.Background()
	saga, orders, busClient := newConfirmationSagaForTest()

	order := &entity.Order{ID: 1, ClientID: 7, PiecesA: 3, PiecesB: 2, NumberOfPieces: 5, Address: "Main St"}

	orders.On("UpdateCreationStatus", ctx, uint(1), entity.CreationPaid).Return(order, nil)
	orders.On("UpdateCreationStatus", ctx, uint(1), entity.CreationConfirmed).Return(order, nil)
	orders.On("UpdateFabricationStatus", ctx, uint(1), entity.FabricationRequested).Return(order, nil)

	assert.NoError(t, saga.Start(ctx, order))
	assert.NoError(t, saga.HandleEvent(ctx, 1, EventPaymentAccepted, ""))
	assert.NoError(t, saga.HandleEvent(ctx, 1, EventDeliveryPossible, ""))

	_, stillActive := saga.registry.GetConfirmation(1)
	assert.False(t, stillActive, "Confirmed is terminal, instance must be unregistered")

	assert.Len(t, busClient.PublishHistory, 3)
	assert.Equal(t, bus.KeyPay, busClient.PublishHistory[0].RoutingKey)
	assert.Equal(t, bus.KeyCheckDelivery, busClient.PublishHistory[1].RoutingKey)
	assert.Equal(t, bus.KeyWarehouseOrder, busClient.PublishHistory[2].RoutingKey)

	warehousePayload, ok := busClient.PublishHistory[2].Message.(bus.WarehouseOrderPayload)
	assert.True(t, ok)
	assert.Equal(t, 5, warehousePayload.NumberOfPieces)

	orders.AssertExpectations(t)
}

// S2 — payment rejected: Pending -> NoMoney, no further commands.
func TestConfirmationSaga_S2_PaymentRejected(t *testing.T) {
	ctx := context.Background()
	saga, orders, busClient := newConfirmationSagaForTest()

	order := &entity.Order{ID: 2, ClientID: 7, PiecesA: 1, PiecesB: 1, NumberOfPieces: 2}
	orders.On("UpdateCreationStatus", ctx, uint(2), entity.CreationNoMoney).Return(order, nil)

	assert.NoError(t, saga.Start(ctx, order))
	assert.NoError(t, saga.HandleEvent(ctx, 2, EventPaymentRejected, ""))

	assert.Len(t, busClient.PublishHistory, 1, "only the initial pay command, no delivery/warehouse commands")
	_, active := saga.registry.GetConfirmation(2)
	assert.False(t, active)
	orders.AssertExpectations(t)
}

// S3 — delivery infeasible, refund OK: Pending -> Paid -> NotDeliverable -> Returned.
func TestConfirmationSaga_S3_NotDeliverableThenReturned(t *testing.T) {
	ctx := context.Background()
	saga, orders, busClient := newConfirmationSagaForTest()

	order := &entity.Order{ID: 3, ClientID: 9, PiecesA: 1, PiecesB: 0, NumberOfPieces: 1}
	orders.On("UpdateCreationStatus", ctx, uint(3), entity.CreationPaid).Return(order, nil)
	orders.On("UpdateCreationStatus", ctx, uint(3), entity.CreationNotDeliverable).Return(order, nil)
	orders.On("UpdateCreationStatus", ctx, uint(3), entity.CreationReturned).Return(order, nil)

	assert.NoError(t, saga.Start(ctx, order))
	assert.NoError(t, saga.HandleEvent(ctx, 3, EventPaymentAccepted, ""))
	assert.NoError(t, saga.HandleEvent(ctx, 3, EventDeliveryNotPossible, ""))
	assert.NoError(t, saga.HandleEvent(ctx, 3, EventMoneyReturned, ""))

	assert.Len(t, busClient.PublishHistory, 3)
	assert.Equal(t, bus.KeyReturnMoney, busClient.PublishHistory[2].RoutingKey)

	_, active := saga.registry.GetConfirmation(3)
	assert.False(t, active)
	orders.AssertExpectations(t)
}

// Once a saga reaches a terminal state (NoMoney here) it is unregistered,
// so a repeated payment_accepted no longer correlates: HandleEvent
// returns ErrUnknownConfirmationSaga, which the ingress acks and drops.
func TestConfirmationSaga_IgnoresEventOnceUnregistered(t *testing.T) {
	ctx := context.Background()
	saga, orders, _ := newConfirmationSagaForTest()

	order := &entity.Order{ID: 4, ClientID: 1, PiecesA: 1, PiecesB: 1, NumberOfPieces: 2}
	orders.On("UpdateCreationStatus", ctx, uint(4), entity.CreationNoMoney).Return(order, nil)

	assert.NoError(t, saga.Start(ctx, order))
	assert.NoError(t, saga.HandleEvent(ctx, 4, EventPaymentRejected, ""))

	err := saga.HandleEvent(ctx, 4, EventPaymentAccepted, "")
	assert.ErrorIs(t, err, ErrUnknownConfirmationSaga)
	orders.AssertExpectations(t)
}

func TestConfirmationSaga_DoubleStartIsNoop(t *testing.T) {
	ctx := context.Background()
	saga, orders, busClient := newConfirmationSagaForTest()

	order := &entity.Order{ID: 5, ClientID: 1, PiecesA: 1, PiecesB: 0, NumberOfPieces: 1}

	assert.NoError(t, saga.Start(ctx, order))
	assert.NoError(t, saga.Start(ctx, order))

	assert.Len(t, busClient.PublishHistory, 1, "second Start must not republish the pay command")
	orders.AssertNotCalled(t, "UpdateCreationStatus", mock.Anything, mock.Anything, mock.Anything)
}

// OQ-1: a mirrored non-terminal record is rehydrated into the registry;
// a terminal one is skipped, since persistMirror deletes it on settle
// and a surviving terminal row predates that cleanup.
func TestConfirmationSaga_Restore_RepopulatesNonTerminalOnly(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(&testAudit{})
	orders := new(mockOrderRepo)
	mirror := new(mockConfirmationMirror)
	busClient := &fakeBusClient{}
	egress := bus.NewEgress(busClient, auditlog.New("order-test", bus.LogsExchange, busClient))
	saga := NewConfirmationSaga(registry, orders, mirror, egress, &testAudit{})

	mirror.On("ListActive", ctx).Return([]entity.ConfirmationSagaRecord{
		{OrderID: 10, State: entity.CreationPaid, OrderSnapshot: datatypes.JSONMap{
			"order_id": float64(10), "user_id": float64(7), "address": "Main St",
			"number_of_pieces": float64(3), "pieces_a": float64(2), "pieces_b": float64(1),
		}},
		{OrderID: 11, State: entity.CreationConfirmed, OrderSnapshot: datatypes.JSONMap{"order_id": float64(11)}},
	}, nil)

	assert.NoError(t, saga.Restore(ctx))

	inst, active := registry.GetConfirmation(10)
	assert.True(t, active, "non-terminal mirrored saga must be restored")
	assert.Equal(t, entity.CreationPaid, inst.State)
	assert.Equal(t, "Main St", inst.Snapshot.Address)
	assert.Equal(t, 3, inst.Snapshot.NumberOfPieces)

	_, terminalRestored := registry.GetConfirmation(11)
	assert.False(t, terminalRestored, "terminal mirrored saga must not be restored")

	mirror.AssertExpectations(t)
}

// persistMirror deletes the mirror row once a saga reaches a terminal
// state instead of upserting it, so ListActive never sees stale
// terminal records on the next restart.
func TestConfirmationSaga_PersistMirror_DeletesOnTerminal(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(&testAudit{})
	orders := new(mockOrderRepo)
	mirror := new(mockConfirmationMirror)
	busClient := &fakeBusClient{}
	egress := bus.NewEgress(busClient, auditlog.New("order-test", bus.LogsExchange, busClient))
	saga := NewConfirmationSaga(registry, orders, mirror, egress, &testAudit{})

	order := &entity.Order{ID: 6, ClientID: 1, PiecesA: 1, PiecesB: 1, NumberOfPieces: 2}
	orders.On("UpdateCreationStatus", ctx, uint(6), entity.CreationNoMoney).Return(order, nil)

	mirror.On("Upsert", ctx, uint(6), entity.CreationPending, mock.Anything).Return(nil)
	mirror.On("Delete", ctx, uint(6)).Return(nil)

	assert.NoError(t, saga.Start(ctx, order))
	assert.NoError(t, saga.HandleEvent(ctx, 6, EventPaymentRejected, ""))

	mirror.AssertExpectations(t)
	mirror.AssertNotCalled(t, "Upsert", ctx, uint(6), entity.CreationNoMoney, mock.Anything)
}
