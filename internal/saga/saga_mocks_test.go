package saga

import (
	"context"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

// testAudit is a no-op auditSink that just counts calls, grounded on the
// teacher's practice of recording nothing-but-presence in saga tests.
type testAudit struct {
	infoCalls int
}

func (a *testAudit) Info(message string, fields map[string]interface{}) {
	a.infoCalls++
}

// mockOrderRepo mirrors MockOrderRepository from saga_orchestrator_test.go.
type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uint) (*entity.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByClientID(ctx context.Context, clientID uint) ([]entity.Order, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateCreationStatus(ctx context.Context, id uint, status entity.CreationStatus) (*entity.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateFabricationStatus(ctx context.Context, id uint, status entity.FabricationStatus) (*entity.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateDeliveryStatus(ctx context.Context, id uint, status entity.DeliveryStatus) (*entity.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *mockOrderRepo) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCancelSagaRepo struct {
	mock.Mock
}

func (m *mockCancelSagaRepo) Create(ctx context.Context, rec *entity.CancellationSagaRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockCancelSagaRepo) GetByID(ctx context.Context, sagaID string) (*entity.CancellationSagaRecord, error) {
	args := m.Called(ctx, sagaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CancellationSagaRecord), args.Error(1)
}

func (m *mockCancelSagaRepo) Update(ctx context.Context, sagaID string, state entity.CancelSagaState, errMsg string) (*entity.CancellationSagaRecord, error) {
	args := m.Called(ctx, sagaID, state, errMsg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CancellationSagaRecord), args.Error(1)
}

type mockConfirmationMirror struct {
	mock.Mock
}

func (m *mockConfirmationMirror) Upsert(ctx context.Context, orderID uint, state entity.CreationStatus, snapshot datatypes.JSONMap) error {
	args := m.Called(ctx, orderID, state, snapshot)
	return args.Error(0)
}

func (m *mockConfirmationMirror) ListActive(ctx context.Context) ([]entity.ConfirmationSagaRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.ConfirmationSagaRecord), args.Error(1)
}

func (m *mockConfirmationMirror) Delete(ctx context.Context, orderID uint) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// fakeBusClient is a lightweight stand-in for bus.Client: it records
// every publish (so tests can assert on routing keys/payloads) and never
// fails, unless PublishErr is set.
type fakeBusClient struct {
	PublishHistory []publishedMessage
	PublishErr     error
}

type publishedMessage struct {
	Exchange   string
	RoutingKey string
	Message    interface{}
}

func (f *fakeBusClient) DeclareExchange(name, kind string) error { return nil }

func (f *fakeBusClient) PublishMessage(exchange, routingKey string, message interface{}) error {
	f.PublishHistory = append(f.PublishHistory, publishedMessage{exchange, routingKey, message})
	return f.PublishErr
}

func (f *fakeBusClient) PublishMessageWithRetry(exchange, routingKey string, message interface{}, retries int) error {
	return f.PublishMessage(exchange, routingKey, message)
}
