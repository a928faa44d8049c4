package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/santosdev/order-orchestrator/internal/bus"
	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/santosdev/order-orchestrator/internal/saga"
	"github.com/santosdev/order-orchestrator/internal/usecase"
	"github.com/santosdev/order-orchestrator/pkg/auditlog"
	"github.com/santosdev/order-orchestrator/pkg/auth"
	"github.com/santosdev/order-orchestrator/pkg/middleware"
)

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

type fakeBusClient struct{}

func (f *fakeBusClient) DeclareExchange(name, kind string) error { return nil }
func (f *fakeBusClient) PublishMessage(exchange, routingKey string, message interface{}) error {
	return nil
}
func (f *fakeBusClient) PublishMessageWithRetry(exchange, routingKey string, message interface{}, retries int) error {
	return nil
}

type noopAudit struct{}

func (noopAudit) Info(message string, fields map[string]interface{}) {}

func setupTestRouter(orders *mockOrderRepo, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)

	registry := saga.NewRegistry(noopAudit{})
	busClient := &fakeBusClient{}
	egress := bus.NewEgress(busClient, auditlog.New("order-test", bus.LogsExchange, busClient))
	confirmation := saga.NewConfirmationSaga(registry, orders, nil, egress, noopAudit{})
	cancellation := saga.NewCancellationSaga(registry, orders, nil, egress, noopAudit{})
	uc := usecase.NewOrderUseCase(orders, confirmation, cancellation)

	jwtManager := auth.NewJWTManager(auth.NewConfig())
	authMiddleware := auth.NewAuthMiddleware(jwtManager)
	internalAuth := middleware.NewInternalAuthMiddleware(nil)

	handler := NewOrderHandler(uc, authMiddleware, internalAuth)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if authenticated {
			c.Set("user_id", uint(7))
		}
		c.Next()
	})
	r.GET("/health", handler.HealthCheck)
	r.POST("/api/v1/order", handler.CreateOrder)
	r.GET("/api/v1/order", handler.ListOrders)
	r.GET("/api/v1/order/:id", handler.GetOrder)
	r.GET("/api/v1/order/:id/status", handler.GetOrderStatus)
	r.POST("/api/v1/order/:id/cancel", handler.CancelOrder)
	r.DELETE("/api/v1/order/:id", internalAuth.Required(), handler.DeleteOrder)

	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrder_Returns201(t *testing.T) {
	orders := new(mockOrderRepo)
	orders.On("Create", mock.Anything, mock.AnythingOfType("*entity.Order")).Return(nil)

	r := setupTestRouter(orders, true)
	w := doRequest(r, http.MethodPost, "/api/v1/order", usecase.CreateOrderRequest{PiecesA: 1, PiecesB: 2})

	assert.Equal(t, http.StatusCreated, w.Code)
	orders.AssertExpectations(t)
}

func TestCreateOrder_EmptyOrderReturns422(t *testing.T) {
	orders := new(mockOrderRepo)
	r := setupTestRouter(orders, true)

	w := doRequest(r, http.MethodPost, "/api/v1/order", usecase.CreateOrderRequest{PiecesA: 0, PiecesB: 0})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetOrder_NotFoundReturns404(t *testing.T) {
	orders := new(mockOrderRepo)
	orders.On("GetByID", mock.Anything, uint(99)).Return(nil, assert.AnError)

	r := setupTestRouter(orders, true)
	w := doRequest(r, http.MethodGet, "/api/v1/order/99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrder_AdmissionViolationReturns409(t *testing.T) {
	orders := new(mockOrderRepo)
	orders.On("GetByID", mock.Anything, uint(3)).Return(&entity.Order{ID: 3, CreationStatus: entity.CreationPending}, nil)

	r := setupTestRouter(orders, true)
	w := doRequest(r, http.MethodPost, "/api/v1/order/3/cancel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// DELETE is gated behind the internal API middleware in addition to the
// customer JWT check; a request from an untrusted address without the
// internal API key is rejected before reaching the usecase.
func TestDeleteOrder_RejectedWithoutInternalAuth(t *testing.T) {
	orders := new(mockOrderRepo)
	r := setupTestRouter(orders, true)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/order/1", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	orders.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
