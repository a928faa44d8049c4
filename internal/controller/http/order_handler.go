// Package http is the thin HTTP façade over the order usecase, mirroring
// order-service's order_handler.go: routes call straight into the
// usecase and carry no business logic of their own.
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/santosdev/order-orchestrator/internal/usecase"
	"github.com/santosdev/order-orchestrator/pkg/auth"
	apperrors "github.com/santosdev/order-orchestrator/pkg/errors"
	"github.com/santosdev/order-orchestrator/pkg/middleware"
)

type OrderHandler struct {
	orderUseCase     *usecase.OrderUseCase
	authMiddleware   *auth.AuthMiddleware
	internalAuth     *middleware.InternalAuthMiddleware
}

func NewOrderHandler(orderUseCase *usecase.OrderUseCase, authMiddleware *auth.AuthMiddleware, internalAuth *middleware.InternalAuthMiddleware) *OrderHandler {
	return &OrderHandler{
		orderUseCase:   orderUseCase,
		authMiddleware: authMiddleware,
		internalAuth:   internalAuth,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)

	api := router.Group("/api/v1")
	api.Use(h.authMiddleware.AuthRequired())
	{
		api.POST("/order", h.CreateOrder)
		api.GET("/order", h.ListOrders)
		api.GET("/order/:id", h.GetOrder)
		api.GET("/order/:id/status", h.GetOrderStatus)
		api.POST("/order/:id/cancel", h.CancelOrder)

		// Hard delete bypasses the two sagas entirely, so it's restricted
		// to internal callers on top of the customer JWT check.
		api.DELETE("/order/:id", h.internalAuth.Required(), h.DeleteOrder)
	}
}

func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req usecase.CreateOrderRequest
	if !apperrors.BindJSON(c, &req) {
		return
	}

	req.ClientID = auth.GetUserID(c)

	order, err := h.orderUseCase.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orderUseCase.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	clientID := auth.GetUserID(c)

	orders, err := h.orderUseCase.ListOrders(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	status, err := h.orderUseCase.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// CancelOrder runs the admission check and, if admitted, starts the
// cancellation saga, returning 202 per §6's exit-code mapping.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	sagaID, err := h.orderUseCase.CancelOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"saga_id": sagaID})
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := h.orderUseCase.DeleteOrder(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) respondError(c *gin.Context, err error) {
	code, response := apperrors.ToHTTPResponse(err)
	c.JSON(code, response)
}

func parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
