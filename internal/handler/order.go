package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/service"
)

// OrderHandler serves order placement and listing.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	if orders == nil {
		panic("nil OrderService passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders}
}

type orderItemReq struct {
	ProductID     uint64           `json:"product_id"`
	Quantity      int              `json:"quantity"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
}

type createOrderReq struct {
	UserID uint64         `json:"user_id"`
	Items  []orderItemReq `json:"orderItems"`
}

// Create places an order for the caller.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	lines := make([]service.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, PurchasePrice: it.PurchasePrice})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Create(ctx, middleware.CurrentIdentity(c), req.UserID, lines)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

// List returns all orders to admins and the caller's own orders otherwise.
func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.Orders.List(ctx, middleware.CurrentIdentity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}
