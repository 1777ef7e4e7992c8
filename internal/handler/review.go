package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/service"
)

// ReviewHandler serves product reviews.
type ReviewHandler struct {
	Reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	if reviews == nil {
		panic("nil ReviewService passed to NewReviewHandler")
	}
	return &ReviewHandler{Reviews: reviews}
}

type createReviewReq struct {
	ProductID uint64 `json:"product_id"`
	UserID    uint64 `json:"user_id"`
	Text      string `json:"text"`
}

type updateReviewReq struct {
	Text string `json:"text"`
}

// ListForProduct returns the reviews of :productId with per-caller flags.
func (h *ReviewHandler) ListForProduct(c echo.Context) error {
	productID, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := h.Reviews.ListForProduct(ctx, middleware.CurrentIdentity(c), productID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

func (h *ReviewHandler) Create(c echo.Context) error {
	var req createReviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Reviews.Create(ctx, middleware.CurrentIdentity(c), req.ProductID, req.UserID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *ReviewHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateReviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Reviews.Update(ctx, middleware.CurrentIdentity(c), id, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Reviews.Delete(ctx, middleware.CurrentIdentity(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ack("review deleted", echo.Map{"id": id}))
}
