package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/metrics"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
)

// OrderLine is one requested item. A nil PurchasePrice takes the
// product's current price.
type OrderLine struct {
	ProductID     uint64
	Quantity      int
	PurchasePrice *decimal.Decimal
}

// OrderService places and lists orders.
//
// Placing an order writes each item and then the order that links them,
// with no transaction across those writes. When a later step fails, the
// items already written are deleted again before the error is returned.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	log      *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, log *zap.Logger) *OrderService {
	if orders == nil || products == nil {
		panic("nil dependency for OrderService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{orders: orders, products: products, log: log}
}

func validateLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return apperr.New(apperr.KindValidation, "orderItems must not be empty")
	}
	for _, l := range lines {
		if l.ProductID == 0 {
			return apperr.New(apperr.KindValidation, "product_id is required")
		}
		if l.Quantity < 1 || l.Quantity > maxQuantity {
			return apperr.New(apperr.KindValidation, "quantity must be between 1 and 2147483647")
		}
		if l.PurchasePrice != nil {
			if err := checkPrice("purchasePrice", *l.PurchasePrice); err != nil {
				return err
			}
		}
	}
	return nil
}

// Create places a paid order for targetUserID, which must be the caller.
// Soft-deleted products cannot be ordered.
func (s *OrderService) Create(ctx context.Context, caller model.Identity, targetUserID uint64, lines []OrderLine) (view *model.OrderView, err error) {
	if caller.IsGuest() || targetUserID != caller.ID {
		return nil, apperr.New(apperr.KindForbidden, "orders can only be placed for yourself")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var created []uint64
	defer func() {
		if err != nil && len(created) > 0 {
			s.compensate(ctx, created)
		}
	}()

	view = &model.OrderView{Items: make([]model.OrderItemView, 0, len(lines))}
	for _, l := range lines {
		p, gerr := s.products.GetByID(ctx, l.ProductID)
		if gerr != nil && !errors.Is(gerr, repository.ErrNotFound) {
			return nil, apperr.Internal(gerr)
		}
		if gerr != nil || p.IsDeleted {
			return nil, apperr.New(apperr.KindProductNotFound, "product not found")
		}

		price := p.Price
		if l.PurchasePrice != nil {
			price = *l.PurchasePrice
		}
		item := &model.OrderItem{ProductID: p.ID, Quantity: l.Quantity, PurchasePrice: price}
		if cerr := s.orders.CreateItem(ctx, item); cerr != nil {
			return nil, apperr.Internal(cerr)
		}
		created = append(created, item.ID)
		view.Items = append(view.Items, model.OrderItemView{OrderItem: *item, Product: p.Summary()})
	}

	order := &model.Order{UserID: caller.ID, Status: model.OrderStatusPaid, ItemIDs: created}
	if cerr := s.orders.Create(ctx, order); cerr != nil {
		return nil, apperr.Internal(cerr)
	}
	view.Order = *order
	metrics.OrdersCreated.Inc()
	s.log.Info("order placed", zap.Uint64("order_id", order.ID), zap.Uint64("user_id", caller.ID), zap.Int("items", len(created)))
	return view, nil
}

// compensate removes items that never got an order. It runs even if the
// request context is already cancelled.
func (s *OrderService) compensate(ctx context.Context, itemIDs []uint64) {
	if err := s.orders.DeleteItems(context.WithoutCancel(ctx), itemIDs); err != nil {
		metrics.OrderCompensations.WithLabelValues("failed").Inc()
		s.log.Error("orphaned order items left behind", zap.Uint64s("item_ids", itemIDs), zap.Error(err))
		return
	}
	metrics.OrderCompensations.WithLabelValues("ok").Inc()
	s.log.Warn("order aborted, items removed", zap.Uint64s("item_ids", itemIDs))
}

// List returns every order to an admin and the caller's own orders to
// anyone else. A non-admin with no orders gets NOT_FOUND.
func (s *OrderService) List(ctx context.Context, caller model.Identity) ([]*model.OrderView, error) {
	var (
		orders []*model.Order
		err    error
	)
	if caller.IsAdmin() {
		orders, err = s.orders.List(ctx)
	} else {
		orders, err = s.orders.ListByUser(ctx, caller.ID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(orders) == 0 && !caller.IsAdmin() {
		return nil, apperr.New(apperr.KindNotFound, "no orders found")
	}
	return s.resolve(ctx, orders)
}

// resolve loads the items of every order and the product behind each item.
func (s *OrderService) resolve(ctx context.Context, orders []*model.Order) ([]*model.OrderView, error) {
	var ids []uint64
	for _, o := range orders {
		ids = append(ids, o.ItemIDs...)
	}
	items := map[uint64]*model.OrderItem{}
	if len(ids) > 0 {
		list, err := s.orders.ItemsByIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, it := range list {
			items[it.ID] = it
		}
	}

	products := map[uint64]*model.ProductSummary{}
	summary := func(id uint64) (*model.ProductSummary, error) {
		if ps, ok := products[id]; ok {
			return ps, nil
		}
		p, err := s.products.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			products[id] = nil
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		products[id] = p.Summary()
		return products[id], nil
	}

	views := make([]*model.OrderView, 0, len(orders))
	for _, o := range orders {
		v := &model.OrderView{Order: *o, Items: make([]model.OrderItemView, 0, len(o.ItemIDs))}
		for _, id := range o.ItemIDs {
			it, ok := items[id]
			if !ok {
				continue
			}
			ps, err := summary(it.ProductID)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			v.Items = append(v.Items, model.OrderItemView{OrderItem: *it, Product: ps})
		}
		views = append(views, v)
	}
	return views, nil
}
