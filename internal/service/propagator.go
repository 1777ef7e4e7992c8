package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/metrics"
	"github.com/iliyamo/shop-api/internal/repository"
)

// Propagator flags the order items of a product that left the catalog.
// Each order is written on its own; there is no transaction across orders.
type Propagator struct {
	orders repository.OrderRepository
	log    *zap.Logger
}

func NewPropagator(orders repository.OrderRepository, log *zap.Logger) *Propagator {
	if orders == nil {
		panic("nil OrderRepository")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Propagator{orders: orders, log: log}
}

// Propagate marks every item for productID as deleted and returns how many
// orders were touched. Running it again is harmless. A failing order does
// not stop the pass; the first such error is returned at the end.
func (p *Propagator) Propagate(ctx context.Context, productID uint64) (int, error) {
	orders, err := p.orders.ListReferencingProduct(ctx, productID)
	if err != nil {
		return 0, err
	}

	var (
		touched  int
		firstErr error
	)
	for _, o := range orders {
		n, err := p.orders.MarkItemsDeleted(ctx, o.ItemIDs, productID)
		if err != nil {
			metrics.PropagationFailures.Inc()
			p.log.Error("propagation failed for order",
				zap.Uint64("order_id", o.ID), zap.Uint64("product_id", productID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			touched++
			metrics.PropagationItems.Add(float64(n))
		}
	}
	p.log.Info("product removal propagated",
		zap.Uint64("product_id", productID), zap.Int("orders", touched), zap.Int("candidates", len(orders)))
	return touched, firstErr
}
