package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/shop-api/internal/model"
)

// OrderRepo provides persistence for orders and their items. Items are
// stored in order_items; an order keeps the ids of its items in the
// item_ids JSON column, in submission order.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateItem inserts a single order item and populates its ID.
func (r *OrderRepo) CreateItem(ctx context.Context, item *model.OrderItem) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO order_items (product_id, quantity, purchase_price, is_deleted) VALUES (?, ?, ?, ?)",
		item.ProductID, item.Quantity, item.PurchasePrice, item.IsDeleted)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = uint64(id)
	return nil
}

// DeleteItems removes the given items. Passing an empty slice has no effect.
func (r *OrderRepo) DeleteItems(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := placeholders(ids)
	_, err := r.db.ExecContext(ctx, "DELETE FROM order_items WHERE id IN ("+in+")", args...)
	return err
}

// Create inserts the order and populates ID and CreatedAt.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	raw, err := encodeIDs(o.ItemIDs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO orders (user_id, status, item_ids) VALUES (?, ?, ?)",
		o.UserID, string(o.Status), raw)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM orders WHERE id = ?", o.ID).Scan(&o.CreatedAt)
}

const orderColumns = "o.id, o.user_id, o.status, o.item_ids, o.created_at"

func (r *OrderRepo) queryOrders(ctx context.Context, q string, args ...interface{}) ([]*model.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Order{}
	for rows.Next() {
		var (
			o      model.Order
			status string
			raw    []byte
		)
		if err := rows.Scan(&o.ID, &o.UserID, &status, &raw, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = model.OrderStatus(status)
		if o.ItemIDs, err = decodeIDs(raw); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns all orders ordered by id.
func (r *OrderRepo) List(ctx context.Context) ([]*model.Order, error) {
	return r.queryOrders(ctx, "SELECT "+orderColumns+" FROM orders o ORDER BY o.id")
}

// ListByUser returns the orders placed by userID ordered by id.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error) {
	return r.queryOrders(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.user_id = ? ORDER BY o.id", userID)
}

// ListReferencingProduct returns every order that has an item for productID.
func (r *OrderRepo) ListReferencingProduct(ctx context.Context, productID uint64) ([]*model.Order, error) {
	const q = `SELECT DISTINCT ` + orderColumns + `
	           FROM orders o
	           JOIN order_items oi ON JSON_CONTAINS(o.item_ids, CAST(oi.id AS JSON))
	           WHERE oi.product_id = ?
	           ORDER BY o.id`
	return r.queryOrders(ctx, q, productID)
}

// ItemsByIDs loads the given items and returns them in the order of ids.
func (r *OrderRepo) ItemsByIDs(ctx context.Context, ids []uint64) ([]*model.OrderItem, error) {
	out := []*model.OrderItem{}
	if len(ids) == 0 {
		return out, nil
	}
	in, args := placeholders(ids)
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, product_id, quantity, purchase_price, is_deleted FROM order_items WHERE id IN ("+in+")",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uint64]*model.OrderItem, len(ids))
	for rows.Next() {
		it := new(model.OrderItem)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.PurchasePrice, &it.IsDeleted); err != nil {
			return nil, err
		}
		byID[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// MarkItemsDeleted flags the items among itemIDs that reference productID.
// It returns the number of matching items, including ones already flagged.
func (r *OrderRepo) MarkItemsDeleted(ctx context.Context, itemIDs []uint64, productID uint64) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	in, args := placeholders(itemIDs)
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM order_items WHERE product_id = ? AND id IN ("+in+")",
		append([]interface{}{productID}, args...)...).Scan(&n)
	if err != nil || n == 0 {
		return 0, err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE order_items SET is_deleted = 1 WHERE product_id = ? AND id IN ("+in+")",
		append([]interface{}{productID}, args...)...)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// HasPaidPurchase reports whether the user has a paid order with an item
// for the product.
func (r *OrderRepo) HasPaidPurchase(ctx context.Context, userID, productID uint64) (bool, error) {
	const q = `SELECT 1
	           FROM orders o
	           JOIN order_items oi ON JSON_CONTAINS(o.item_ids, CAST(oi.id AS JSON))
	           WHERE o.user_id = ? AND o.status = ? AND oi.product_id = ?
	           LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, q, userID, string(model.OrderStatusPaid), productID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
