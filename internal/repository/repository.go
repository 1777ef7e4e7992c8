package repository

import (
	"context"

	"github.com/iliyamo/shop-api/internal/model"
)

// UserRepository owns User records.
type UserRepository interface {
	// Create inserts u and sets its ID and CreatedAt. It returns
	// ErrDuplicate when the username is taken (exact, case-sensitive match).
	Create(ctx context.Context, u *model.User) error
	// GetByUsername returns ErrNotFound when no user has that exact name.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// ProductRepository owns Product records, including the embedded review
// id list. The list itself is only ever changed by ReviewRepository.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	// GetByID returns the product whether or not it is soft-deleted.
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	// ListActive returns products whose soft-delete flag is unset, ordered by id.
	ListActive(ctx context.Context) ([]*model.Product, error)
	// NameTaken reports whether a live product other than excludeID uses name.
	NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error)
	// Update writes the mutable fields of p: name, image_url, price,
	// description and is_deleted.
	Update(ctx context.Context, p *model.Product) error
	// SetDeleted sets the soft-delete flag. Setting an already-set flag is
	// not an error.
	SetDeleted(ctx context.Context, id uint64, deleted bool) error
}

// ReviewRepository owns Review records and keeps each product's review id
// list in sync with them: every method that creates or removes a review
// updates the owning product's list in the same call.
type ReviewRepository interface {
	// Create inserts r and appends its id to the product's review list.
	// It returns ErrNotFound when the product does not exist.
	Create(ctx context.Context, r *model.Review) error
	GetByID(ctx context.Context, id uint64) (*model.Review, error)
	UpdateText(ctx context.Context, id uint64, text string) error
	// Delete removes the review and pulls its id from the product's list.
	Delete(ctx context.Context, r *model.Review) error
}

// OrderRepository owns Order and OrderItem records. Items are written one
// at a time before the order that references them; there is no
// multi-record transaction across these calls.
type OrderRepository interface {
	CreateItem(ctx context.Context, item *model.OrderItem) error
	// DeleteItems removes items that never got linked to an order.
	DeleteItems(ctx context.Context, ids []uint64) error
	Create(ctx context.Context, o *model.Order) error
	List(ctx context.Context) ([]*model.Order, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error)
	// ItemsByIDs returns the items in the order of ids, skipping unknown ids.
	ItemsByIDs(ctx context.Context, ids []uint64) ([]*model.OrderItem, error)
	// ListReferencingProduct returns every order with at least one item
	// for productID.
	ListReferencingProduct(ctx context.Context, productID uint64) ([]*model.Order, error)
	// MarkItemsDeleted flags the items among itemIDs that reference
	// productID and reports how many matched.
	MarkItemsDeleted(ctx context.Context, itemIDs []uint64, productID uint64) (int, error)
	// HasPaidPurchase reports whether userID has a paid order containing an
	// item for productID.
	HasPaidPurchase(ctx context.Context, userID, productID uint64) (bool, error)
}
