package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/shop-api/internal/model"
)

// ReviewRepo is the MySQL implementation of ReviewRepository. Creating or
// deleting a review and editing the owning product's review_ids list happen
// in one transaction, with the product row locked for the duration.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// lockReviewIDs reads and locks the product's review list inside tx.
func lockReviewIDs(ctx context.Context, tx *sql.Tx, productID uint64) ([]uint64, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx, "SELECT review_ids FROM products WHERE id = ? FOR UPDATE", productID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeIDs(raw)
}

func storeReviewIDs(ctx context.Context, tx *sql.Tx, productID uint64, ids []uint64) error {
	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "UPDATE products SET review_ids = ? WHERE id = ?", raw, productID)
	return err
}

// Create inserts the review and appends its id to the product's list.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	ids, err := lockReviewIDs(ctx, tx, rv.ProductID)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reviews (user_id, product_id, text) VALUES (?, ?, ?)",
		rv.UserID, rv.ProductID, rv.Text)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	if err = tx.QueryRowContext(ctx, "SELECT created_at FROM reviews WHERE id = ?", rv.ID).Scan(&rv.CreatedAt); err != nil {
		return err
	}
	return storeReviewIDs(ctx, tx, rv.ProductID, append(ids, rv.ID))
}

// GetByID fetches a review by id.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	var rv model.Review
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, product_id, text, created_at FROM reviews WHERE id = ?", id).
		Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Text, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// UpdateText replaces the review text. The product list holds only ids, so
// it needs no change.
func (r *ReviewRepo) UpdateText(ctx context.Context, id uint64, text string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE reviews SET text = ? WHERE id = ?", text, id)
	return err
}

// Delete removes the review and pulls every occurrence of its id from the
// owning product's list. A product that no longer exists is skipped.
func (r *ReviewRepo) Delete(ctx context.Context, rv *model.Review) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	ids, lockErr := lockReviewIDs(ctx, tx, rv.ProductID)
	productGone := errors.Is(lockErr, ErrNotFound)
	if lockErr != nil && !productGone {
		return lockErr
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", rv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if productGone {
		return nil
	}
	return storeReviewIDs(ctx, tx, rv.ProductID, removeID(ids, rv.ID))
}

// removeID returns ids without any occurrence of id.
func removeID(ids []uint64, id uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
