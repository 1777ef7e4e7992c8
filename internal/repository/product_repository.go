package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/shop-api/internal/model"
)

// ProductRepo is the MySQL implementation of ProductRepository. The
// embedded review list lives in the review_ids JSON column.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo constructs a ProductRepo with the provided DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

const productColumns = "id, name, image_url, price, description, is_deleted, review_ids, created_at, updated_at"

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (*model.Product, error) {
	var (
		p   model.Product
		raw []byte
	)
	if err := s.Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Description, &p.IsDeleted, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	ids, err := decodeIDs(raw)
	if err != nil {
		return nil, err
	}
	p.ReviewIDs = ids
	return &p, nil
}

// Create inserts a new product with an empty review list. On success the
// product's ID and timestamps are populated from the stored row.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const qInsert = `INSERT INTO products (name, image_url, price, description, is_deleted, review_ids)
	                 VALUES (?, ?, ?, ?, ?, JSON_ARRAY())`
	res, err := r.db.ExecContext(ctx, qInsert, p.Name, p.ImageURL, p.Price, p.Description, p.IsDeleted)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// GetByID fetches a product by id regardless of its soft-delete flag.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListActive returns every product that is not soft-deleted ordered by id.
// An empty catalog yields an empty, non-nil slice.
func (r *ProductRepo) ListActive(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products WHERE is_deleted = 0 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// NameTaken reports whether a live product other than excludeID already
// uses name. Soft-deleted products do not reserve their name.
func (r *ProductRepo) NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE name = ? AND is_deleted = 0 AND id <> ?",
		name, excludeID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update writes the mutable product fields. The review list is untouched.
// MySQL reports zero affected rows for a no-op update, so existence is the
// caller's check.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	const q = `UPDATE products
	           SET name = ?, image_url = ?, price = ?, description = ?, is_deleted = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, p.Name, p.ImageURL, p.Price, p.Description, p.IsDeleted, p.ID)
	return err
}

// SetDeleted sets or clears the soft-delete flag.
func (r *ProductRepo) SetDeleted(ctx context.Context, id uint64, deleted bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE products SET is_deleted = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		deleted, id)
	return err
}
