package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry stored in the `products` table. ReviewIDs is
// the denormalized, ordered list of reviews attached to the product; it is
// the source of display order, while the `reviews` table is the source of
// truth for ownership.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique among products that are not soft-deleted.
//  ImageURL    – public URL of the product picture.
//  Price       – current price, strictly positive.
//  Description – free text.
//  IsDeleted   – soft-delete flag; deleted products stay resolvable by id.
//  ReviewIDs   – products.review_ids JSON array.
type Product struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	IsDeleted   bool            `json:"is_deleted"`
	ReviewIDs   []uint64        `json:"reviews"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Summary returns the subset of product fields embedded in order views.
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Price: p.Price, IsDeleted: p.IsDeleted}
}

// ProductSummary is the product as seen from an order line.
type ProductSummary struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Price     decimal.Decimal `json:"price"`
	IsDeleted bool            `json:"is_deleted"`
}
