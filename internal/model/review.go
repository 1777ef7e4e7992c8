package model

import "time"

// Review is a comment left by a customer on a product they bought. Each
// review id appears exactly once in its product's ReviewIDs list.
type Review struct {
	ID        uint64    `json:"id"`         // reviews.id
	UserID    uint64    `json:"user_id"`    // reviews.user_id
	ProductID uint64    `json:"product_id"` // reviews.product_id
	Text      string    `json:"text"`       // reviews.text
	CreatedAt time.Time `json:"created_at"` // reviews.created_at
}

// ReviewView is a review as returned to a particular caller: it carries the
// author's username and whether the caller may edit or delete it.
type ReviewView struct {
	Review
	Username  string `json:"username"`
	IsOperate bool   `json:"isOperate"`
}
