package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
)

// ReviewService manages product reviews. Only buyers may review; only the
// author or an admin may edit or delete.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository,
	orders repository.OrderRepository, users repository.UserRepository, log *zap.Logger) *ReviewService {
	if reviews == nil || products == nil || orders == nil || users == nil {
		panic("nil dependency for ReviewService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, products: products, orders: orders, users: users, log: log}
}

// view attaches the author's name and the caller's edit right. names
// caches usernames across one listing.
func (s *ReviewService) view(ctx context.Context, caller model.Identity, r *model.Review, names map[uint64]string) (*model.ReviewView, error) {
	name, ok := names[r.UserID]
	if !ok {
		u, err := s.users.GetByID(ctx, r.UserID)
		switch {
		case err == nil:
			name = u.Username
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		names[r.UserID] = name
	}
	return &model.ReviewView{Review: *r, Username: name, IsOperate: caller.CanOperate(r.UserID)}, nil
}

// ListForProduct returns the product's reviews in the product's own order.
func (s *ReviewService) ListForProduct(ctx context.Context, caller model.Identity, productID uint64) ([]*model.ReviewView, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}

	names := map[uint64]string{}
	out := make([]*model.ReviewView, 0, len(p.ReviewIDs))
	for _, id := range p.ReviewIDs {
		r, err := s.reviews.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err)
		}
		v, err := s.view(ctx, caller, r, names)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Create records a review by userID, who must be the caller and must have
// a paid order containing the product.
func (s *ReviewService) Create(ctx context.Context, caller model.Identity, productID, userID uint64, text string) (*model.ReviewView, error) {
	if caller.IsGuest() || userID != caller.ID {
		return nil, apperr.New(apperr.KindForbidden, "reviews can only be written as yourself")
	}
	if blank(text) {
		return nil, apperr.New(apperr.KindValidation, "text is required")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}

	bought, err := s.orders.HasPaidPurchase(ctx, caller.ID, productID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !bought {
		return nil, apperr.New(apperr.KindNotPurchased, "you can only review products you have purchased")
	}

	r := &model.Review{UserID: caller.ID, ProductID: productID, Text: text}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}
	s.log.Info("review created", zap.Uint64("review_id", r.ID), zap.Uint64("product_id", productID))
	return &model.ReviewView{Review: *r, Username: caller.Username, IsOperate: true}, nil
}

// owned loads a review the caller may operate on.
func (s *ReviewService) owned(ctx context.Context, caller model.Identity, reviewID uint64) (*model.Review, error) {
	r, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, notFound(err, apperr.KindNotFound, "review not found")
	}
	if !caller.CanOperate(r.UserID) {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to modify this review")
	}
	return r, nil
}

// Update replaces the review text. Blank text keeps the current text.
func (s *ReviewService) Update(ctx context.Context, caller model.Identity, reviewID uint64, text string) (*model.Review, error) {
	r, err := s.owned(ctx, caller, reviewID)
	if err != nil {
		return nil, err
	}
	if blank(text) {
		return r, nil
	}
	if err := s.reviews.UpdateText(ctx, r.ID, text); err != nil {
		return nil, notFound(err, apperr.KindNotFound, "review not found")
	}
	r.Text = text
	return r, nil
}

// Delete removes the review and its entry in the product's review list.
func (s *ReviewService) Delete(ctx context.Context, caller model.Identity, reviewID uint64) error {
	r, err := s.owned(ctx, caller, reviewID)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, r); err != nil {
		return notFound(err, apperr.KindNotFound, "review not found")
	}
	s.log.Info("review deleted", zap.Uint64("review_id", r.ID), zap.Uint64("product_id", r.ProductID))
	return nil
}
