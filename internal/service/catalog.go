package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
)

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string
	ImageURL    string
	Price       decimal.Decimal
	Description string
}

// ProductPatch is a partial update. Nil fields are left unchanged; fields
// outside this set cannot be changed at all.
type ProductPatch struct {
	Name        *string
	ImageURL    *string
	Price       *decimal.Decimal
	Description *string
	IsDeleted   *bool
}

// DeleteResult reports the outcome of a soft delete.
type DeleteResult struct {
	ProductID     uint64 `json:"product_id"`
	OrdersUpdated int    `json:"orders_updated"`
}

// CatalogService manages products. Names are unique among live products;
// a soft-deleted product's name may be reused.
type CatalogService struct {
	products   repository.ProductRepository
	propagator *Propagator
	log        *zap.Logger
}

func NewCatalogService(products repository.ProductRepository, propagator *Propagator, log *zap.Logger) *CatalogService {
	if products == nil || propagator == nil {
		panic("nil dependency for CatalogService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{products: products, propagator: propagator, log: log}
}

// List returns the live products. An empty catalog is an empty slice.
func (s *CatalogService) List(ctx context.Context) ([]*model.Product, error) {
	ps, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if ps == nil {
		ps = []*model.Product{}
	}
	return ps, nil
}

// Get returns a product by id, soft-deleted or not.
func (s *CatalogService) Get(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}
	return p, nil
}

func (s *CatalogService) ensureNameFree(ctx context.Context, name string, excludeID uint64) error {
	taken, err := s.products.NameTaken(ctx, name, excludeID)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		return apperr.New(apperr.KindDuplicateName, "a product with this name already exists")
	}
	return nil
}

// Create validates in and stores a new live product.
func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	image := strings.TrimSpace(in.ImageURL)
	if name == "" || image == "" {
		return nil, apperr.New(apperr.KindValidation, "name and image_url are required")
	}
	if err := checkPrice("price", in.Price); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	p := &model.Product{Name: name, ImageURL: image, Price: in.Price, Description: in.Description}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("product created", zap.Uint64("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Update applies patch to the product. Turning the soft-delete flag on
// propagates to orders the same way SoftDelete does.
func (s *CatalogService) Update(ctx context.Context, id uint64, patch ProductPatch) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}
	wasDeleted := p.IsDeleted
	nameChanged := false

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.New(apperr.KindValidation, "name cannot be empty")
		}
		nameChanged = name != p.Name
		p.Name = name
	}
	if patch.ImageURL != nil {
		image := strings.TrimSpace(*patch.ImageURL)
		if image == "" {
			return nil, apperr.New(apperr.KindValidation, "image_url cannot be empty")
		}
		p.ImageURL = image
	}
	if patch.Price != nil {
		if err := checkPrice("price", *patch.Price); err != nil {
			return nil, err
		}
		p.Price = *patch.Price
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.IsDeleted != nil {
		p.IsDeleted = *patch.IsDeleted
	}

	if !p.IsDeleted && (nameChanged || wasDeleted) {
		if err := s.ensureNameFree(ctx, p.Name, p.ID); err != nil {
			return nil, err
		}
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}
	if !wasDeleted && p.IsDeleted {
		s.propagate(ctx, p.ID)
	}
	return s.Get(ctx, id)
}

// SoftDelete flags the product and propagates the removal to orders.
// Deleting an already deleted product succeeds and propagates again.
func (s *CatalogService) SoftDelete(ctx context.Context, id uint64) (*DeleteResult, error) {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return nil, notFound(err, apperr.KindNotFound, "product not found")
	}
	if err := s.products.SetDeleted(ctx, id, true); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("product soft-deleted", zap.Uint64("product_id", id))
	return &DeleteResult{ProductID: id, OrdersUpdated: s.propagate(ctx, id)}, nil
}

// propagate runs the propagator. Its errors are logged, not returned: the
// product is already deleted and repeating the delete retries the pass.
func (s *CatalogService) propagate(ctx context.Context, id uint64) int {
	n, err := s.propagator.Propagate(ctx, id)
	if err != nil {
		s.log.Warn("propagation incomplete", zap.Uint64("product_id", id), zap.Int("orders_updated", n), zap.Error(err))
	}
	return n
}
