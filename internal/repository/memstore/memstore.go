// Package memstore is an in-memory implementation of the repository
// contracts. It backs the service and HTTP tests and the "memory" store
// driver used for local development. Records are copied on the way in and
// out so callers never share state with the store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
)

// Store holds every collection behind a single lock. Each repository view
// below locks for the duration of one method, which gives per-call
// atomicity and nothing more.
type Store struct {
	mu       sync.Mutex
	nextID   uint64
	users    map[uint64]*model.User
	products map[uint64]*model.Product
	reviews  map[uint64]*model.Review
	items    map[uint64]*model.OrderItem
	orders   map[uint64]*model.Order

	// failItem, when set, is consulted before every item insert; a non-nil
	// return aborts the insert. Tests use it to simulate store failures.
	failItem func(*model.OrderItem) error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    map[uint64]*model.User{},
		products: map[uint64]*model.Product{},
		reviews:  map[uint64]*model.Review{},
		items:    map[uint64]*model.OrderItem{},
		orders:   map[uint64]*model.Order{},
	}
}

// FailItemInserts installs a hook that can reject order item inserts.
func (s *Store) FailItemInserts(fn func(*model.OrderItem) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failItem = fn
}

// ItemCount returns the number of stored order items, linked or not.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func now() time.Time { return time.Now().UTC() }

func copyIDs(ids []uint64) []uint64 {
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Products returns the product repository view.
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

// Reviews returns the review repository view.
func (s *Store) Reviews() repository.ReviewRepository { return reviewRepo{s} }

// Orders returns the order repository view.
func (s *Store) Orders() repository.OrderRepository { return orderRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.s.id()
	u.CreatedAt = now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type productRepo struct{ s *Store }

func copyProduct(p *model.Product) *model.Product {
	cp := *p
	cp.ReviewIDs = copyIDs(p.ReviewIDs)
	return &cp
}

func (r productRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	p.ReviewIDs = []uint64{}
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r productRepo) GetByID(_ context.Context, id uint64) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r productRepo) ListActive(_ context.Context) ([]*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Product{}
	for _, id := range sortedKeys(r.s.products) {
		if p := r.s.products[id]; !p.IsDeleted {
			out = append(out, copyProduct(p))
		}
	}
	return out, nil
}

func (r productRepo) NameTaken(_ context.Context, name string, excludeID uint64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.products {
		if id != excludeID && !p.IsDeleted && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r productRepo) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = p.Name
	stored.ImageURL = p.ImageURL
	stored.Price = p.Price
	stored.Description = p.Description
	stored.IsDeleted = p.IsDeleted
	stored.UpdatedAt = now()
	return nil
}

func (r productRepo) SetDeleted(_ context.Context, id uint64, deleted bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.products[id]; ok {
		p.IsDeleted = deleted
		p.UpdatedAt = now()
	}
	return nil
}

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(_ context.Context, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[rv.ProductID]
	if !ok {
		return repository.ErrNotFound
	}
	rv.ID = r.s.id()
	rv.CreatedAt = now()
	cp := *rv
	r.s.reviews[rv.ID] = &cp
	p.ReviewIDs = append(p.ReviewIDs, rv.ID)
	return nil
}

func (r reviewRepo) GetByID(_ context.Context, id uint64) (*model.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r reviewRepo) UpdateText(_ context.Context, id uint64, text string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return repository.ErrNotFound
	}
	rv.Text = text
	return nil
}

func (r reviewRepo) Delete(_ context.Context, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[rv.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reviews, rv.ID)
	if p, ok := r.s.products[rv.ProductID]; ok {
		kept := make([]uint64, 0, len(p.ReviewIDs))
		for _, id := range p.ReviewIDs {
			if id != rv.ID {
				kept = append(kept, id)
			}
		}
		p.ReviewIDs = kept
	}
	return nil
}

type orderRepo struct{ s *Store }

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.ItemIDs = copyIDs(o.ItemIDs)
	return &cp
}

func (r orderRepo) CreateItem(_ context.Context, item *model.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failItem != nil {
		if err := r.s.failItem(item); err != nil {
			return err
		}
	}
	item.ID = r.s.id()
	cp := *item
	r.s.items[item.ID] = &cp
	return nil
}

func (r orderRepo) DeleteItems(_ context.Context, ids []uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.items, id)
	}
	return nil
}

func (r orderRepo) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = r.s.id()
	o.CreatedAt = now()
	r.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (r orderRepo) filter(keep func(*model.Order) bool) []*model.Order {
	out := []*model.Order{}
	for _, id := range sortedKeys(r.s.orders) {
		if o := r.s.orders[id]; keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	return out
}

func (r orderRepo) List(_ context.Context) ([]*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(*model.Order) bool { return true }), nil
}

func (r orderRepo) ListByUser(_ context.Context, userID uint64) ([]*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(o *model.Order) bool { return o.UserID == userID }), nil
}

// references reports whether any of the order's items is for productID.
// The caller holds the lock.
func (r orderRepo) references(o *model.Order, productID uint64) bool {
	for _, id := range o.ItemIDs {
		if it, ok := r.s.items[id]; ok && it.ProductID == productID {
			return true
		}
	}
	return false
}

func (r orderRepo) ListReferencingProduct(_ context.Context, productID uint64) ([]*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(o *model.Order) bool { return r.references(o, productID) }), nil
}

func (r orderRepo) ItemsByIDs(_ context.Context, ids []uint64) ([]*model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.OrderItem{}
	for _, id := range ids {
		if it, ok := r.s.items[id]; ok {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r orderRepo) MarkItemsDeleted(_ context.Context, itemIDs []uint64, productID uint64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, id := range itemIDs {
		if it, ok := r.s.items[id]; ok && it.ProductID == productID {
			it.IsDeleted = true
			n++
		}
	}
	return n, nil
}

func (r orderRepo) HasPaidPurchase(_ context.Context, userID, productID uint64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.UserID == userID && o.Status == model.OrderStatusPaid && r.references(o, productID) {
			return true, nil
		}
	}
	return false, nil
}
