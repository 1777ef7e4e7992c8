package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/repository/memstore"
)

type fixture struct {
	store    *memstore.Store
	identity *IdentityService
	catalog  *CatalogService
	orders   *OrderService
	reviews  *ReviewService
	prop     *Propagator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithOrders(t, nil)
}

// newFixtureWithOrders lets a test swap the order repository seen by the
// services, e.g. to inject write failures.
func newFixtureWithOrders(t *testing.T, wrap func(repository.OrderRepository) repository.OrderRepository) *fixture {
	t.Helper()
	st := memstore.New()
	orders := st.Orders()
	if wrap != nil {
		orders = wrap(orders)
	}
	log := zap.NewNop()
	prop := NewPropagator(orders, log)
	return &fixture{
		store:    st,
		identity: NewIdentityService(st.Users(), "secret", time.Hour, bcrypt.MinCost, log),
		catalog:  NewCatalogService(st.Products(), prop, log),
		orders:   NewOrderService(orders, st.Products(), log),
		reviews:  NewReviewService(st.Reviews(), st.Products(), orders, st.Users(), log),
		prop:     prop,
	}
}

func (f *fixture) signup(t *testing.T, caller model.Identity, name, role string) model.Identity {
	t.Helper()
	res, err := f.identity.Signup(context.Background(), caller, name, "pw-"+name, role)
	require.NoError(t, err)
	return res.User.Identity()
}

func (f *fixture) admin(t *testing.T) model.Identity {
	t.Helper()
	require.NoError(t, f.identity.EnsureAdmin(context.Background(), "root", "rootpw"))
	res, err := f.identity.Signin(context.Background(), "root", "rootpw")
	require.NoError(t, err)
	return res.User.Identity()
}

func (f *fixture) product(t *testing.T, name, price string) *model.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), ProductInput{
		Name: name, ImageURL: "http://x/" + name + ".png", Price: decimal.RequireFromString(price), Description: "d",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) order(t *testing.T, who model.Identity, lines ...OrderLine) *model.OrderView {
	t.Helper()
	v, err := f.orders.Create(context.Background(), who, who.ID, lines)
	require.NoError(t, err)
	return v
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}
