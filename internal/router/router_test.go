package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/repository/memstore"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

const secret = "router-secret"

type apiClient struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, opts ...func(*Deps)) *apiClient {
	t.Helper()
	st := memstore.New()
	log := zap.NewNop()
	prop := service.NewPropagator(st.Orders(), log)
	identity := service.NewIdentityService(st.Users(), secret, time.Hour, bcrypt.MinCost, log)
	require.NoError(t, identity.EnsureAdmin(context.Background(), "root", "rootpw"))

	dir := t.TempDir()
	up, err := storage.NewLocalUploader(dir, "http://shop.test")
	require.NoError(t, err)

	d := Deps{
		JWTSecret: secret,
		Log:       log,
		Identity:  identity,
		Catalog:   service.NewCatalogService(st.Products(), prop, log),
		Orders:    service.NewOrderService(st.Orders(), st.Products(), log),
		Reviews:   service.NewReviewService(st.Reviews(), st.Products(), st.Orders(), st.Users(), log),
		Uploader:  up,
		UploadDir: dir,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &apiClient{t: t, e: New(d)}
}

func (a *apiClient) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

type authResp struct {
	User struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
	Token string `json:"token"`
}

type errResp struct {
	Message   string          `json:"message"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"errorCode"`
	Timestamp time.Time       `json:"timestamp"`
}

func (a *apiClient) signin(user, pw string) authResp {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/users/signin", "", map[string]string{"username": user, "password": pw})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res authResp
	decode(a.t, rec, &res)
	return res
}

func (a *apiClient) signup(user, pw string) authResp {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/users/signup", "", map[string]string{"username": user, "password": pw, "role": "customer"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res authResp
	decode(a.t, rec, &res)
	return res
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var e errResp
	decode(t, rec, &e)
	assert.Equal(t, code, e.ErrorCode)
	assert.Equal(t, "error", e.Status)
	assert.Equal(t, "null", string(e.Data))
	assert.NotEmpty(t, e.Message)
	assert.False(t, e.Timestamp.IsZero())
}

func TestSignupSigninScenario(t *testing.T) {
	api := newAPI(t)

	alice := api.signup("alice", "pw1")
	assert.Equal(t, "customer", alice.User.Role)
	assert.NotEmpty(t, alice.Token)
	assert.NotContains(t, api.do(http.MethodPost, "/users/signin", "", map[string]string{"username": "alice", "password": "pw1"}).Body.String(), "password")

	in := api.signin("alice", "pw1")
	assert.NotEmpty(t, in.Token)

	rec := api.do(http.MethodPost, "/users/signin", "", map[string]string{"username": "alice", "password": "wrongpw"})
	requireError(t, rec, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	rec = api.do(http.MethodPost, "/users/signin", "", map[string]string{"username": "nobody", "password": "wrongpw"})
	requireError(t, rec, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	rec = api.do(http.MethodPost, "/users/signup", "", map[string]string{"username": "alice", "password": "x"})
	requireError(t, rec, http.StatusConflict, "DUPLICATE_USERNAME")
}

func TestSignupRoles(t *testing.T) {
	api := newAPI(t)
	root := api.signin("root", "rootpw")
	alice := api.signup("alice", "pw1")

	rec := api.do(http.MethodPost, "/users/signup", "", map[string]string{"username": "x", "password": "x", "role": "owner"})
	requireError(t, rec, http.StatusBadRequest, "INVALID_ROLE")

	rec = api.do(http.MethodPost, "/users/signup", "", map[string]string{"username": "x", "password": "x", "role": "admin"})
	requireError(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = api.do(http.MethodPost, "/users/signup", alice.Token, map[string]string{"username": "x", "password": "x", "role": "admin"})
	requireError(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = api.do(http.MethodPost, "/users/signup", "garbage", map[string]string{"username": "x", "password": "x"})
	requireError(t, rec, http.StatusUnauthorized, "AUTH_INVALID")

	rec = api.do(http.MethodPost, "/users/signup", root.Token, map[string]string{"username": "ops", "password": "x", "role": "admin"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res authResp
	decode(t, rec, &res)
	assert.Equal(t, "admin", res.User.Role)
}

func TestAccessGate(t *testing.T) {
	api := newAPI(t)
	alice := api.signup("alice", "pw1")

	requireError(t, api.do(http.MethodGet, "/products", "", nil), http.StatusUnauthorized, "AUTH_MISSING")
	requireError(t, api.do(http.MethodGet, "/products", "not.a.jwt", nil), http.StatusUnauthorized, "AUTH_INVALID")
	requireError(t, api.do(http.MethodGet, "/orders", "", nil), http.StatusUnauthorized, "AUTH_MISSING")
	requireError(t, api.do(http.MethodGet, "/reviews/1", "", nil), http.StatusUnauthorized, "AUTH_MISSING")

	body := map[string]interface{}{"name": "W", "price": 1, "image_url": "http://x/1.png"}
	requireError(t, api.do(http.MethodPost, "/products", alice.Token, body), http.StatusForbidden, "FORBIDDEN")
	requireError(t, api.do(http.MethodDelete, "/products/1", alice.Token, nil), http.StatusForbidden, "FORBIDDEN")

	rec := api.do(http.MethodGet, "/products", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

type productResp struct {
	ID        uint64   `json:"id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	ImageURL  string   `json:"image_url"`
	IsDeleted bool     `json:"is_deleted"`
	Reviews   []uint64 `json:"reviews"`
}

func (a *apiClient) createProduct(token string, body map[string]interface{}) productResp {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/products", token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p productResp
	decode(a.t, rec, &p)
	return p
}

func TestProductScenario(t *testing.T) {
	api := newAPI(t)
	root := api.signin("root", "rootpw")

	widget := map[string]interface{}{"name": "Widget", "price": 9.99, "image_url": "http://x/1.png", "description": "d"}
	p := api.createProduct(root.Token, widget)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, 9.99, p.Price)
	assert.NotNil(t, p.Reviews)

	requireError(t, api.do(http.MethodPost, "/products", root.Token, widget), http.StatusBadRequest, "DUPLICATE_NAME")
	requireError(t, api.do(http.MethodPost, "/products", root.Token, map[string]interface{}{"name": "N", "price": 0, "image_url": "http://x"}),
		http.StatusBadRequest, "VALIDATION")
	requireError(t, api.do(http.MethodGet, "/products/999", root.Token, nil), http.StatusNotFound, "NOT_FOUND")
	requireError(t, api.do(http.MethodGet, "/products/abc", root.Token, nil), http.StatusBadRequest, "VALIDATION")

	rec := api.do(http.MethodPut, fmt.Sprintf("/products/%d", p.ID), root.Token,
		map[string]interface{}{"price": "12.5", "reviews": []int{42}, "owner": "mallory"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated productResp
	decode(t, rec, &updated)
	assert.Equal(t, 12.5, updated.Price)
	assert.Empty(t, updated.Reviews, "fields outside the allow-list are ignored")

	rec = api.do(http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), root.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), root.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "deleting twice is fine")
	requireError(t, api.do(http.MethodDelete, "/products/999", root.Token, nil), http.StatusNotFound, "NOT_FOUND")

	rec = api.do(http.MethodGet, "/products", root.Token, nil)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = api.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), root.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got productResp
	decode(t, rec, &got)
	assert.True(t, got.IsDeleted)
}

func TestProductMultipartUpload(t *testing.T) {
	api := newAPI(t)
	root := api.signin("root", "rootpw")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Poster"))
	require.NoError(t, mw.WriteField("price", "3.25"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="poster.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+root.Token)
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p productResp
	decode(t, rec, &p)
	require.True(t, strings.HasPrefix(p.ImageURL, "http://shop.test/uploads/"), p.ImageURL)

	served := httptest.NewRecorder()
	api.e.ServeHTTP(served, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(p.ImageURL, "http://shop.test"), nil))
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "jpeg-bytes", served.Body.String())
}

type orderResp struct {
	ID     uint64   `json:"id"`
	UserID uint64   `json:"user_id"`
	Status string   `json:"status"`
	ItemID []uint64 `json:"orderItems_id"`
	Items  []struct {
		ID            uint64  `json:"id"`
		ProductID     uint64  `json:"product_id"`
		Quantity      int     `json:"quantity"`
		PurchasePrice float64 `json:"purchasePrice"`
		IsDeleted     bool    `json:"is_deleted"`
		Product       *struct {
			Name      string `json:"name"`
			IsDeleted bool   `json:"is_deleted"`
		} `json:"product"`
	} `json:"orderItems"`
}

func TestOrderAndPropagationScenario(t *testing.T) {
	api := newAPI(t)
	root := api.signin("root", "rootpw")
	alice := api.signup("alice", "pw1")
	bob := api.signup("bob", "pw2")
	p := api.createProduct(root.Token, map[string]interface{}{"name": "Widget", "price": 9.99, "image_url": "http://x/1.png"})

	requireError(t, api.do(http.MethodGet, "/orders", alice.Token, nil), http.StatusNotFound, "NOT_FOUND")

	order := map[string]interface{}{
		"user_id":    alice.User.ID,
		"orderItems": []map[string]interface{}{{"product_id": p.ID, "quantity": 2, "purchasePrice": 9.99}},
	}
	requireError(t, api.do(http.MethodPost, "/orders", bob.Token, order), http.StatusForbidden, "FORBIDDEN")

	rec := api.do(http.MethodPost, "/orders", alice.Token, order)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created orderResp
	decode(t, rec, &created)
	assert.Equal(t, "paid", created.Status)
	require.Len(t, created.Items, 1)
	assert.Equal(t, 2, created.Items[0].Quantity)
	assert.Equal(t, 9.99, created.Items[0].PurchasePrice)

	missing := map[string]interface{}{
		"user_id":    alice.User.ID,
		"orderItems": []map[string]interface{}{{"product_id": 999, "quantity": 1, "purchasePrice": 1}},
	}
	requireError(t, api.do(http.MethodPost, "/orders", alice.Token, missing), http.StatusNotFound, "PRODUCT_NOT_FOUND")

	rec = api.do(http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), root.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/orders", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []orderResp
	decode(t, rec, &mine)
	require.Len(t, mine, 1)
	require.Len(t, mine[0].Items, 1)
	assert.True(t, mine[0].Items[0].IsDeleted)
	require.NotNil(t, mine[0].Items[0].Product)
	assert.True(t, mine[0].Items[0].Product.IsDeleted)

	rec = api.do(http.MethodGet, "/orders", root.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []orderResp
	decode(t, rec, &all)
	assert.Len(t, all, 1)

	requireError(t, api.do(http.MethodPost, "/orders", alice.Token, order), http.StatusNotFound, "PRODUCT_NOT_FOUND")
}

type reviewResp struct {
	ID        uint64 `json:"id"`
	UserID    uint64 `json:"user_id"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	IsOperate bool   `json:"isOperate"`
}

func TestReviewScenario(t *testing.T) {
	api := newAPI(t)
	root := api.signin("root", "rootpw")
	alice := api.signup("alice", "pw1")
	bob := api.signup("bob", "pw2")
	p := api.createProduct(root.Token, map[string]interface{}{"name": "Widget", "price": 9.99, "image_url": "http://x/1.png"})

	review := map[string]interface{}{"product_id": p.ID, "user_id": alice.User.ID, "text": "love it"}
	requireError(t, api.do(http.MethodPost, "/reviews", alice.Token, review), http.StatusForbidden, "NOT_PURCHASED")
	requireError(t, api.do(http.MethodPost, "/reviews", bob.Token, review), http.StatusForbidden, "FORBIDDEN")

	rec := api.do(http.MethodPost, "/orders", alice.Token, map[string]interface{}{
		"user_id":    alice.User.ID,
		"orderItems": []map[string]interface{}{{"product_id": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/reviews", alice.Token, review)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reviewResp
	decode(t, rec, &created)
	assert.Equal(t, "alice", created.Username)

	rec = api.do(http.MethodGet, fmt.Sprintf("/reviews/%d", p.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []reviewResp
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)
	assert.False(t, list[0].IsOperate)

	path := fmt.Sprintf("/reviews/%d", created.ID)
	requireError(t, api.do(http.MethodPut, path, bob.Token, map[string]string{"text": "meh"}), http.StatusForbidden, "FORBIDDEN")
	rec = api.do(http.MethodPut, path, alice.Token, map[string]string{"text": "still love it"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated reviewResp
	decode(t, rec, &updated)
	assert.Equal(t, "still love it", updated.Text)

	requireError(t, api.do(http.MethodDelete, path, bob.Token, nil), http.StatusForbidden, "FORBIDDEN")
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, root.Token, nil).Code)
	requireError(t, api.do(http.MethodDelete, path, root.Token, nil), http.StatusNotFound, "NOT_FOUND")

	rec = api.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), alice.Token, nil)
	var prod productResp
	decode(t, rec, &prod)
	assert.Empty(t, prod.Reviews)

	requireError(t, api.do(http.MethodGet, "/reviews/999", alice.Token, nil), http.StatusNotFound, "NOT_FOUND")
}

func TestHealthAndMetrics(t *testing.T) {
	api := newAPI(t)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	requireError(t, api.do(http.MethodGet, "/nope", "", nil), http.StatusNotFound, "NOT_FOUND")
}

// bucketStub stands in for redis when running the token bucket script. It
// records the keys it was asked about and allows or denies every call.
type bucketStub struct {
	mu   sync.Mutex
	keys []string
	deny bool
}

func (b *bucketStub) run(keys []string) *redis.Cmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, keys...)
	if b.deny {
		return redis.NewCmdResult([]interface{}{int64(0), int64(0), int64(1500)}, nil)
	}
	return redis.NewCmdResult([]interface{}{int64(1), int64(9), int64(0)}, nil)
}

func (b *bucketStub) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketStub) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketStub) EvalRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketStub) EvalShaRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return b.run(keys)
}

func (b *bucketStub) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (b *bucketStub) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func (b *bucketStub) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.keys...)
}

func withBuckets(b *bucketStub, strategy string) func(*Deps) {
	return func(d *Deps) {
		d.Redis = b
		d.RateLimit = config.RateLimitConfig{
			Enabled:        true,
			Capacity:       10,
			RefillTokens:   1,
			RefillInterval: time.Second,
			TTL:            time.Minute,
			KeyStrategy:    strategy,
			Prefix:         "t",
		}
	}
}

func TestRateLimitKeysFollowTheCaller(t *testing.T) {
	buckets := &bucketStub{}
	api := newAPI(t, withBuckets(buckets, "user"))

	alice := api.signup("alice", "pw1")
	bob := api.signup("bob", "pw2")
	root := api.signin("root", "rootpw")

	requireError(t, api.do(http.MethodGet, "/orders", alice.Token, nil), http.StatusNotFound, "NOT_FOUND")
	requireError(t, api.do(http.MethodGet, "/orders", bob.Token, nil), http.StatusNotFound, "NOT_FOUND")
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/products", root.Token, nil).Code)

	keys := buckets.seen()
	assert.Contains(t, keys, "t:user:guest-192.0.2.1", "anonymous signup is keyed by address")
	assert.Contains(t, keys, fmt.Sprintf("t:user:%d", alice.User.ID))
	assert.Contains(t, keys, fmt.Sprintf("t:user:%d", bob.User.ID))
	assert.Contains(t, keys, fmt.Sprintf("t:user:%d", root.User.ID))

	before := len(keys)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Len(t, buckets.seen(), before, "health checks are not limited")
}

func TestRateLimitRejects(t *testing.T) {
	buckets := &bucketStub{}
	api := newAPI(t, withBuckets(buckets, "user_route"))
	alice := api.signup("alice", "pw1")

	buckets.mu.Lock()
	buckets.deny = true
	buckets.mu.Unlock()

	rec := api.do(http.MethodGet, "/products", alice.Token, nil)
	requireError(t, rec, http.StatusTooManyRequests, "RATE_LIMITED")
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	requireError(t, api.do(http.MethodGet, "/products", "", nil), http.StatusUnauthorized, "AUTH_MISSING")
}

func TestPanicIsLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	api := newAPI(t, func(d *Deps) { d.Log = zap.New(core) })
	api.e.GET("/explode", func(echo.Context) error { panic("kaboom") })

	requireError(t, api.do(http.MethodGet, "/explode", "", nil), http.StatusInternalServerError, "INTERNAL")

	lines := logs.FilterMessage("HTTP Request").FilterField(zap.String("path", "/explode")).All()
	require.Len(t, lines, 1)
	assert.EqualValues(t, http.StatusInternalServerError, lines[0].ContextMap()["status"])

	metricsBody := api.do(http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, metricsBody, `http_requests_total{method="GET",path="/explode",status="500"}`)
}
