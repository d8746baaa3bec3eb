package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
	ginrouter "github.com/Andi3172/fullstack-tic-project/pkg/server/router/gin"
	"github.com/Andi3172/fullstack-tic-project/pkg/testutil"
	"github.com/Andi3172/fullstack-tic-project/pkg/users"
)

func price(v float64) *float64 { return &v }

type catalogStore struct {
	products []catalog.Product
	err      error
}

func (s *catalogStore) GetAll(context.Context) ([]catalog.Product, error) {
	return s.products, s.err
}

func (s *catalogStore) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			out := p.Clone()
			return &out, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *catalogStore) RangeQuery(context.Context, catalog.RangeQuery) ([]catalog.Product, error) {
	return nil, errors.New("not used in memory mode")
}

func (s *catalogStore) Count(context.Context, string) (int64, error) {
	return int64(len(s.products)), nil
}

type orderStore struct {
	mu     sync.Mutex
	orders map[string]orders.Order
}

func (s *orderStore) Create(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *o
	return nil
}

func (s *orderStore) FindByID(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return &o, nil
}

func (s *orderStore) list(keep func(orders.Order) bool) []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *orderStore) ListByUser(_ context.Context, userID string) ([]orders.Order, error) {
	return s.list(func(o orders.Order) bool { return o.UserID == userID }), nil
}

func (s *orderStore) ListAll(context.Context) ([]orders.Order, error) {
	return s.list(func(orders.Order) bool { return true }), nil
}

func (s *orderStore) UpdateStatus(_ context.Context, id string, status orders.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.Status, o.UpdatedAt = status, at
	s.orders[id] = o
	return nil
}

type userStore struct {
	mu    sync.Mutex
	users map[string]users.User
}

func (s *userStore) FindByID(_ context.Context, uid string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &u, nil
}

func (s *userStore) Create(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.UID]; ok {
		return users.ErrUserExists
	}
	s.users[u.UID] = *u
	return nil
}

func (s *userStore) TouchLastLogin(_ context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return users.ErrUserNotFound
	}
	u.Metadata.LastLogin = at
	s.users[uid] = u
	return nil
}

type tokenValidator map[string]*auth.Claims

func (v tokenValidator) Validate(_ context.Context, token string) (*auth.Claims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrInvalidToken
}

type fixture struct {
	router  router.Router
	catalog *catalogStore
	orders  *orderStore
	users   *userStore
	log     *testutil.RecordingLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testutil.NewRecordingLogger()
	cs := &catalogStore{products: []catalog.Product{
		{ID: "amd-ryzen-5-7600", Name: "AMD Ryzen 5 7600", Category: "cpu", Price: price(199.99), Image: "ryzen.png", Specs: map[string]any{"core_count": 6.0}},
		{ID: "intel-core-i9", Name: "Intel Core i9", Category: "cpu", Price: price(549.5), Specs: map[string]any{"core_count": 24.0}},
		{ID: "rtx-4070", Name: "RTX 4070", Category: "video-card", Price: price(599), Specs: map[string]any{"memory": 12.0}},
		{ID: "mystery-board", Name: "Mystery Board", Category: "motherboard"},
	}}
	cache := catalog.NewCache(cs, time.Minute, log)
	catalogSvc := catalog.NewService(cache, cs, log)

	store := &orderStore{orders: map[string]orders.Order{}}
	var seq int
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orderSvc := orders.NewService(store, catalogSvc, log,
		orders.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
		orders.WithIDGenerator(func() string {
			seq++
			return "order-" + string(rune('0'+seq))
		}),
	)

	validator := tokenValidator{
		"alice": {Subject: "u-alice", Email: "alice@example.com"},
		"bob":   {Subject: "u-bob", Email: "bob@example.com"},
		"admin": {Subject: "u-admin", Email: orders.DefaultAdminEmail},
		"anon":  {Subject: "u-anon"},
	}

	us := &userStore{users: map[string]users.User{}}
	loginClock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	userSvc := users.NewService(us, log, users.WithClock(func() time.Time {
		loginClock = loginClock.Add(time.Hour)
		return loginClock
	}))

	r := ginrouter.NewRouter()
	NewHandler(catalogSvc, orderSvc, validator, log).WithUsers(userSvc).Register(r)
	return &fixture{router: r, catalog: cs, orders: store, users: us, log: log}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products?category=cpu&sortBy=price&order=desc&limit=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	page := decode[catalog.Page](t, rec)
	if len(page.Products) != 1 || page.Products[0].ID != "intel-core-i9" {
		t.Fatalf("products = %+v", page.Products)
	}
	if page.TotalItems != 2 || page.TotalPages != 2 || !page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	if page.LastVisibleID == nil || *page.LastVisibleID != "intel-core-i9" {
		t.Fatalf("lastVisibleId = %v", page.LastVisibleID)
	}
}

func TestListProducts_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = errors.New("connection reset")

	rec := f.do(t, http.MethodGet, "/api/products", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["error"] != "service_unavailable" {
		t.Fatalf("body = %v", body)
	}
	if len(f.log.Messages("error")) == 0 {
		t.Fatal("expected server fault to be logged")
	}
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products/rtx-4070", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if p := decode[catalog.Product](t, rec); p.Name != "RTX 4070" {
		t.Fatalf("product = %+v", p)
	}

	rec = f.do(t, http.MethodGet, "/api/products/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode[map[string]any](t, rec); body["error"] != "not_found" {
		t.Fatalf("body = %v", body)
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	body := `{"items":[
		{"productId":"amd-ryzen-5-7600","name":"AMD Ryzen 5 7600","price":1,"quantity":2},
		{"productId":"mystery-board","name":"Mystery Board","price":99,"quantity":1,"image":"board.png"}
	]}`

	rec := f.do(t, http.MethodPost, "/api/orders", "alice", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["success"] != true || resp["orderId"] != "order-1" || resp["total"] != 399.98 {
		t.Fatalf("response = %v", resp)
	}

	stored := f.orders.orders["order-1"]
	if stored.UserID != "u-alice" || stored.Status != orders.StatusPending {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.Items[1].Image != "board.png" || !stored.Items[1].Price.IsZero() {
		t.Fatalf("second line = %+v", stored.Items[1])
	}
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"no token", "", `{"items":[]}`, http.StatusUnauthorized, "missing authorization header"},
		{"bad token", "mallory", `{"items":[]}`, http.StatusUnauthorized, "invalid token"},
		{"malformed body", "alice", `{"items":`, http.StatusBadRequest, "request body must be a JSON object"},
		{"empty items", "alice", `{"items":[]}`, http.StatusBadRequest, "items: at least one item is required"},
		{"missing price", "alice", `{"items":[{"productId":"rtx-4070","name":"RTX","quantity":1}]}`, http.StatusBadRequest, "items[0].price: is required"},
		{"unknown product", "alice", `{"items":[{"productId":"ghost","name":"Ghost GPU","price":1,"quantity":1}]}`, http.StatusNotFound, "product not found: Ghost GPU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/orders", tt.token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if body := decode[map[string]any](t, rec); body["message"] != tt.wantMsg {
				t.Fatalf("message = %v, want %q", body["message"], tt.wantMsg)
			}
			if len(f.orders.orders) != 0 {
				t.Fatal("no order should be stored")
			}
		})
	}
}

func TestOrderAccess(t *testing.T) {
	f := newFixture(t)
	item := `{"items":[{"productId":"rtx-4070","name":"RTX 4070","price":599,"quantity":1}]}`
	if rec := f.do(t, http.MethodPost, "/api/orders", "alice", item); rec.Code != http.StatusCreated {
		t.Fatalf("alice order status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/orders", "bob", item); rec.Code != http.StatusCreated {
		t.Fatalf("bob order status = %d", rec.Code)
	}

	mine := decode[[]orders.Order](t, f.do(t, http.MethodGet, "/api/orders/my-orders", "alice", ""))
	if len(mine) != 1 || mine[0].ID != "order-1" {
		t.Fatalf("alice orders = %+v", mine)
	}

	if rec := f.do(t, http.MethodGet, "/api/orders/admin/all", "alice", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin list status = %d", rec.Code)
	}
	all := decode[[]orders.Order](t, f.do(t, http.MethodGet, "/api/orders/admin/all", "admin", ""))
	if len(all) != 2 || all[0].ID != "order-2" {
		t.Fatalf("admin list = %+v", all)
	}

	tests := []struct {
		token string
		want  int
	}{
		{"alice", http.StatusOK},
		{"admin", http.StatusOK},
		{"bob", http.StatusForbidden},
	}
	for _, tt := range tests {
		if rec := f.do(t, http.MethodGet, "/api/orders/order-1", tt.token, ""); rec.Code != tt.want {
			t.Fatalf("%s GET order-1 = %d, want %d", tt.token, rec.Code, tt.want)
		}
	}
	if rec := f.do(t, http.MethodGet, "/api/orders/order-9", "admin", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d", rec.Code)
	}
}

func TestOrderInvoice(t *testing.T) {
	f := newFixture(t)
	item := `{"items":[{"productId":"rtx-4070","name":"RTX 4070","price":599,"quantity":2}]}`
	if rec := f.do(t, http.MethodPost, "/api/orders", "alice", item); rec.Code != http.StatusCreated {
		t.Fatalf("order status = %d", rec.Code)
	}

	for _, token := range []string{"alice", "admin"} {
		rec := f.do(t, http.MethodGet, "/api/orders/order-1/invoice", token, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s invoice status = %d: %s", token, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Fatalf("content type = %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=invoice-order-1.pdf" {
			t.Fatalf("content disposition = %q", cd)
		}
		if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
			t.Fatalf("body is not a PDF: %q", rec.Body.String()[:min(rec.Body.Len(), 16)])
		}
	}

	tests := []struct {
		name  string
		token string
		id    string
		want  int
	}{
		{"no token", "", "order-1", http.StatusUnauthorized},
		{"other user", "bob", "order-1", http.StatusForbidden},
		{"unknown order", "admin", "order-9", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/orders/"+tt.id+"/invoice", tt.token, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/pdf") {
				t.Fatal("error responses must not be PDFs")
			}
		})
	}
}

func TestMyOrders_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/orders/my-orders", "bob", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	item := `{"items":[{"productId":"rtx-4070","name":"RTX 4070","price":599,"quantity":1}]}`
	f.do(t, http.MethodPost, "/api/orders", "alice", item)

	tests := []struct {
		name  string
		token string
		id    string
		body  string
		want  int
	}{
		{"owner is not admin", "alice", "order-1", `{"status":"shipped"}`, http.StatusForbidden},
		{"missing status", "admin", "order-1", `{}`, http.StatusBadRequest},
		{"invalid status", "admin", "order-1", `{"status":"lost"}`, http.StatusBadRequest},
		{"unknown order", "admin", "order-9", `{"status":"shipped"}`, http.StatusNotFound},
		{"ok", "admin", "order-1", `{"status":"shipped"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPatch, "/api/orders/"+tt.id+"/status", tt.token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	if got := f.orders.orders["order-1"].Status; got != orders.StatusShipped {
		t.Fatalf("stored status = %s", got)
	}
}

func TestSyncUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/users", "alice", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("first sync status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[syncUserResponse](t, rec)
	if created.Message != "User created" || created.User.UID != "u-alice" || created.User.Role != users.RoleCustomer {
		t.Fatalf("first sync = %+v", created)
	}
	if !strings.Contains(rec.Body.String(), `"shippingAddresses":[]`) {
		t.Fatalf("addresses should encode as []: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/users", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("second sync status = %d: %s", rec.Code, rec.Body.String())
	}
	synced := decode[syncUserResponse](t, rec)
	if synced.Message != "User synced" {
		t.Fatalf("second sync = %+v", synced)
	}
	if !synced.User.Metadata.CreatedAt.Equal(created.User.Metadata.CreatedAt) ||
		!synced.User.Metadata.LastLogin.After(created.User.Metadata.LastLogin) {
		t.Fatalf("metadata = %+v, first = %+v", synced.User.Metadata, created.User.Metadata)
	}
	if stored := f.users.users["u-alice"]; !stored.Metadata.LastLogin.Equal(synced.User.Metadata.LastLogin) {
		t.Fatalf("stored lastLogin = %v", stored.Metadata.LastLogin)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"bad token", "mallory", http.StatusUnauthorized},
		{"token without email", "anon", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, http.MethodPost, "/api/users", tt.token, ""); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
	if len(f.users.users) != 1 {
		t.Fatalf("users = %v", f.users.users)
	}
}

func TestRegister_WithoutValidatorSkipsOrders(t *testing.T) {
	log := testutil.NewRecordingLogger()
	cs := &catalogStore{}
	svc := catalog.NewService(catalog.NewCache(cs, time.Minute, log), cs, log)
	r := ginrouter.NewRouter()
	NewHandler(svc, nil, nil, log).WithUsers(users.NewService(&userStore{}, log)).Register(r)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/orders/my-orders", nil),
		httptest.NewRequest(http.MethodPost, "/api/users", nil),
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s status = %d", req.Method, req.URL.Path, rec.Code)
		}
	}
	if len(log.Messages("warn")) != 1 {
		t.Fatalf("expected a warning, got %v", log.Entries())
	}
}
