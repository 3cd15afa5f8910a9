package commerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/techstore-checkout/pkg/auth"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.CommerceConfig{BaseURL: srv.URL + "/api", RequestTimeout: time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func authed() context.Context {
	return auth.WithAccessToken(context.Background(), "tok")
}

const cartBody = `{"id":7,"items":[{"id":1,"product":{"id":101,"name":"Keyboard","stockQuantity":5,"imageUrls":["k.jpg"]},"quantity":2,"price":30.00}]}`

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(config.CommerceConfig{BaseURL: "not a url"}, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetCartDecodesItemsAndForwardsToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/cart" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, cartBody)
	})

	items, err := NewCartService(client).GetCart(authed())
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.ProductID != "101" || item.Quantity != 2 {
		t.Fatalf("unexpected item %+v", item)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unexpected price %s", item.UnitPrice)
	}
	if item.Product.StockQuantity != 5 || item.Product.ImageRef != "k.jpg" || item.Product.Name != "Keyboard" {
		t.Fatalf("unexpected snapshot %+v", item.Product)
	}
}

func TestAddItemSendsQuantity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/cart/items" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("productId") != "101" || r.URL.Query().Get("quantity") != "2" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		var body quantityBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.ProductID != "101" || body.Quantity != 2 {
			t.Fatalf("unexpected body %+v", body)
		}
		_, _ = io.WriteString(w, cartBody)
	})

	if _, err := NewCartService(client).AddItem(authed(), "101", 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
}

func TestUpdateAndRemoveUseProductPath(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, `{"items":[]}`)
	})
	svc := NewCartService(client)

	if _, err := svc.UpdateItem(authed(), "101", 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.RemoveItem(authed(), "101"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if seen[0] != "PUT /api/cart/items/101" || seen[1] != "DELETE /api/cart/items/101" {
		t.Fatalf("unexpected requests %v", seen)
	}
}

func TestClearCartAcceptsEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/cart" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	items, err := NewCartService(client).ClearCart(authed())
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty items, got %#v", items)
	}
}

func TestCartEndpointsRejectEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/api/cart/items/101" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	svc := NewCartService(client)

	calls := map[string]func() ([]types.LineItem, error){
		"get":    func() ([]types.LineItem, error) { return svc.GetCart(authed()) },
		"add":    func() ([]types.LineItem, error) { return svc.AddItem(authed(), "101", 1) },
		"update": func() ([]types.LineItem, error) { return svc.UpdateItem(authed(), "101", 2) },
		"remove": func() ([]types.LineItem, error) { return svc.RemoveItem(authed(), "101") },
	}
	for name, call := range calls {
		items, err := call()
		if !pkgerrors.Is(err, pkgerrors.CodeServiceRejected) {
			t.Fatalf("%s: expected SERVICE_REJECTED, got %v", name, err)
		}
		if items != nil {
			t.Fatalf("%s: expected no items, got %#v", name, items)
		}
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		code   pkgerrors.Code
		msg    string
	}{
		{http.StatusUnauthorized, ``, pkgerrors.CodeUnauthenticated, "authentication required"},
		{http.StatusBadRequest, `{"message":"Insufficient stock"}`, pkgerrors.CodeServiceRejected, "Insufficient stock"},
		{http.StatusNotFound, `{"error":"Not Found"}`, pkgerrors.CodeServiceRejected, "Not Found"},
		{http.StatusInternalServerError, ``, pkgerrors.CodeServiceRejected, "Internal Server Error"},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, tc.body)
		})
		_, err := NewCartService(client).GetCart(authed())
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != tc.code {
			t.Fatalf("%d: expected %s, got %v", tc.status, tc.code, err)
		}
		if typed.Message() != tc.msg {
			t.Fatalf("%d: expected message %q, got %q", tc.status, tc.msg, typed.Message())
		}
		details, _ := typed.Details().(map[string]any)
		if details["status"] != tc.status {
			t.Fatalf("%d: expected status detail, got %v", tc.status, details)
		}
	}
}

func TestTimeoutIsServiceUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client, err := NewClient(config.CommerceConfig{BaseURL: srv.URL, RequestTimeout: 20 * time.Millisecond}, nil, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = NewCartService(client).GetCart(authed())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeServiceUnavailable {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if details["timeout"] != true {
		t.Fatalf("expected timeout detail, got %v", details)
	}
}

func TestConnectionRefusedIsServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(config.CommerceConfig{BaseURL: url, RequestTimeout: time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := NewCartService(client).GetCart(authed()); !pkgerrors.Is(err, pkgerrors.CodeServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}

func TestCreateOrderPostsShippingInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var info types.ShippingInfo
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if info.City != "Springfield" || info.PhoneNumber != "555-0100" {
			t.Fatalf("unexpected shipping %+v", info)
		}
		_, _ = io.WriteString(w, `{"id":42,"orderNumber":"ORD-2026-1A2B3C4D","status":"PENDING","paymentStatus":"PENDING","subtotal":60.00,"tax":6.00,"shippingCost":0,"total":66.00}`)
	})

	order, err := NewOrderService(client).CreateOrder(authed(), types.ShippingInfo{
		Street: "1 Main", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US", PhoneNumber: "555-0100",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "42" || order.OrderNumber != "ORD-2026-1A2B3C4D" || order.PaymentStatus != "PENDING" {
		t.Fatalf("unexpected order %+v", order)
	}
	if !order.Total.Equal(decimal.RequireFromString("66")) {
		t.Fatalf("unexpected total %s", order.Total)
	}
}

func TestCreateOrderWithoutIDIsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"orderNumber":"ORD-1"}`)
	})
	if _, err := NewOrderService(client).CreateOrder(authed(), types.ShippingInfo{}); !pkgerrors.Is(err, pkgerrors.CodeServiceRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestCreateIntentDerivesIDFromSecret(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/payments/create-intent" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("orderId") != "42" {
			t.Fatalf("unexpected order id %q", r.URL.Query().Get("orderId"))
		}
		_, _ = io.WriteString(w, `{"clientSecret":"pi_abc_secret_xyz"}`)
	})

	intent, err := NewPaymentService(client).CreateIntent(authed(), "42")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.ClientSecret != "pi_abc_secret_xyz" || intent.PaymentIntentID != "pi_abc" {
		t.Fatalf("unexpected intent %+v", intent)
	}
}

func TestRemoteIDAcceptsNumbersAndStrings(t *testing.T) {
	var out struct {
		A remoteID `json:"a"`
		B remoteID `json:"b"`
		C remoteID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"x-1","c":null}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.A != "12" || out.B != "x-1" || out.C != "" {
		t.Fatalf("unexpected ids %+v", out)
	}
}
