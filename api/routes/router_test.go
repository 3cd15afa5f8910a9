package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/internal/shopper"
	pkgAuth "github.com/angelmondragon/techstore-checkout/pkg/auth"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCartService struct{}

func (stubCartService) GetCart(context.Context) ([]types.LineItem, error) {
	return []types.LineItem{{
		ProductID: "kbd-1",
		UnitPrice: decimal.RequireFromString("25.00"),
		Quantity:  1,
		Product:   types.ProductSnapshot{Name: "Keyboard", StockQuantity: 3},
	}}, nil
}

func (s stubCartService) AddItem(ctx context.Context, _ string, _ int) ([]types.LineItem, error) {
	return s.GetCart(ctx)
}

func (s stubCartService) UpdateItem(ctx context.Context, _ string, _ int) ([]types.LineItem, error) {
	return s.GetCart(ctx)
}

func (s stubCartService) RemoveItem(ctx context.Context, _ string) ([]types.LineItem, error) {
	return s.GetCart(ctx)
}

func (stubCartService) ClearCart(context.Context) ([]types.LineItem, error) {
	return []types.LineItem{}, nil
}

type stubOrders struct{}

func (stubOrders) CreateOrder(context.Context, types.ShippingInfo) (checkout.Order, error) {
	return checkout.Order{ID: "ord-1", OrderNumber: "TS-1"}, nil
}

type stubPayments struct{}

func (stubPayments) CreateIntent(context.Context, string) (checkout.PaymentIntent, error) {
	return checkout.PaymentIntent{ClientSecret: "pi_1_secret_x"}, nil
}

type stubProcessor struct{}

func (stubProcessor) ConfirmPayment(context.Context, string, string) (checkout.PaymentResult, error) {
	return checkout.PaymentResult{Status: checkout.PaymentSucceeded}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret: "secret",
			Issuer: "issuer",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, db stubPinger) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	engine, err := pricing.NewEngine(pricing.DefaultRules())
	if err != nil {
		t.Fatalf("pricing engine: %v", err)
	}
	registry, err := shopper.NewRegistry(stubCartService{}, nil, time.Minute)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	orch, err := checkout.NewOrchestrator(checkout.Config{
		Orders:    stubOrders{},
		Payments:  stubPayments{},
		Processor: stubProcessor{},
		Pricing:   engine,
		Logger:    logg,
	})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	return NewRouter(cfg, logg, Dependencies{
		DB:           db,
		Sessions:     registry,
		Pricing:      engine,
		Orchestrator: orch,
	})
}

func buildToken(t *testing.T, cfg *config.Config, shopperID string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: shopperID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-TechStore-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{err: errors.New("db down")})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "shopper-1"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"subtotal":"25.00"`) {
		t.Fatalf("expected breakdown in body, got %s", resp.Body.String())
	}
}

func TestCheckoutRunsThroughRouter(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubPinger{})
	body := `{"shippingInfo":{"street":"1 Main","city":"Springfield","state":"IL","zipCode":"62701","country":"US","phoneNumber":"555"},"paymentMethodId":"pm_card_visa"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "shopper-1"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAttemptHistoryUnavailableWithoutLedger(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/attempts", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "shopper-1"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsNotMountedWithoutRegistry(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
