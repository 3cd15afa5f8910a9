package commerce

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

// CartService implements cart.Service over the commerce API.
type CartService struct {
	client *Client
}

func NewCartService(client *Client) *CartService {
	return &CartService{client: client}
}

type quantityBody struct {
	ProductID string `json:"productId,omitempty"`
	Quantity  int    `json:"quantity"`
}

func (s *CartService) GetCart(ctx context.Context) ([]types.LineItem, error) {
	var out cartDTO
	if err := s.client.do(ctx, http.MethodGet, "cart", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.lineItems(), nil
}

// AddItem sends the values both as query parameters, which the backend
// binds, and as a JSON body.
func (s *CartService) AddItem(ctx context.Context, productID string, quantity int) ([]types.LineItem, error) {
	query := url.Values{}
	query.Set("productId", productID)
	query.Set("quantity", strconv.Itoa(quantity))

	var out cartDTO
	body := quantityBody{ProductID: productID, Quantity: quantity}
	if err := s.client.do(ctx, http.MethodPost, "cart/items", query, body, &out); err != nil {
		return nil, err
	}
	return out.lineItems(), nil
}

func (s *CartService) UpdateItem(ctx context.Context, productID string, quantity int) ([]types.LineItem, error) {
	query := url.Values{}
	query.Set("quantity", strconv.Itoa(quantity))

	var out cartDTO
	body := quantityBody{Quantity: quantity}
	if err := s.client.do(ctx, http.MethodPut, "cart/items/"+url.PathEscape(productID), query, body, &out); err != nil {
		return nil, err
	}
	return out.lineItems(), nil
}

func (s *CartService) RemoveItem(ctx context.Context, productID string) ([]types.LineItem, error) {
	var out cartDTO
	if err := s.client.do(ctx, http.MethodDelete, "cart/items/"+url.PathEscape(productID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.lineItems(), nil
}

// ClearCart empties the cart. The backend answers with no body.
func (s *CartService) ClearCart(ctx context.Context) ([]types.LineItem, error) {
	if err := s.client.do(ctx, http.MethodDelete, "cart", nil, nil, nil); err != nil {
		return nil, err
	}
	return []types.LineItem{}, nil
}

// OrderService implements checkout.OrderService.
type OrderService struct {
	client *Client
}

func NewOrderService(client *Client) *OrderService {
	return &OrderService{client: client}
}

func (s *OrderService) CreateOrder(ctx context.Context, shipping types.ShippingInfo) (checkout.Order, error) {
	var out orderDTO
	if err := s.client.do(ctx, http.MethodPost, "orders", nil, shipping, &out); err != nil {
		return checkout.Order{}, err
	}
	order := out.order()
	if order.ID == "" {
		return checkout.Order{}, pkgerrors.New(pkgerrors.CodeServiceRejected, "order response missing id").
			WithDetails(map[string]any{"status": http.StatusOK})
	}
	return order, nil
}

// PaymentService implements checkout.PaymentService.
type PaymentService struct {
	client *Client
}

func NewPaymentService(client *Client) *PaymentService {
	return &PaymentService{client: client}
}

func (s *PaymentService) CreateIntent(ctx context.Context, orderID string) (checkout.PaymentIntent, error) {
	query := url.Values{}
	query.Set("orderId", orderID)

	var out intentDTO
	if err := s.client.do(ctx, http.MethodPost, "payments/create-intent", query, nil, &out); err != nil {
		return checkout.PaymentIntent{}, err
	}
	intent := checkout.PaymentIntent{
		ClientSecret:    strings.TrimSpace(out.ClientSecret),
		PaymentIntentID: strings.TrimSpace(out.PaymentIntentID),
	}
	if intent.PaymentIntentID == "" {
		intent.PaymentIntentID = checkout.IntentIDFromSecret(intent.ClientSecret)
	}
	return intent, nil
}
