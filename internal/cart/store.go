package cart

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/angelmondragon/techstore-checkout/internal/stock"
	"github.com/angelmondragon/techstore-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

const (
	OpLoad   = "load"
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Store holds the authoritative line-item list for one shopper. Local state
// is only ever replaced by a successful Service response; failed calls leave
// it untouched. Operations are serialized: a mutation waits for the previous
// remote call to finish before issuing its own.
type Store struct {
	service  Service
	session  Session
	observer MutationObserver

	opMu    sync.Mutex
	stateMu sync.RWMutex
	items   []types.LineItem
	loaded  bool
}

// NewStore builds a store for the given session.
func NewStore(service Service, session Session, observer MutationObserver) (*Store, error) {
	if service == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &Store{
		service:  service,
		session:  session,
		observer: observer,
	}, nil
}

// Items returns a copy of the current line items.
func (s *Store) Items() []types.LineItem {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return types.CloneLineItems(s.items)
}

// Loaded reports whether the store has received at least one authoritative response.
func (s *Store) Loaded() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.loaded
}

// Find returns the line for productID if present.
func (s *Store) Find(productID string) (types.LineItem, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return findLine(s.items, productID)
}

// Load fetches the current cart. An empty cart is a valid result.
func (s *Store) Load(ctx context.Context) error {
	return s.run(ctx, OpLoad, func(ctx context.Context) ([]types.LineItem, error) {
		return s.service.GetCart(ctx)
	})
}

// AddItem adds quantity of productID. When the product is already in the
// cart the service merges quantities, so the merged total is checked
// against the known stock first.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return s.reject(OpAdd, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "product id is required"))
	}
	if quantity < 1 {
		return s.reject(OpAdd, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1"))
	}
	if existing, ok := s.Find(productID); ok {
		if _, err := stock.ValidateQuantity(existing.Quantity+quantity, existing.Product.StockQuantity); err != nil {
			return s.reject(OpAdd, err)
		}
	}
	return s.run(ctx, OpAdd, func(ctx context.Context) ([]types.LineItem, error) {
		return s.service.AddItem(ctx, productID, quantity)
	})
}

// UpdateQuantity sets the quantity of productID. Quantities below one or
// above the line's known stock are rejected without a remote call.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return s.reject(OpUpdate, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "product id is required"))
	}
	if quantity < 1 {
		return s.reject(OpUpdate, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1").
			WithDetails(map[string]any{"requested": quantity}))
	}
	if existing, ok := s.Find(productID); ok {
		if _, err := stock.ValidateQuantity(quantity, existing.Product.StockQuantity); err != nil {
			return s.reject(OpUpdate, err)
		}
	}
	return s.run(ctx, OpUpdate, func(ctx context.Context) ([]types.LineItem, error) {
		return s.service.UpdateItem(ctx, productID, quantity)
	})
}

// RemoveItem removes productID. Removing an absent item succeeds.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return s.reject(OpRemove, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "product id is required"))
	}
	return s.run(ctx, OpRemove, func(ctx context.Context) ([]types.LineItem, error) {
		items, err := s.service.RemoveItem(ctx, productID)
		if err != nil && isNotFound(err) {
			return removeLine(s.Items(), productID), nil
		}
		return items, err
	})
}

// Clear empties the cart through the service.
func (s *Store) Clear(ctx context.Context) error {
	return s.run(ctx, OpClear, func(ctx context.Context) ([]types.LineItem, error) {
		return s.service.ClearCart(ctx)
	})
}

func (s *Store) run(ctx context.Context, op string, call func(context.Context) ([]types.LineItem, error)) error {
	if s.session == nil || strings.TrimSpace(s.session.AccessToken()) == "" {
		return s.reject(op, pkgerrors.New(pkgerrors.CodeUnauthenticated, "shopper session required"))
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx = auth.WithAccessToken(ctx, s.session.AccessToken())
	items, err := call(ctx)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, fmt.Sprintf("cart %s", op))
		}
		s.observe(op, err)
		return err
	}

	s.stateMu.Lock()
	s.items = types.CloneLineItems(items)
	if s.items == nil {
		s.items = []types.LineItem{}
	}
	s.loaded = true
	s.stateMu.Unlock()

	s.observe(op, nil)
	return nil
}

func (s *Store) reject(op string, err error) error {
	s.observe(op, err)
	return err
}

func (s *Store) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveCartMutation(op, err)
	}
}

func findLine(items []types.LineItem, productID string) (types.LineItem, bool) {
	for _, item := range items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return types.LineItem{}, false
}

func removeLine(items []types.LineItem, productID string) []types.LineItem {
	out := make([]types.LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}

func isNotFound(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeServiceRejected {
		return false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return false
	}
	status, _ := details["status"].(int)
	return status == http.StatusNotFound
}
