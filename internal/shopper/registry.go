// Package shopper keeps one cart store per authenticated shopper for the
// lifetime of their session in this process.
package shopper

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/techstore-checkout/internal/cart"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

const DefaultIdleTTL = 30 * time.Minute

// Session is the authenticated shopper bound to a cart store. The access
// token is refreshed on every request so the store always forwards the
// latest one.
type Session struct {
	id string

	mu       sync.RWMutex
	token    string
	lastSeen time.Time
}

func (s *Session) ShopperID() string {
	return s.id
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) touch(token string, now time.Time) {
	s.mu.Lock()
	s.token = token
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

type entry struct {
	session *Session
	store   *cart.Store
}

// Registry hands out the cart store for a shopper, creating it on first use.
type Registry struct {
	service  cart.Service
	observer cart.MutationObserver
	idleTTL  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry builds a registry whose stores talk to service.
func NewRegistry(service cart.Service, observer cart.MutationObserver, idleTTL time.Duration) (*Registry, error) {
	if service == nil {
		return nil, errors.New("cart service required")
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		service:  service,
		observer: observer,
		idleTTL:  idleTTL,
		now:      time.Now,
		entries:  map[string]*entry{},
	}, nil
}

// Acquire returns the session and cart store for shopperID, refreshing the
// session's access token.
func (r *Registry) Acquire(shopperID, accessToken string) (*Session, *cart.Store, error) {
	shopperID = strings.TrimSpace(shopperID)
	if shopperID == "" || strings.TrimSpace(accessToken) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "shopper session required")
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[shopperID]; ok {
		e.session.touch(accessToken, now)
		return e.session, e.store, nil
	}

	session := &Session{id: shopperID}
	session.touch(accessToken, now)
	store, err := cart.NewStore(r.service, session, r.observer)
	if err != nil {
		return nil, nil, err
	}
	r.entries[shopperID] = &entry{session: session, store: store}
	return session, store, nil
}

// Forget drops the shopper's cached cart store.
func (r *Registry) Forget(shopperID string) {
	r.mu.Lock()
	delete(r.entries, shopperID)
	r.mu.Unlock()
}

// Len reports how many shoppers have a cached store.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if e.session.idleSince().Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
