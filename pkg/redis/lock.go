package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

const (
	defaultLockTTL     = 2 * time.Minute
	lockReleaseTimeout = 2 * time.Second
)

type lockStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, token string) (bool, error)
	CheckoutLockKey(shopperID string) string
}

// CheckoutLock holds one active checkout per shopper across instances. The
// TTL bounds how long a crashed holder can block the shopper.
type CheckoutLock struct {
	store lockStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCheckoutLock(store lockStore, ttl time.Duration, logg *logger.Logger) *CheckoutLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CheckoutLock{store: store, ttl: ttl, logg: logg}
}

// Acquire claims the shopper's checkout slot with SET NX PX and a random
// token. The returned release only deletes the key while it still holds
// that token.
func (l *CheckoutLock) Acquire(ctx context.Context, shopperID string) (func(), error) {
	shopperID = strings.TrimSpace(shopperID)
	if shopperID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "shopper id required")
	}

	key := l.store.CheckoutLockKey(shopperID)
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "a checkout is already in progress")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
			defer cancel()
			released, err := l.store.ReleaseIfOwner(releaseCtx, key, token)
			if err != nil {
				l.logg.Error(releaseCtx, "checkout lock release failed", err)
				return
			}
			if !released {
				l.logg.Warn(releaseCtx, "checkout lock expired before release")
			}
		})
	}, nil
}
