package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/techstore-checkout/api/responses"
	pkgAuth "github.com/angelmondragon/techstore-checkout/pkg/auth"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

// Auth validates the bearer token and seeds the request context with the
// shopper id. The raw token is kept on the context so calls to the commerce
// backend are made on the shopper's behalf.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if strings.TrimSpace(token) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthenticated, err, "invalid token"))
				return
			}

			shopperID := claims.ShopperID()
			ctx := WithShopperID(r.Context(), shopperID)
			ctx = pkgAuth.WithAccessToken(ctx, token)
			if logg != nil {
				ctx = logg.WithShopperID(ctx, shopperID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
