package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tablerest/tablerest/pkg/httputil"
)

// BearerConfig configures HMAC bearer-token verification.
type BearerConfig struct {
	// Secret is the HS256 signing key.
	Secret []byte
	// Required rejects requests without a valid token when true. When
	// false the middleware only annotates the context on valid tokens,
	// leaving enforcement to upstream policy.
	Required bool
}

// VerifyBearerToken parses an Authorization: Bearer token and stores the
// token subject in the request context for downstream handlers (eg insert
// hooks stamping an owner column).
func VerifyBearerToken(config BearerConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(auth, "Bearer ")
			if !found || raw == "" {
				if config.Required {
					httputil.Error(w, http.StatusUnauthorized, "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return config.Secret, nil
			})
			if err != nil || !token.Valid {
				if config.Required {
					httputil.Error(w, http.StatusUnauthorized, "invalid bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), httputil.SubjectCtxKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
