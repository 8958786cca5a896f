package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/birthapp/birthapp-go/internal/crypto"
)

// CookieName is the session cookie set at login.
const CookieName = "auth"

type contextKey string

const claimsKey contextKey = "claims"

// Session returns middleware that requires a valid session token, read from
// the auth cookie or an Authorization: Bearer header. The first candidate that
// verifies wins, so a stale cookie does not mask a valid header.
func Session(tokens *crypto.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			candidates := sessionTokens(r)
			if len(candidates) == 0 {
				writeJSONError(w, http.StatusUnauthorized, "not signed in")
				return
			}

			var claims *crypto.Claims
			for _, token := range candidates {
				if c, err := tokens.Verify(token); err == nil {
					claims = c
					break
				}
			}
			if claims == nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects sessions whose role differs from role. It must run
// after Session.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "not signed in")
				return
			}
			if claims.Role != role {
				writeJSONError(w, http.StatusForbidden, role+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BootstrapToken guards maintenance endpoints with a shared secret passed as
// a Bearer token, an X-Bootstrap-Token header or a token query parameter. An
// empty expected token disables the endpoints.
func BootstrapToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				writeJSONError(w, http.StatusServiceUnavailable, "BOOTSTRAP_TOKEN is not configured")
				return
			}

			got := bearer(r)
			if got == "" {
				got = r.Header.Get("X-Bootstrap-Token")
			}
			if got == "" {
				got = r.URL.Query().Get("token")
			}

			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid bootstrap token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the verified session claims.
func ClaimsFromContext(ctx context.Context) (*crypto.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*crypto.Claims)
	return claims, ok
}

// WithClaims attaches claims to ctx, as Session does.
func WithClaims(ctx context.Context, claims *crypto.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// sessionTokens returns the cookie token then the Bearer token, skipping
// empty ones.
func sessionTokens(r *http.Request) []string {
	var out []string
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		out = append(out, c.Value)
	}
	if b := bearer(r); b != "" {
		out = append(out, b)
	}
	return out
}

func bearer(r *http.Request) string {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
